package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/lpspool/internal/logger"
	"github.com/marmos91/lpspool/internal/protocol/lpd"
	lpdadapter "github.com/marmos91/lpspool/pkg/adapter/lpd"
	"github.com/marmos91/lpspool/pkg/api"
	"github.com/marmos91/lpspool/pkg/config"
	"github.com/marmos91/lpspool/pkg/helper"
	"github.com/marmos91/lpspool/pkg/metrics"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/lpspool/pkg/metrics/prometheus"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the lpspool server",
	Long: `Start the lpspool server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/lpspool/config.yaml.

Examples:
  # Start in background (default)
  lpspool start

  # Start in foreground
  lpspool start --foreground

  # Start with custom config file
  lpspool start --config /etc/lpspool/config.yaml

  # Start with environment variable overrides
  LPSPOOL_LOGGING_LEVEL=DEBUG lpspool start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/lpspool/lpspool.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/lpspool/lpspool.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	// Handle daemon mode (background)
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	// Initialize metrics (if enabled)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}
	sessionMetrics := metrics.NewSessionMetrics()

	// A nil launcher leaves committed jobs in the queue
	var launcher lpd.HelperLauncher
	if runner := helper.New(cfg.Helper.Command); runner != nil {
		launcher = runner
		logger.Info("Helper configured", "command", cfg.Helper.Command)
	} else {
		logger.Info("No helper configured, committed jobs stay in the queue")
	}

	adapter := lpdadapter.New(lpdadapter.Config{
		BindAddress:     cfg.Server.BindAddress,
		Port:            cfg.Server.Port,
		MaxConnections:  cfg.Server.MaxConnections,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		SpoolDir:        cfg.Spool.Dir,
		Helper:          launcher,
		MaxCommandBytes: cfg.Limits.MaxCommandSize.Int(),
		MaxControlBytes: cfg.Limits.MaxControlSize.Int64(),
	}, sessionMetrics)

	logger.Info("Spool configured", "dir", cfg.Spool.Dir,
		"max_command_size", cfg.Limits.MaxCommandSize,
		"max_control_size", cfg.Limits.MaxControlSize)

	// Observability HTTP server rides on the metrics flag
	if cfg.Metrics.Enabled {
		status := &daemonStatus{
			adapter:  adapter,
			spoolDir: cfg.Spool.Dir,
			started:  time.Now(),
		}
		apiServer := api.NewServer(api.ServerConfig{Port: cfg.Metrics.Port}, status, metrics.GetRegistry())
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				logger.Error("Metrics server error", "error", err)
			}
		}()
	}

	// Watch the config file so log level changes apply without a restart
	if path := resolveConfigPath(GetConfigFile()); path != "" {
		if err := watchConfig(ctx, path); err != nil {
			logger.Warn("Config watch unavailable", "path", path, "error", err)
		}
	}

	// Write PID file if specified
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- adapter.Serve(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for server to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// daemonStatus implements api.StatusReporter for the health endpoints.
type daemonStatus struct {
	adapter  *lpdadapter.Adapter
	spoolDir string
	started  time.Time
}

func (d *daemonStatus) Ready() error {
	if d.adapter.Addr() == "" {
		return fmt.Errorf("listener not started")
	}
	if _, err := os.Stat(d.spoolDir); err != nil {
		return fmt.Errorf("spool directory unavailable: %w", err)
	}
	return nil
}

func (d *daemonStatus) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"spool_dir":          d.spoolDir,
		"address":            d.adapter.Addr(),
		"active_connections": d.adapter.ConnCount.Load(),
		"started_at":         d.started.UTC().Format(time.RFC3339),
		"uptime":             time.Since(d.started).Round(time.Second).String(),
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// resolveConfigPath maps an empty --config flag to the default location,
// returning "" when no config file exists at all.
func resolveConfigPath(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return ""
}

// startDaemon starts the server as a background daemon process.
func startDaemon() error {
	stateDir := GetDefaultStateDir()

	// Create state directory if it doesn't exist
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Set default PID file if not specified
	pidPath := pidFile
	if pidPath == "" {
		pidPath = filepath.Join(stateDir, "lpspool.pid")
	}

	// Check if already running
	if _, err := os.Stat(pidPath); err == nil {
		pidData, err := os.ReadFile(pidPath)
		if err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("lpspool is already running (PID %d)\nUse 'lpspool stop' to stop the running instance", pid)
					}
				}
			}
		}
		// Stale PID file, remove it
		_ = os.Remove(pidPath)
	}

	// Set default log file if not specified
	logPath := logFile
	if logPath == "" {
		logPath = filepath.Join(stateDir, "lpspool.log")
	}

	// Get the executable path
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Build arguments for the daemon process
	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	// Create the daemon process
	cmd := exec.Command(executable, daemonArgs...)

	// Open log file for stdout/stderr
	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	// Start the daemon
	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	_ = logFileHandle.Close()

	fmt.Printf("lpspool started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'lpspool stop' to stop the server")
	fmt.Println("Use 'lpspool status' to check server status")

	return nil
}
