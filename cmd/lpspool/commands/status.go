package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/lpspool/pkg/api"
)

var (
	statusOutput      string
	statusPidFile     string
	statusMetricsPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the lpspool server.

This command checks the PID file and, when the metrics server is enabled,
calls the readiness endpoint to report listener and spool health.

Examples:
  # Check status (uses default settings)
  lpspool status

  # Check status with custom metrics port
  lpspool status --metrics-port 9191

  # Output as JSON
  lpspool status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/lpspool/lpspool.pid)")
	statusCmd.Flags().IntVar(&statusMetricsPort, "metrics-port", 9090, "Metrics server port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json)")
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Running bool                   `json:"running"`
	PID     int                    `json:"pid,omitempty"`
	Message string                 `json:"message"`
	Healthy bool                   `json:"healthy"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := ServerStatus{
		Running: false,
		Healthy: false,
		Message: "Server is not running",
	}

	// Use default PID file if not specified
	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	// Check PID file first
	pidData, err := os.ReadFile(pidPath)
	if err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
		if err == nil {
			// On Unix, FindProcess always succeeds; signal 0 probes liveness
			process, err := os.FindProcess(pid)
			if err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					status.Running = true
					status.PID = pid
					status.Message = "Server process is running"
				}
			}
		}
	}

	// Check readiness endpoint (works for both daemon and foreground mode)
	readyURL := fmt.Sprintf("http://localhost:%d/health/ready", statusMetricsPort)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(readyURL)
	if err == nil {
		defer func() { _ = resp.Body.Close() }()

		var ready api.Response
		if err := json.NewDecoder(resp.Body).Decode(&ready); err == nil {
			status.Running = true
			status.Healthy = ready.Status == "healthy"
			if details, ok := ready.Data.(map[string]interface{}); ok {
				status.Details = details
			}
			if status.Healthy {
				status.Message = "Server is running and accepting jobs"
			} else {
				status.Message = fmt.Sprintf("Server is running but not ready: %s", ready.Error)
			}
		} else {
			status.Running = true
			status.Message = "Server is running but health response invalid"
		}
	} else if status.Running {
		// PID file says running but the readiness probe is unreachable;
		// the metrics server may simply be disabled
		status.Message = "Server process exists (readiness endpoint unreachable)"
	}

	if statusOutput == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	}

	printStatusTable(status)
	return nil
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("lpspool Server Status")
	fmt.Println("=====================")
	fmt.Println()

	if status.Running {
		if status.Healthy {
			fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:     \033[33m● Running (not ready)\033[0m\n")
		}
		if status.PID != 0 {
			fmt.Printf("  PID:        %d\n", status.PID)
		}
		if addr, ok := status.Details["address"].(string); ok && addr != "" {
			fmt.Printf("  Address:    %s\n", addr)
		}
		if dir, ok := status.Details["spool_dir"].(string); ok {
			fmt.Printf("  Spool dir:  %s\n", dir)
		}
		if uptime, ok := status.Details["uptime"].(string); ok {
			fmt.Printf("  Uptime:     %s\n", uptime)
		}
	} else {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
	}

	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
