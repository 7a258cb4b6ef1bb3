package config

import (
	"strings"
	"time"

	"github.com/marmos91/lpspool/internal/bytesize"
)

// DefaultSpoolDir is the conventional spool root for line printer daemons.
const DefaultSpoolDir = "/var/spool/lpd"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit
// values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applySpoolDefaults(&cfg.Spool)
	applyLimitsDefaults(&cfg.Limits)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyServerDefaults sets TCP listener defaults.
func applyServerDefaults(cfg *ServerConfig) {
	// 515 is the well-known printer port
	if cfg.Port == 0 {
		cfg.Port = 515
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 64
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applySpoolDefaults sets spool directory defaults.
func applySpoolDefaults(cfg *SpoolConfig) {
	if cfg.Dir == "" {
		cfg.Dir = DefaultSpoolDir
	}
}

// applyLimitsDefaults sets protocol size limits.
func applyLimitsDefaults(cfg *LimitsConfig) {
	if cfg.MaxCommandSize == 0 {
		cfg.MaxCommandSize = 4 * bytesize.KiB
	}
	if cfg.MaxControlSize == 0 {
		cfg.MaxControlSize = 16 * bytesize.KiB
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a configuration populated entirely from defaults.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
