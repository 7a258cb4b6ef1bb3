package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for invalid or inconsistent values.
//
// Struct-level constraints come from the `validate` tags; cross-field rules
// are checked here explicitly.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			return fmt.Errorf("invalid configuration: %s", describeFieldErrors(invalid))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Limits.MaxCommandSize <= 0 {
		return fmt.Errorf("limits.max_command_size must be positive, got %s", cfg.Limits.MaxCommandSize)
	}
	if cfg.Limits.MaxControlSize <= 0 {
		return fmt.Errorf("limits.max_control_size must be positive, got %s", cfg.Limits.MaxControlSize)
	}

	// A helper command must at least name the program to run
	if len(cfg.Helper.Command) > 0 && strings.TrimSpace(cfg.Helper.Command[0]) == "" {
		return fmt.Errorf("helper.command must start with a program name")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Server.Port {
		return fmt.Errorf("metrics.port %d collides with server.port", cfg.Metrics.Port)
	}

	return nil
}

// describeFieldErrors renders validation failures with config-file field
// names rather than Go struct paths.
func describeFieldErrors(errs validator.ValidationErrors) string {
	var parts []string
	for _, fe := range errs {
		parts = append(parts, fmt.Sprintf("%s failed %q validation", configPath(fe.StructNamespace()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// configPath converts "Config.Server.Port" into "server.port".
func configPath(namespace string) string {
	path := strings.TrimPrefix(namespace, "Config.")

	var out []string
	for _, seg := range strings.Split(path, ".") {
		out = append(out, camelToSnake(seg))
	}
	return strings.Join(out, ".")
}

func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !endsUpper(s, i) {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// endsUpper reports whether position i continues an uppercase run, so
// acronym segments like "TCP" don't get split.
func endsUpper(s string, i int) bool {
	return i > 0 && s[i-1] >= 'A' && s[i-1] <= 'Z'
}
