package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so spool activity
// can be aggregated and queried by session, queue, and job file.
const (
	// Session & connection
	KeySessionID  = "session_id"  // Unique ID assigned to one peer session
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port

	// Protocol
	KeyCommand = "command"  // Command byte received from the peer (hex)
	KeySubcmd  = "subcmd"   // Subcommand name: control, data
	KeyMode    = "mode"     // Queue mode: sink, spooling
	KeyPhase   = "phase"    // Session phase: open, transfer, helper

	// Spool
	KeyQueue    = "queue"     // Sanitized queue name
	KeyJobFile  = "job_file"  // Stored job file name (control or data)
	KeyDataFile = "data_file" // Stored data file name handed to the helper
	KeyPath     = "path"      // Filesystem path

	// Transfer accounting
	KeyExpected     = "expected"      // Declared transfer length in bytes
	KeyBytesWritten = "bytes_written" // Actual bytes moved

	// Helper
	KeyHelper   = "helper"    // Helper command line
	KeyExitCode = "exit_code" // Helper exit code

	// Operation metadata
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorKind  = "error_kind"  // Protocol error classification
)

// Err returns a slog.Attr for an error, handling nil gracefully
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Hex returns a slog.Attr with the value formatted as 0x-prefixed hex.
// Used for raw command bytes in protocol diagnostics.
func Hex(key string, v byte) slog.Attr {
	return slog.String(key, fmt.Sprintf("0x%02x", v))
}
