// Package helper launches the external print program that consumes a
// committed job. The helper receives the job's environment bindings as an
// overlay on the inherited environment and runs with the queue directory
// as its working directory; printing the data file and removing it
// afterwards is entirely its business.
package helper

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/marmos91/lpspool/internal/logger"
)

// Runner implements lpd.HelperLauncher by spawning the configured command.
type Runner struct {
	// Command is the helper program followed by its arguments.
	Command []string

	// ReplaceProcess makes Launch replace the current process image
	// instead of spawning a child. This is the historical inetd-style
	// behavior used by stdio sessions, where the server process has
	// nothing left to do once the helper takes over. It must never be
	// set in the TCP server, which keeps serving other connections.
	ReplaceProcess bool
}

// New builds a Runner for the given command line. Returns nil for an empty
// command: callers treat a nil launcher as "no helper configured, leave
// committed jobs in the queue".
func New(command []string) *Runner {
	if len(command) == 0 {
		return nil
	}
	return &Runner{Command: command}
}

// Launch starts the helper in queueDir with env layered over the inherited
// environment. The helper is expected to be quiet: its stdio is pointed at
// /dev/null, never at the peer connection.
//
// In spawn mode the child is reaped in the background and its exit status
// logged; the session does not wait for printing to finish. In
// ReplaceProcess mode Launch only returns on exec failure.
func (r *Runner) Launch(ctx context.Context, queueDir, dataFile string, env []string) error {
	if r.ReplaceProcess {
		return r.execInPlace(queueDir, env)
	}

	// The job must print even though the session that received it is done:
	// the child deliberately outlives the session context.
	cmd := exec.CommandContext(context.WithoutCancel(ctx), r.Command[0], r.Command[1:]...)
	cmd.Dir = queueDir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = nil  // /dev/null
	cmd.Stdout = nil // /dev/null
	cmd.Stderr = nil // /dev/null

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start helper %s: %w", r.Command[0], err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warn("helper exited with error",
				logger.KeyHelper, r.Command[0],
				logger.KeyDataFile, dataFile,
				logger.KeyError, err.Error(),
			)
			return
		}
		logger.Debug("helper finished",
			logger.KeyHelper, r.Command[0],
			logger.KeyDataFile, dataFile,
		)
	}()

	return nil
}
