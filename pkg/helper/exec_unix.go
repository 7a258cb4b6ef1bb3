//go:build !windows

package helper

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// execInPlace replaces the current process with the helper, after pointing
// stdio at /dev/null so the helper cannot scribble on the peer connection
// it inherited.
func (r *Runner) execInPlace(queueDir string, env []string) error {
	if err := os.Chdir(queueDir); err != nil {
		return fmt.Errorf("enter queue directory: %w", err)
	}
	if err := redirectStdioToDevNull(); err != nil {
		return err
	}

	path, err := exec.LookPath(r.Command[0])
	if err != nil {
		return fmt.Errorf("helper %s: %w", r.Command[0], err)
	}

	if err := syscall.Exec(path, r.Command, append(os.Environ(), env...)); err != nil {
		return fmt.Errorf("exec helper %s: %w", path, err)
	}
	return nil // unreachable
}

// redirectStdioToDevNull repoints fds 0-2 at /dev/null before the exec, so
// the helper starts with clean stdio no matter what the session was
// connected to.
func redirectStdioToDevNull() error {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	for fd := 0; fd <= 2; fd++ {
		if err := dupTo(int(devNull.Fd()), fd); err != nil {
			return fmt.Errorf("redirect fd %d: %w", fd, err)
		}
	}
	return nil
}
