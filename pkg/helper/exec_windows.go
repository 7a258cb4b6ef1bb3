//go:build windows

package helper

import "errors"

// execInPlace is a Unix process model; stdio sessions on Windows must run
// the helper as a child instead.
func (r *Runner) execInPlace(queueDir string, env []string) error {
	return errors.New("replacing the process image is not supported on Windows")
}
