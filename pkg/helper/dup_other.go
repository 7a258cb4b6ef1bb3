//go:build !linux && !windows

package helper

import "syscall"

// dupTo duplicates oldfd onto newfd.
func dupTo(oldfd, newfd int) error {
	return syscall.Dup2(oldfd, newfd)
}
