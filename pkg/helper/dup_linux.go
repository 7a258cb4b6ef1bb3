//go:build linux

package helper

import "syscall"

// dupTo duplicates oldfd onto newfd. Linux uses dup3: dup2 is not
// available on every architecture (arm64 dropped it).
func dupTo(oldfd, newfd int) error {
	return syscall.Dup3(oldfd, newfd, 0)
}
