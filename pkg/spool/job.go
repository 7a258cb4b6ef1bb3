package spool

import (
	"fmt"
	"os"
)

// JobFile is one job file in flight under a spooling queue. It starts
// write-only (mode 0200) and must end in exactly one of two states:
// committed (readable, left for the helper) or discarded (removed). A
// session that errors out discards every job file it created, so no
// half-written job is ever visible to a helper.
type JobFile struct {
	f         *os.File
	name      string
	path      string
	committed bool
}

// Name returns the stored file name (base name, as the helper sees it).
func (j *JobFile) Name() string { return j.name }

// Path returns the full filesystem path.
func (j *JobFile) Path() string { return j.path }

// Write appends payload bytes to the in-flight file.
func (j *JobFile) Write(p []byte) (int, error) {
	return j.f.Write(p)
}

// Commit marks the file fully received: relaxes the mode to 0600 and
// closes it. After Commit the file survives Discard, so cleanup of a
// later session error still removes it only through DiscardAll-style
// explicit deletion by the caller.
func (j *JobFile) Commit() error {
	if err := j.f.Chmod(0o600); err != nil {
		j.f.Close()
		return fmt.Errorf("commit %s: %w", j.name, err)
	}
	if err := j.f.Close(); err != nil {
		return fmt.Errorf("commit %s: %w", j.name, err)
	}
	j.committed = true
	return nil
}

// Discard closes and removes the file. Safe to call more than once and
// after Commit; a session that fails after committing one file uses this
// to take the whole job back out of the queue.
func (j *JobFile) Discard() {
	if j.f != nil {
		j.f.Close()
		j.f = nil
	}
	os.Remove(j.path)
	j.committed = false
}

// Committed reports whether Commit succeeded.
func (j *JobFile) Committed() bool { return j.committed }
