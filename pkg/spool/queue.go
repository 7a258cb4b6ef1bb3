// Package spool manages the on-disk layout a print session writes into: a
// spool root whose entries are queues, and the job files persisted under
// spooling queues.
//
// SPOOLDIR/
//
//	lp0      <- character device, regular file, or symlink: sink queue
//	spool1/  <- directory: spooling queue
//
// A sink queue receives job bytes by direct append. A spooling queue
// persists each job as a (control file, data file) pair named by the
// sanitized peer-chosen names, created exclusively so concurrent sessions
// can never silently overwrite one another.
package spool

import (
	"fmt"
	"os"
	"path/filepath"
)

// Mode tells how a queue consumes job bytes.
type Mode int

const (
	// ModeSink appends data directly to the queue target.
	ModeSink Mode = iota
	// ModeSpooling persists control and data files under the queue
	// directory for later helper processing.
	ModeSpooling
)

func (m Mode) String() string {
	if m == ModeSpooling {
		return "spooling"
	}
	return "sink"
}

// Queue is one resolved entry under the spool root. The zero value is not
// usable; obtain queues through Open.
type Queue struct {
	name string
	path string
	mode Mode
}

// Open resolves the queue named name under root. The name must already be
// sanitized; Open rejects anything else outright rather than trusting the
// caller.
//
// A directory resolves to a spooling queue. Everything else, including a
// path that does not exist yet, resolves to a sink: whether the target is
// actually writable only surfaces when the first data subcommand opens it,
// the same way chdir-probing implementations behave.
func Open(root, name string) (*Queue, error) {
	if name == "" {
		return nil, fmt.Errorf("empty queue name")
	}
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("queue name %q is not a bare name", name)
	}

	path := filepath.Join(root, name)

	mode := ModeSink
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		mode = ModeSpooling
	}

	return &Queue{name: name, path: path, mode: mode}, nil
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Mode returns whether the queue sinks or spools.
func (q *Queue) Mode() Mode { return q.mode }

// Dir returns the queue directory. Only meaningful in spooling mode.
func (q *Queue) Dir() string { return q.path }

// OpenSink opens the queue target for appending job bytes. Only valid in
// sink mode.
func (q *Queue) OpenSink() (*os.File, error) {
	if q.mode != ModeSink {
		return nil, fmt.Errorf("queue %s is a spool directory, not a sink", q.name)
	}
	f, err := os.OpenFile(q.path, os.O_RDWR|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("open sink %s: %w", q.name, err)
	}
	return f, nil
}

// CreateJobFile creates the named job file under a spooling queue with
// exclusive-create semantics. A job in flight has mode 0200 (write-only by
// owner); Commit relaxes it once the transfer is fully acknowledged. A
// name collision, including one with a concurrent session, fails here.
func (q *Queue) CreateJobFile(name string) (*JobFile, error) {
	if q.mode != ModeSpooling {
		return nil, fmt.Errorf("queue %s does not spool", q.name)
	}
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("bad job file name %q", name)
	}

	path := filepath.Join(q.path, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_EXCL, 0o200)
	if err != nil {
		return nil, fmt.Errorf("create job file %s: %w", name, err)
	}

	return &JobFile{f: f, name: name, path: path}, nil
}
