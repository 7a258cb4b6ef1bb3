package lpd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/lpspool/internal/logger"
	"github.com/marmos91/lpspool/pkg/metrics"
	"github.com/marmos91/lpspool/pkg/spool"
)

// HelperLauncher starts the configured print helper for a completed job.
//
// env is an additive overlay of "KEY=value" bindings layered on top of the
// inherited environment; implementations must not mutate the process-wide
// environment. dataFile is the stored data file name relative to queueDir.
//
// Launch is the terminal action of a successful spooling session. An
// implementation may replace the current process image entirely (stdio
// mode), in which case it never returns.
type HelperLauncher interface {
	Launch(ctx context.Context, queueDir, dataFile string, env []string) error
}

// DataFileEnv is the binding through which the helper learns the actual
// stored data file name. The peer-supplied "l" directive also names the
// data file but is not to be trusted; this one is.
const DataFileEnv = "DATAFILE"

// Config carries the per-server knobs a Session needs.
type Config struct {
	// SpoolDir is the spool root containing the queues.
	SpoolDir string

	// Helper launches the print helper once both job files are committed.
	// nil leaves committed jobs in the queue directory for out-of-band
	// processing.
	Helper HelperLauncher

	// ClientAddr is the peer address, for logging only. May be empty.
	ClientAddr string

	// MaxCommandBytes bounds one command line. 0 means
	// DefaultMaxCommandBytes.
	MaxCommandBytes int

	// MaxControlBytes bounds the declared control file length. 0 means
	// DefaultMaxControlBytes.
	MaxControlBytes int64
}

// Session drives one peer connection through the receive-job subprotocol.
// It owns no goroutines and no shared state: one instance maps to exactly
// one connection's lifetime, so concurrent sessions interact only through
// the filesystem's exclusive-create guarantee.
type Session struct {
	in  io.Reader
	out io.Writer
	cfg Config

	id      string
	metrics metrics.SessionMetrics

	queue *spool.Queue
	files FileSet
	jobs  [2]*spool.JobFile // indexed by FileKind
}

// NewSession builds a session over the given streams. m may be nil.
func NewSession(in io.Reader, out io.Writer, cfg Config, m metrics.SessionMetrics) *Session {
	if cfg.MaxCommandBytes <= 0 {
		cfg.MaxCommandBytes = DefaultMaxCommandBytes
	}
	if cfg.MaxControlBytes <= 0 {
		cfg.MaxControlBytes = DefaultMaxControlBytes
	}

	return &Session{
		in:      in,
		out:     out,
		cfg:     cfg,
		id:      uuid.NewString(),
		metrics: m,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Run processes the connection until clean end-of-stream, helper handoff,
// or a terminal error. On any error every job file this session created is
// removed and, where the peer can still be expected to parse it, a short
// diagnostic line is written back over the connection.
func (s *Session) Run(ctx context.Context) error {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordSessionStart()
	}

	lc := logger.NewLogContext(s.id, s.cfg.ClientAddr)
	ctx = logger.WithContext(ctx, lc)

	outcome, err := s.run(ctx, lc)
	if err != nil {
		s.discardJobs()
		s.reportToPeer(err)
		metrics.ObserveProtocolError(s.metrics, string(Classify(err)))
		logger.ErrorCtx(ctx, "session failed",
			logger.KeyErrorKind, string(Classify(err)),
			logger.KeyError, err.Error(),
		)
		outcome = "error"
	}

	mode := "unresolved"
	if s.queue != nil {
		mode = s.queue.Mode().String()
	}
	metrics.ObserveSessionEnd(s.metrics, mode, time.Since(start), outcome)

	return err
}

// run is the session loop proper, split out so Run can centralize cleanup
// and accounting on every exit path.
func (s *Session) run(ctx context.Context, lc *logger.LogContext) (string, error) {
	line, err := readCommand(s.in, s.cfg.MaxCommandBytes)
	if err != nil {
		return "", fmt.Errorf("read job command: %w", err)
	}

	rawQueue, err := parseJobCommand(line)
	if err != nil {
		return "", err
	}

	queueName := Sanitize(rawQueue)
	if queueName == "" {
		return "", errEmptyQueueName
	}

	queue, err := spool.Open(s.cfg.SpoolDir, queueName)
	if err != nil {
		return "", &ProtocolError{Kind: KindQueueUnavailable, Reason: "cannot open queue", Quiet: true}
	}
	s.queue = queue
	lc.Queue = queue.Name()
	lc.Mode = queue.Mode().String()

	logger.InfoCtx(ctx, "job session opened")

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if err := writeReady(s.out); err != nil {
			return "", fmt.Errorf("signal ready: %w", err)
		}

		line, err := readCommand(s.in, s.cfg.MaxCommandBytes)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return s.finishOnEOF(ctx)
			}
			return "", fmt.Errorf("read subcommand: %w", err)
		}

		sub, err := parseSubcommand(line)
		if err != nil {
			return "", err
		}
		if s.files.Has(sub.Kind.bit()) {
			return "", errDuplicateSubcommand
		}
		if sub.Kind == ControlFile && sub.Length > s.cfg.MaxControlBytes {
			return "", errOversizedControl
		}

		if err := s.receiveFile(ctx, sub); err != nil {
			return "", err
		}
		s.files.Add(sub.Kind.bit())

		if s.queue.Mode() == spool.ModeSpooling && s.files.Complete() {
			if s.metrics != nil {
				s.metrics.RecordJobCommitted(s.queue.Name())
			}
			logger.InfoCtx(ctx, "job committed",
				logger.KeyDataFile, s.jobs[DataFile].Name(),
			)
			if s.cfg.Helper != nil {
				if err := s.launchHelper(ctx); err != nil {
					return "", err
				}
				return "helper", nil
			}
		}
	}
}

// finishOnEOF decides whether a closed input stream ends the session
// cleanly. An incomplete spooled job at EOF is an error: it must not be
// left behind for the helper. Everything else is the protocol's one
// ordinary ending.
func (s *Session) finishOnEOF(ctx context.Context) (string, error) {
	if s.queue.Mode() == spool.ModeSpooling && !s.files.Complete() {
		return "", errPrematureEOF
	}
	logger.InfoCtx(ctx, "session finished")
	return "ok", nil
}

// receiveFile moves exactly sub.Length payload bytes off the stream into
// the right destination for the queue mode, then verifies the peer's
// acknowledgement byte.
//
// In spooling mode the destination is a fresh exclusively-created job
// file, registered for cleanup before the first byte is copied. In sink
// mode a data payload appends to the queue target and a control payload is
// drained and discarded; the transfer still happens so the protocol stays
// in sync.
func (s *Session) receiveFile(ctx context.Context, sub *subcommand) error {
	var dst io.Writer

	var job *spool.JobFile
	var sink *os.File

	switch {
	case s.queue.Mode() == spool.ModeSpooling:
		name := Sanitize(sub.Name)
		if name == "" {
			return errBadFilename
		}
		created, err := s.queue.CreateJobFile(name)
		if err != nil {
			return &ProtocolError{
				Kind:   KindCreateFailed,
				Reason: fmt.Sprintf("Cannot create %s", name),
			}
		}
		s.jobs[sub.Kind] = created
		job = created
		dst = created

	case sub.Kind == DataFile:
		opened, err := s.queue.OpenSink()
		if err != nil {
			return &ProtocolError{Kind: KindQueueUnavailable, Reason: "Cannot open queue for writing"}
		}
		sink = opened
		dst = opened

	default:
		dst = io.Discard
	}

	moved, err := copyExact(dst, s.in, sub.Length)
	if sink != nil {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("copy payload: %w", err)
	}
	if moved != sub.Length {
		return errLengthMismatch(sub.Length, moved)
	}

	if err := readAck(s.in); err != nil {
		return err
	}

	if job != nil {
		if err := job.Commit(); err != nil {
			return err
		}
	}

	metrics.ObserveFileReceived(s.metrics, sub.Kind.String(), s.queue.Mode().String(), uint64(moved))
	logger.DebugCtx(ctx, "file received",
		logger.KeySubcmd, sub.Kind.String(),
		logger.KeyBytesWritten, moved,
	)

	return nil
}

// launchHelper is the terminal action of a completed spooling session: it
// signals the peer one last time, turns the control file into environment
// bindings, deletes it, and hands the data file to the helper.
func (s *Session) launchHelper(ctx context.Context) error {
	ctrl := s.jobs[ControlFile]
	data := s.jobs[DataFile]

	if err := writeReady(s.out); err != nil {
		return fmt.Errorf("signal ready: %w", err)
	}

	content, err := os.ReadFile(ctrl.Path())
	if err != nil {
		return fmt.Errorf("read back control file: %w", err)
	}
	// Parsed once; it must not accumulate in the queue.
	os.Remove(ctrl.Path())

	bindings := ParseControl(content)
	env := make([]string, 0, len(bindings)+1)
	env = append(env, DataFileEnv+"="+data.Name())
	for _, b := range bindings {
		env = append(env, b.Name+"="+b.Value)
	}

	if s.metrics != nil {
		s.metrics.RecordHelperLaunched()
	}
	logger.InfoCtx(ctx, "launching helper",
		logger.KeyDataFile, data.Name(),
	)

	if err := s.cfg.Helper.Launch(ctx, s.queue.Dir(), data.Name(), env); err != nil {
		return &ProtocolError{Kind: KindHelperFailed, Reason: "helper failed to start", Quiet: true}
	}
	return nil
}

// discardJobs removes every job file this session created. Called on all
// error paths so neither a partial nor an unprocessable job outlives its
// session.
func (s *Session) discardJobs() {
	for _, j := range s.jobs {
		if j != nil {
			j.Discard()
		}
	}
}

// reportToPeer writes the diagnostic line for peer-caused errors. The
// connection doubles as the only error channel the protocol has; write
// failures here are irrelevant because the session is over either way.
func (s *Session) reportToPeer(err error) {
	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.Quiet {
		return
	}
	fmt.Fprintf(s.out, "%s\n", perr.Reason)
}
