package lpd

import (
	"errors"
	"fmt"
)

// ErrorKind classifies terminal session errors for logging and metrics.
type ErrorKind string

const (
	KindUnsupportedCommand  ErrorKind = "unsupported_command"
	KindEmptyQueueName      ErrorKind = "empty_queue_name"
	KindQueueUnavailable    ErrorKind = "queue_unavailable"
	KindDuplicateSubcommand ErrorKind = "duplicate_subcommand"
	KindBadFilename         ErrorKind = "bad_filename"
	KindBadLength           ErrorKind = "bad_length"
	KindOversizedControl    ErrorKind = "oversized_control"
	KindCreateFailed        ErrorKind = "create_failed"
	KindLengthMismatch      ErrorKind = "length_mismatch"
	KindBadAck              ErrorKind = "bad_ack"
	KindPrematureEOF        ErrorKind = "premature_eof"
	KindHelperFailed        ErrorKind = "helper_failed"
	KindIOError             ErrorKind = "io_error"
)

// ProtocolError is a terminal session error caused by the peer. Its Reason
// is the short diagnostic written back over the connection; the server has
// no other channel to the peer in this protocol.
//
// Errors whose diagnostic must not be sent (a peer that fails the
// acknowledgement handshake is plainly not going to parse an error line)
// set Quiet.
type ProtocolError struct {
	Kind   ErrorKind
	Reason string
	Quiet  bool
}

func (e *ProtocolError) Error() string {
	return e.Reason
}

// errUnsupportedCommand builds the diagnostic for an unknown command byte.
func errUnsupportedCommand(b byte) *ProtocolError {
	return &ProtocolError{
		Kind:   KindUnsupportedCommand,
		Reason: fmt.Sprintf("Command %02x is not supported", b),
	}
}

// errLengthMismatch reports a short or overlong transfer with both counts.
func errLengthMismatch(expected, actual int64) *ProtocolError {
	return &ProtocolError{
		Kind:   KindLengthMismatch,
		Reason: fmt.Sprintf("Expected %d but got %d bytes", expected, actual),
	}
}

var (
	errDuplicateSubcommand = &ProtocolError{Kind: KindDuplicateSubcommand, Reason: "Duplicated subcommand"}
	errBadFilename         = &ProtocolError{Kind: KindBadFilename, Reason: "No or bad filename"}
	errBadLength           = &ProtocolError{Kind: KindBadLength, Reason: "Bad length"}
	errOversizedControl    = &ProtocolError{Kind: KindOversizedControl, Reason: "File is too big"}
	errBadAck              = &ProtocolError{Kind: KindBadAck, Reason: "transfer not acknowledged", Quiet: true}
	errPrematureEOF        = &ProtocolError{Kind: KindPrematureEOF, Reason: "connection closed before job was complete", Quiet: true}
	errEmptyQueueName      = &ProtocolError{Kind: KindEmptyQueueName, Reason: "queue name sanitized to nothing", Quiet: true}
)

// Classify returns the ErrorKind for a session error, KindIOError for
// anything that is not a ProtocolError, and "" for nil.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindIOError
}
