// Package lpd implements the session side of the line-printer-daemon
// "receive job" subprotocol (RFC 1179 section 5, as spoken by lpr).
//
// One Session processes one peer connection start to finish: it reads the
// leading "receive job" command, resolves the named queue into sink or
// spooling mode, receives the job's control and data files with byte-exact
// accounting, and on completion hands the committed job to a configured
// print helper. Any protocol violation is terminal for the session and
// guarantees removal of partially written job files.
package lpd

// Protocol command bytes. The same 0x02 byte selects "receive job" as the
// first command of a session and "receive control file" as a subcommand.
const (
	cmdReceiveJob byte = 0x02

	subControlFile byte = 0x02
	subDataFile    byte = 0x03
)

// Default input bounds. Both can be raised or lowered through Config.
const (
	// DefaultMaxCommandBytes caps one command line read from the peer.
	// Far more than any legitimate lpr command needs.
	DefaultMaxCommandBytes = 4 * 1024

	// DefaultMaxControlBytes caps the declared control file length.
	// The control file is read back and parsed after the transfer, so it
	// must stay small. Data files carry no such cap.
	DefaultMaxControlBytes = 16 * 1024
)

// FileKind identifies which of the two job files a subcommand carries.
type FileKind int

const (
	ControlFile FileKind = iota
	DataFile
)

func (k FileKind) String() string {
	if k == ControlFile {
		return "control"
	}
	return "data"
}

// FileSet tracks which job files a session has received. It replaces the
// counter arithmetic historical lpd implementations used for the same
// bookkeeping with explicit membership.
type FileSet uint8

const (
	// ControlReceived is set once the control file is committed.
	ControlReceived FileSet = 1 << iota
	// DataReceived is set once the data file is committed.
	DataReceived
)

// bit maps a FileKind to its FileSet member.
func (k FileKind) bit() FileSet {
	if k == ControlFile {
		return ControlReceived
	}
	return DataReceived
}

// Has reports whether all members of f are present in s.
func (s FileSet) Has(f FileSet) bool {
	return s&f == f
}

// Add inserts the members of f into s.
func (s *FileSet) Add(f FileSet) {
	*s |= f
}

// Complete reports whether both job files have been received.
func (s FileSet) Complete() bool {
	return s.Has(ControlReceived | DataReceived)
}
