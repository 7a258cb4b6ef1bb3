package lpd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readCommand reads one newline-terminated command line from r, capped at
// max bytes, and returns it without the terminator.
//
// The reader is deliberately unbuffered: raw file bytes follow each
// subcommand on the same stream, so reading ahead of the terminator would
// swallow payload. Command lines are tiny; one read syscall per byte is
// acceptable here.
//
// Returns io.EOF with an empty line when the stream ends before any byte
// is read. A stream that ends mid-line yields the partial line and no
// error, matching the lenient behavior of historical servers. A line
// exceeding max aborts with an error.
func readCommand(r io.Reader, max int) ([]byte, error) {
	line := make([]byte, 0, 64)
	buf := make([]byte, 1)

	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				return line, nil
			}
			line = append(line, buf[0])
			if len(line) > max {
				return nil, fmt.Errorf("command line exceeds %d bytes", max)
			}
			continue
		}
		if err != nil {
			if err == io.EOF {
				if len(line) == 0 {
					return nil, io.EOF
				}
				return line, nil
			}
			return nil, err
		}
	}
}

// parseJobCommand validates the leading "receive job" command and returns
// the raw (unsanitized) queue name.
//
// Wire form: 0x02 <queue-name> '\n'.
func parseJobCommand(line []byte) (string, error) {
	if len(line) == 0 {
		return "", errUnsupportedCommand(0)
	}
	if line[0] != cmdReceiveJob {
		return "", errUnsupportedCommand(line[0])
	}
	return string(line[1:]), nil
}

// subcommand is one parsed "receive control file" or "receive data file"
// subcommand.
type subcommand struct {
	Kind   FileKind
	Length int64  // declared payload length in bytes
	Name   string // peer-supplied file name, unsanitized
}

// parseSubcommand validates a subcommand line.
//
// Wire form: (0x02|0x03) <length> ' ' <file-name> '\n'. Any other leading
// byte is unsupported; a missing name or an unparsable or negative length
// is a protocol error.
func parseSubcommand(line []byte) (*subcommand, error) {
	if len(line) == 0 {
		return nil, errUnsupportedCommand(0)
	}
	if line[0] != subControlFile && line[0] != subDataFile {
		return nil, errUnsupportedCommand(line[0])
	}

	kind := ControlFile
	if line[0] == subDataFile {
		kind = DataFile
	}

	rest := string(line[1:])
	lenStr, name, ok := strings.Cut(rest, " ")
	if !ok || name == "" {
		return nil, errBadFilename
	}

	length, err := strconv.ParseInt(lenStr, 10, 64)
	if err != nil || length < 0 {
		return nil, errBadLength
	}

	return &subcommand{Kind: kind, Length: length, Name: name}, nil
}
