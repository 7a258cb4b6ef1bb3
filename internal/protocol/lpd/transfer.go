package lpd

import (
	"errors"
	"io"
)

// copyExact copies exactly want bytes from src to dst and returns the
// number of bytes actually moved. A short source is reported through the
// returned count, not an error, so the caller can include both figures in
// the diagnostic sent to the peer.
func copyExact(dst io.Writer, src io.Reader, want int64) (int64, error) {
	n, err := io.CopyN(dst, src, want)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return n, nil
		}
		return n, err
	}
	return n, nil
}

// readAck consumes the single acknowledgement byte the peer sends after a
// file's payload. Anything other than exactly one zero byte fails the
// transfer.
func readAck(r io.Reader) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return errBadAck
	}
	if b[0] != 0 {
		return errBadAck
	}
	return nil
}

// writeReady emits the single zero byte that tells the peer the server is
// ready for its next input.
func writeReady(w io.Writer) error {
	_, err := w.Write([]byte{0})
	return err
}
