package lpd

// Sanitize strips every byte outside [A-Za-z0-9_-] from s, preserving the
// relative order of the survivors.
//
// Queue names and job file names arrive from the peer and are used as
// filesystem names, so this is the sole defense against path traversal:
// '/', '.', NUL and friends simply cannot survive. Sanitize is idempotent.
func Sanitize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '_', c == '-':
			out = append(out, c)
		}
	}
	return string(out)
}
