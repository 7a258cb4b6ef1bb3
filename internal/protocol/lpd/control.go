package lpd

import "bytes"

// Binding is one environment binding extracted from a control file
// directive line.
type Binding struct {
	// Name is the single-letter directive key ("H", "P", "J", ...).
	Name string
	// Value is the remainder of the line, verbatim.
	Value string
}

// ParseControl scans control file content into environment bindings.
//
// A directive line is <letter><value>'\n': the leading ASCII letter becomes
// the binding name and the rest of the line its value. Scanning stops at
// the first line that does not start with a letter, and a trailing line
// without a terminator is ignored; well-formed control files from lpr end
// every line with '\n'.
//
// Typical bindings: H (submitting host), P (user), C (class), J (job
// name), L (print banner), M (mail on error), l (peer's idea of the data
// file name, unreliable).
func ParseControl(data []byte) []Binding {
	var bindings []Binding

	for len(data) > 0 {
		if !isAlpha(data[0]) {
			break
		}
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			break
		}
		bindings = append(bindings, Binding{
			Name:  string(data[0]),
			Value: string(data[1:nl]),
		})
		data = data[nl+1:]
	}

	return bindings
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
