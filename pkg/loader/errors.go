package loader

import (
	"bytes"
	"fmt"
)

// MalformedInputError reports a dataset that violates the expected grammar
// or references out-of-range ids. No instance is returned with it.
type MalformedInputError struct {
	Line   int    // 1-based line number, 0 when not tied to a line
	Reason string // what was expected
	Err    error  // underlying cause, if any
}

func (e *MalformedInputError) Error() string {
	var b bytes.Buffer
	b.WriteString("malformed input")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

func malformed(line int, format string, args ...any) *MalformedInputError {
	return &MalformedInputError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
