package bt9

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is the kind of every construction-time parse failure.
	ErrFormat = errors.New("bt9 format error")
	// ErrIO reports a trace that cannot be opened or decompressed.
	ErrIO = errors.New("bt9 io error")

	// ErrInvalidReference reports an edge endpoint that is not in the node table.
	ErrInvalidReference = fmt.Errorf("%w: invalid reference", ErrFormat)
	// ErrDuplicate reports a node or edge whose structural key was already inserted.
	ErrDuplicate = fmt.Errorf("%w: duplicate record", ErrFormat)

	ErrInvalidToken   = errors.New("invalid token")
	ErrUndefinedValue = errors.New("undefined enum value")
	ErrInvalidIndex   = errors.New("invalid table index")

	// Window errors are recoverable: the caller should stop iterating.
	ErrWindowUnderflow = errors.New("edge sequence access window underflow")
	ErrWindowOverflow  = errors.New("edge sequence access window overflow")
	ErrWindowSize      = errors.New("edge sequence window size must be at least 2")
)

// ParseError locates a parse failure in the trace.
type ParseError struct {
	Source string // trace name
	Line   int64  // 1-based, 0 when not tied to a line
	Field  string // field being parsed, e.g. "node id"
	Token  string // offending text
	Err    error  // kind; always wraps ErrFormat
}

func (e *ParseError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %q is invalid (%v)", e.Field, e.Token, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: line:%d %s", e.Source, e.Line, msg)
	}
	return fmt.Sprintf("%s: %s", e.Source, msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FormatWarning is a non-fatal defect in the trace.
type FormatWarning struct {
	Line int64
	Msg  string
}

func (w FormatWarning) String() string {
	return fmt.Sprintf("line:%d %s", w.Line, w.Msg)
}
