package bt9

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Section markers and the sequence terminator of a BT9 trace.
const (
	magicToken            = "BT9_SPA_TRACE_FORMAT"
	nodeSectionMarker     = "BT9_NODES"
	edgeSectionMarker     = "BT9_EDGES"
	sequenceSectionMarker = "BT9_EDGE_SEQUENCE"
	sequenceEndToken      = "EOF"

	nodeKeyword = "NODE"
	edgeKeyword = "EDGE"

	absentField = "-"
)

// parseContext carries the mutable state shared by the phase parsers:
// the source position for diagnostics and the collected warnings.
type parseContext struct {
	name     string
	warnings []FormatWarning
}

func newParseContext(name string) *parseContext {
	return &parseContext{name: name}
}

// fieldError reports a malformed field. cause may add detail and is
// wrapped alongside ErrFormat.
func (pc *parseContext) fieldError(line int64, field, token string, cause error) *ParseError {
	err := ErrFormat
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrFormat, cause)
	}
	return &ParseError{Source: pc.name, Line: line, Field: field, Token: token, Err: err}
}

// errorf reports a structural problem. kind must wrap ErrFormat.
func (pc *parseContext) errorf(line int64, kind error, format string, args ...any) *ParseError {
	return &ParseError{
		Source: pc.name,
		Line:   line,
		Err:    fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
	}
}

func (pc *parseContext) warnf(line int64, format string, args ...any) {
	w := FormatWarning{Line: line, Msg: fmt.Sprintf(format, args...)}
	logrus.Warnf("%s: %s", pc.name, w)
	pc.warnings = append(pc.warnings, w)
}

// parseUint accepts decimal, 0x hex, 0 octal and 0b binary like the C
// converters that write these traces. Go-only literal forms (digit
// separators, 0o octal) are rejected.
func parseUint(token string, bits int) (uint64, error) {
	if token == "" || token[0] == '+' || token[0] == '-' {
		return 0, strconv.ErrSyntax
	}
	if strings.ContainsRune(token, '_') || strings.HasPrefix(token, "0o") || strings.HasPrefix(token, "0O") {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(token, 0, bits)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok {
			return 0, ne.Err
		}
		return 0, err
	}
	return v, nil
}

// optionalAddress parses an address field that may be "-".
func optionalAddress(token string) (addr uint64, valid bool, err error) {
	if token == absentField {
		return 0, false, nil
	}
	addr, err = parseUint(token, 64)
	return addr, err == nil, err
}

// keyValues walks "key: value" pairs after the fixed fields. A trailing key
// with no value is a format error.
func keyValues(l Line, fields []string, pc *parseContext, fn func(key, value string) error) error {
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			return pc.errorf(l.Number, ErrFormat, "missing value for %s", fields[i])
		}
		if err := fn(fields[i], fields[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// valueAfter returns the trimmed text following the first occurrence of key.
func valueAfter(text, key string) string {
	i := strings.Index(text, key)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i+len(key):])
}
