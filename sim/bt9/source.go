package bt9

import (
	"bufio"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const commentMarker = '#'

// Line is one physical line of a trace, split at the first comment marker.
type Line struct {
	Number     int64
	Text       string // content before the comment marker
	Comment    string // content after the comment marker
	HasComment bool
}

// Fields splits the non-comment part of the line on whitespace.
func (l Line) Fields() []string { return strings.Fields(l.Text) }

// Source is a forward-only line reader over a (possibly compressed) trace.
type Source struct {
	name    string
	r       *bufio.Reader
	closers []io.Closer
	line    int64
}

// OpenSource opens path for reading. Paths ending in .gz, .zst or .bz2 are
// decompressed on the fly; anything else is read as plain text.
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening trace: %w", ErrIO, err)
	}
	src := &Source{name: path, closers: []io.Closer{f}}

	var r io.Reader = f
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: gzip header of %s: %w", ErrIO, path, err)
		}
		src.closers = append(src.closers, zr)
		r = zr
	case strings.HasSuffix(path, ".zst"), strings.HasSuffix(path, ".zstd"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: zstd stream of %s: %w", ErrIO, path, err)
		}
		rc := dec.IOReadCloser()
		src.closers = append(src.closers, rc)
		r = rc
	case strings.HasSuffix(path, ".bz2"):
		r = bzip2.NewReader(f)
	}
	src.r = bufio.NewReaderSize(r, 1<<16)
	return src, nil
}

// NewSource reads an already-open stream. name is used in diagnostics only.
func NewSource(name string, r io.Reader) *Source {
	return &Source{name: name, r: bufio.NewReaderSize(r, 1<<16)}
}

// Name returns the trace name used in diagnostics.
func (s *Source) Name() string { return s.name }

// LineNumber returns the number of the last line returned by NextLine.
func (s *Source) LineNumber() int64 { return s.line }

// NextLine returns the next line, or io.EOF once the stream is exhausted.
func (s *Source) NextLine() (Line, error) {
	text, err := s.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return Line{}, fmt.Errorf("%w: reading %s after line %d: %w", ErrIO, s.name, s.line, err)
		}
		if text == "" {
			return Line{}, io.EOF
		}
	}
	s.line++
	text = strings.TrimRight(text, "\r\n")

	l := Line{Number: s.line, Text: text}
	if i := strings.IndexByte(text, commentMarker); i >= 0 {
		l.Text = text[:i]
		l.Comment = text[i+1:]
		l.HasComment = true
	}
	return l, nil
}

// Close releases any decompressor and then the underlying file.
func (s *Source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
