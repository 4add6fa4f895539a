package trace

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Level selects the branch log format.
type Level string

const (
	// LevelNone disables branch logging (zero overhead).
	LevelNone Level = "none"
	// LevelCSV writes one text row per branch.
	LevelCSV Level = "csv"
	// LevelBinary writes one fixed-size record per branch.
	LevelBinary Level = "binary"
)

// validLevels maps accepted level strings.
var validLevels = map[Level]bool{
	LevelNone:   true,
	LevelCSV:    true,
	LevelBinary: true,
	"":          true, // empty defaults to none
}

// IsValidLevel returns true if the given level string is a recognized level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// DefaultPath derives the log path from the trace path, as <trace>.csv or <trace>.dat.
func DefaultPath(tracePath string, level Level) string {
	switch level {
	case LevelCSV:
		return tracePath + ".csv"
	case LevelBinary:
		return tracePath + ".dat"
	}
	return ""
}

// Writer receives branch records in trace order.
type Writer interface {
	Write(r Record) error
	Close() error
}

// Create opens a branch log at path in the given format. LevelNone and ""
// return a Writer that discards everything.
func Create(path string, level Level) (Writer, error) {
	if level == LevelNone || level == "" {
		return discard{}, nil
	}
	if !IsValidLevel(string(level)) {
		return nil, fmt.Errorf("unknown branch log level %q", level)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating branch log: %w", err)
	}
	if level == LevelCSV {
		w, err := NewCSVWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return w, nil
	}
	return NewBinaryWriter(f), nil
}

type discard struct{}

func (discard) Write(Record) error { return nil }
func (discard) Close() error       { return nil }

// CSVHeader is the first row of a CSV branch log.
var CSVHeader = []string{"PC", "conditional", "branchTaken", "predDir", "opType", "branchTarget"}

// CSVWriter writes one row per branch. Unconditional rows leave predDir
// empty; unresolved rows leave everything but PC empty.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
	row    []string
}

// NewCSVWriter writes the header row and returns a writer that owns w.
func NewCSVWriter(w io.WriteCloser) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w), closer: w, row: make([]string, len(CSVHeader))}
	if err := cw.w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("writing branch log header: %w", err)
	}
	return cw, nil
}

func (c *CSVWriter) Write(r Record) error {
	clear(c.row)
	c.row[0] = strconv.FormatUint(r.PC, 10)
	if !r.Unresolved {
		c.row[1] = boolDigit(r.Conditional)
		c.row[2] = boolDigit(r.Taken)
		if r.Conditional {
			c.row[3] = boolDigit(r.Predicted)
		}
		c.row[4] = strconv.Itoa(int(r.OpType))
		c.row[5] = strconv.FormatUint(r.Target, 10)
	}
	return c.w.Write(c.row)
}

// Close flushes buffered rows and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.closer.Close()
		return fmt.Errorf("flushing branch log: %w", err)
	}
	return c.closer.Close()
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// BinaryRecordSize is the size of one binary branch log record.
const BinaryRecordSize = 24

// binaryRecord is the on-disk layout, little-endian, matching the
// naturally aligned C struct the original simulator writes.
type binaryRecord struct {
	Taken       uint8
	Predicted   uint8
	Conditional uint8
	_           uint8
	OpType      int32
	Target      uint64
	PC          uint64
}

// BinaryWriter writes fixed-size records of taken, predicted and conditional
// (one byte each), one pad byte, opType (int32), then target and PC (uint64
// each). Unresolved branches are not written.
type BinaryWriter struct {
	bw     *bufio.Writer
	closer io.Closer
}

// NewBinaryWriter returns a writer that owns w.
func NewBinaryWriter(w io.WriteCloser) *BinaryWriter {
	return &BinaryWriter{bw: bufio.NewWriter(w), closer: w}
}

func (b *BinaryWriter) Write(r Record) error {
	if r.Unresolved {
		return nil
	}
	rec := binaryRecord{
		Taken:       boolByte(r.Taken),
		Conditional: boolByte(r.Conditional),
		OpType:      int32(r.OpType),
		Target:      r.Target,
		PC:          r.PC,
	}
	if r.Conditional {
		rec.Predicted = boolByte(r.Predicted)
	}
	return binary.Write(b.bw, binary.LittleEndian, &rec)
}

// Close flushes buffered records and closes the underlying file.
func (b *BinaryWriter) Close() error {
	if err := b.bw.Flush(); err != nil {
		_ = b.closer.Close()
		return fmt.Errorf("flushing branch log: %w", err)
	}
	return b.closer.Close()
}

// ReadBinary decodes a binary branch log.
func ReadBinary(r io.Reader) ([]Record, error) {
	var out []Record
	br := bufio.NewReader(r)
	for {
		var rec binaryRecord
		err := binary.Read(br, binary.LittleEndian, &rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("reading branch log record %d: %w", len(out), err)
		}
		out = append(out, Record{
			PC:          rec.PC,
			Conditional: rec.Conditional != 0,
			Taken:       rec.Taken != 0,
			Predicted:   rec.Predicted != 0,
			OpType:      uint8(rec.OpType),
			Target:      rec.Target,
		})
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// BranchLog collects records in memory.
type BranchLog struct {
	Records []Record
}

// NewBranchLog creates a BranchLog ready for recording.
func NewBranchLog() *BranchLog {
	return &BranchLog{Records: make([]Record, 0)}
}

func (l *BranchLog) Write(r Record) error {
	l.Records = append(l.Records, r)
	return nil
}

func (l *BranchLog) Close() error { return nil }

// Tee forwards every record to all writers, stopping at the first error.
type Tee []Writer

func (t Tee) Write(r Record) error {
	for _, w := range t {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer and returns the first error.
func (t Tee) Close() error {
	var first error
	for _, w := range t {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
