package bt9

import (
	"github.com/sirupsen/logrus"
)

// Option configures a Reader.
type Option func(*options)

type options struct {
	windowSize int
}

// WithWindowSize sets how many edge ids of the sequence list are buffered.
// It must be at least 2.
func WithWindowSize(n int) Option {
	return func(o *options) { o.windowSize = n }
}

// Reader holds a parsed BT9 trace: header and the node and edge tables fully
// in memory, the dynamic edge sequence streamed through a bounded window.
type Reader struct {
	src    *Source
	pc     *parseContext
	header Header
	nodes  *NodeTable
	edges  *EdgeTable
	window *sequenceWindow
}

// Open opens and parses the trace at path. Compressed traces are
// recognized by suffix.
func Open(path string, opts ...Option) (*Reader, error) {
	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(src, opts...)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return r, nil
}

// NewReader parses the header, node table and edge table from src and
// primes the sequence window. Any error leaves nothing usable behind.
func NewReader(src *Source, opts ...Option) (*Reader, error) {
	o := options{windowSize: DefaultWindowSize}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Reader{src: src, pc: newParseContext(src.Name())}
	var err error
	if r.header, err = readHeader(src, r.pc); err != nil {
		return nil, err
	}
	if r.nodes, err = readNodeTable(src, r.pc); err != nil {
		return nil, err
	}
	if r.edges, err = readEdgeTable(src, r.nodes, r.pc); err != nil {
		return nil, err
	}
	if r.window, err = newSequenceWindow(src, r.edges, r.pc, o.windowSize); err != nil {
		return nil, err
	}

	logrus.Debugf("%s: %d nodes, %d edges, sequence list at line %d",
		src.Name(), r.nodes.Count(), r.edges.Count(), src.LineNumber())
	return r, nil
}

func (r *Reader) Header() *Header { return &r.header }

func (r *Reader) Nodes() *NodeTable { return r.nodes }

func (r *Reader) Edges() *EdgeTable { return r.edges }

// Warnings lists the non-fatal defects seen so far, including those met
// while streaming the sequence list.
func (r *Reader) Warnings() []FormatWarning { return r.pc.warnings }

// WindowSize is the capacity of the sequence window.
func (r *Reader) WindowSize() int { return len(r.window.items) }

// WindowShifts counts how often the sequence window has been refilled.
func (r *Reader) WindowShifts() uint64 { return r.window.shifts }

// Close releases the trace stream.
func (r *Reader) Close() error { return r.src.Close() }
