package bt9

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// DefaultWindowSize is the number of edge ids buffered from the sequence list.
const DefaultWindowSize = 1024

// sequenceWindow streams the dynamic edge-id list through a fixed circular
// buffer. Global positions [start, end) are resident; slot = pos % capacity.
//
// The window fills to capacity at construction. When a cursor reaches end
// and the stream is not exhausted, start advances by half the capacity and
// the buffer is topped up again, so memory stays O(capacity) for any trace
// length.
type sequenceWindow struct {
	src   *Source
	pc    *parseContext
	edges *EdgeTable

	items []uint32
	start uint64
	end   uint64
	eof   bool

	shifts uint64
}

func newSequenceWindow(src *Source, edges *EdgeTable, pc *parseContext, capacity int) (*sequenceWindow, error) {
	if capacity < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrWindowSize, capacity)
	}
	w := &sequenceWindow{
		src:   src,
		pc:    pc,
		edges: edges,
		items: make([]uint32, capacity),
	}
	if err := w.fill(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *sequenceWindow) capacity() uint64 { return uint64(len(w.items)) }

// fill reads entries until the buffer holds capacity items past start or
// the end token is seen.
func (w *sequenceWindow) fill() error {
	for !w.eof && w.end < w.start+w.capacity() {
		id, ok, err := w.nextEntry()
		if err != nil {
			return err
		}
		if !ok {
			w.eof = true
			logrus.Debugf("%s: edge sequence ends after %d entries", w.pc.name, w.end)
			break
		}
		w.items[w.end%w.capacity()] = id
		w.end++
	}
	return nil
}

// shift slides the window forward by half its capacity and refills it.
func (w *sequenceWindow) shift() error {
	w.start += w.capacity() / 2
	w.shifts++
	return w.fill()
}

// nextEntry returns the next edge id of the sequence list, ok=false at the
// end token or at end of stream.
func (w *sequenceWindow) nextEntry() (uint32, bool, error) {
	for {
		l, err := w.src.NextLine()
		if errors.Is(err, io.EOF) {
			w.pc.warnf(w.src.LineNumber(), "edge sequence list is not terminated by %s", sequenceEndToken)
			return 0, false, nil
		}
		if err != nil {
			return 0, false, err
		}
		fields := l.Fields()
		if len(fields) == 0 {
			continue
		}
		token := fields[0]
		if token == sequenceEndToken {
			return 0, false, nil
		}
		v, err := parseUint(token, 32)
		if err != nil {
			return 0, false, w.pc.fieldError(l.Number, "edge id in edge sequence list", token, err)
		}
		if !w.edges.Has(uint32(v)) {
			return 0, false, w.pc.fieldError(l.Number, "edge id in edge sequence list", token, ErrInvalidIndex)
		}
		return uint32(v), true, nil
	}
}

// advance moves pos to the next position, shifting the window when pos
// walks off its end. It returns false once the sequence is exhausted.
func (w *sequenceWindow) advance(pos *uint64) (bool, error) {
	*pos++
	if *pos < w.end {
		return true, nil
	}
	if w.eof {
		return false, nil
	}
	if err := w.shift(); err != nil {
		return false, err
	}
	return *pos < w.end, nil
}

// at returns the edge id at global position pos.
func (w *sequenceWindow) at(pos uint64) (uint32, error) {
	if pos < w.start {
		return 0, fmt.Errorf("%w: position %d, window starts at %d", ErrWindowUnderflow, pos, w.start)
	}
	if pos >= w.end {
		return 0, fmt.Errorf("%w: position %d, window ends at %d", ErrWindowOverflow, pos, w.end)
	}
	return w.items[pos%w.capacity()], nil
}
