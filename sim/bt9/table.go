package bt9

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"
)

// table is a dense arena of records addressed by declared id. Slots whose id
// never appeared in the trace are absent.
type table[R any] struct {
	records []R
	present []bool
}

// Len is max(id)+1, the number of addressable slots including holes.
func (t *table[R]) Len() int { return len(t.records) }

// Has reports whether id names a record.
func (t *table[R]) Has(id uint32) bool {
	return int64(id) < int64(len(t.present)) && t.present[id]
}

// At returns the record with the given id.
func (t *table[R]) At(id uint32) (*R, error) {
	if !t.Has(id) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, id)
	}
	return &t.records[id], nil
}

// Count returns the number of present records.
func (t *table[R]) Count() int {
	n := 0
	for _, ok := range t.present {
		if ok {
			n++
		}
	}
	return n
}

// All yields present records in id order.
func (t *table[R]) All() iter.Seq2[uint32, *R] {
	return func(yield func(uint32, *R) bool) {
		for i := range t.records {
			if !t.present[i] {
				continue
			}
			if !yield(uint32(i), &t.records[i]) {
				return
			}
		}
	}
}

// Cursor returns a random-access cursor positioned at id 0.
func (t *table[R]) Cursor() *Cursor[R] {
	return &Cursor[R]{t: t}
}

// Cursor walks a table in either direction. Positions that hold no record
// are legal but fail on dereference with ErrInvalidIndex.
type Cursor[R any] struct {
	t   *table[R]
	pos int64
}

func (c *Cursor[R]) Next()           { c.pos++ }
func (c *Cursor[R]) Prev()           { c.pos-- }
func (c *Cursor[R]) Move(delta int)  { c.pos += int64(delta) }
func (c *Cursor[R]) Seek(id uint32)  { c.pos = int64(id) }
func (c *Cursor[R]) Position() int64 { return c.pos }

// InRange reports whether the cursor lies within [0, Len).
func (c *Cursor[R]) InRange() bool { return c.pos >= 0 && c.pos < int64(c.t.Len()) }

// Record dereferences the cursor.
func (c *Cursor[R]) Record() (*R, error) {
	if c.pos < 0 || c.pos > int64(^uint32(0)) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, c.pos)
	}
	return c.t.At(uint32(c.pos))
}

// NodeTable holds every node of a trace, addressable by node id.
type NodeTable struct {
	table[NodeRecord]
}

// Dump writes the node table in trace syntax, one line per node in id order.
func (t *NodeTable) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s\n#NODE %4s %20s %20s %16s %4s\n",
		nodeSectionMarker, "id", "virtual_address", "physical_address", "opcode", "size"); err != nil {
		return err
	}
	for _, n := range t.All() {
		if _, err := io.WriteString(w, nodeKeyword+" "); err != nil {
			return err
		}
		if err := n.dump(w); err != nil {
			return err
		}
	}
	return nil
}

// EdgeTable holds every edge of a trace, addressable by edge id.
type EdgeTable struct {
	table[EdgeRecord]
}

// Dump writes the edge table in trace syntax, one line per edge in id order.
func (t *EdgeTable) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s\n#EDGE %6s %6s %6s %8s %20s %20s %8s\n",
		edgeSectionMarker, "id", "src_id", "dest_id", "taken", "br_virt_target", "br_phy_target", "inst_cnt"); err != nil {
		return err
	}
	for _, e := range t.All() {
		if _, err := io.WriteString(w, edgeKeyword+" "); err != nil {
			return err
		}
		if err := e.dump(w); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
