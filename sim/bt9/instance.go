package bt9

import (
	"errors"
	"fmt"
	"iter"
)

type instanceState uint8

const (
	unresolved instanceState = iota
	resolved
)

// BranchInstance is one dynamic occurrence of a branch: the edge taken and
// its two endpoint nodes. It holds ids only; records are looked up in the
// owning reader's tables. An iterator reuses its instance, so the value is
// only meaningful until the next Advance.
type BranchInstance struct {
	reader *Reader
	state  instanceState

	EdgeID     uint32
	SrcNodeID  uint32
	DestNodeID uint32
}

// Valid reports whether the instance is resolved.
func (b *BranchInstance) Valid() bool { return b.state == resolved }

// Edge returns the traversed edge, or nil if the instance is not resolved.
func (b *BranchInstance) Edge() *EdgeRecord {
	if !b.Valid() {
		return nil
	}
	return &b.reader.edges.records[b.EdgeID]
}

// SourceNode returns the branch that was executed.
func (b *BranchInstance) SourceNode() *NodeRecord {
	if !b.Valid() {
		return nil
	}
	return &b.reader.nodes.records[b.SrcNodeID]
}

// DestNode returns the next branch reached along the edge.
func (b *BranchInstance) DestNode() *NodeRecord {
	if !b.Valid() {
		return nil
	}
	return &b.reader.nodes.records[b.DestNodeID]
}

func (b *BranchInstance) invalidate() { *b = BranchInstance{reader: b.reader} }

// resolve maps a sequence position to its instance. Tables are complete
// before the first position is readable, so this never parses.
func (r *Reader) resolve(pos uint64) (BranchInstance, error) {
	edgeID, err := r.window.at(pos)
	if err != nil {
		return BranchInstance{reader: r}, err
	}
	e := &r.edges.records[edgeID]
	return BranchInstance{
		reader:     r,
		state:      resolved,
		EdgeID:     edgeID,
		SrcNodeID:  e.SrcNodeID,
		DestNodeID: e.DestNodeID,
	}, nil
}

// Iterator is a forward-only, single-pass cursor over the dynamic edge
// sequence. At most one iterator may be advanced per reader: positions
// behind the window are gone and fail with ErrWindowUnderflow.
type Iterator struct {
	r    *Reader
	pos  uint64
	done bool
	inst BranchInstance
}

// Begin returns an iterator at the first entry of the sequence.
func (r *Reader) Begin() *Iterator {
	return &Iterator{
		r:    r,
		done: r.window.eof && r.window.end == 0,
		inst: BranchInstance{reader: r},
	}
}

// End returns the end-of-sequence iterator.
func (r *Reader) End() *Iterator {
	return &Iterator{r: r, done: true, inst: BranchInstance{reader: r}}
}

// Done reports whether the iterator is past the last entry.
func (it *Iterator) Done() bool { return it.done }

// Position is the global index into the sequence list.
func (it *Iterator) Position() uint64 { return it.pos }

// Advance moves to the next entry, refilling the window as needed. The
// previously returned instance is invalidated. Errors are malformed
// sequence entries met during the refill.
func (it *Iterator) Advance() error {
	it.inst.invalidate()
	if it.done {
		return nil
	}
	ok, err := it.r.window.advance(&it.pos)
	if err != nil {
		it.done = true
		return err
	}
	it.done = !ok
	return nil
}

// Instance resolves the current entry. ErrWindowUnderflow and
// ErrWindowOverflow mean the position is not resident; stop iterating.
func (it *Iterator) Instance() (*BranchInstance, error) {
	if it.done {
		return nil, fmt.Errorf("%w: iterator is at end of sequence", ErrWindowOverflow)
	}
	if it.inst.state == unresolved {
		inst, err := it.r.resolve(it.pos)
		if err != nil {
			return nil, err
		}
		it.inst = inst
	}
	return &it.inst, nil
}

// Equal holds for iterators of the same reader that are both at the end or
// both at the same position.
func (it *Iterator) Equal(other *Iterator) bool {
	if it.r != other.r {
		return false
	}
	if it.done || other.done {
		return it.done && other.done
	}
	return it.pos == other.pos
}

// BranchInstances walks the whole dynamic sequence. Iteration stops at the
// first error, which is yielded with a nil instance.
func (r *Reader) BranchInstances() iter.Seq2[*BranchInstance, error] {
	return func(yield func(*BranchInstance, error) bool) {
		for it := r.Begin(); !it.Done(); {
			inst, err := it.Instance()
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(inst, nil) {
				return
			}
			if err := it.Advance(); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// IsWindowError reports whether err means a sequence position is not
// resident. Such errors leave the reader usable.
func IsWindowError(err error) bool {
	return errors.Is(err, ErrWindowUnderflow) || errors.Is(err, ErrWindowOverflow)
}
