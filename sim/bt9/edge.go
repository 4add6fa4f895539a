package bt9

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// dummySinkTarget replaces the target half of the dedup key for edges that
// end in a dummy node.
const dummySinkTarget = math.MaxUint64

const edgeFixedFields = 7

// EdgeRecord is one static control-flow outcome between two nodes.
type EdgeRecord struct {
	ID                        uint32
	SrcNodeID                 uint32
	DestNodeID                uint32
	IsTakenPath               bool
	VirtualTarget             uint64
	PhysicalTarget            uint64
	PhysicalTargetValid       bool
	NonBranchInstructionCount uint64
	ObservedTraverseCount     uint64
	Overflow                  map[string]string
}

// Field returns the value of an unrecognized key such as "foo:".
func (e *EdgeRecord) Field(key string) (string, bool) {
	v, ok := e.Overflow[key]
	return v, ok
}

type edgeKey struct {
	srcAddr uint64
	target  uint64
}

func (e *EdgeRecord) dump(w io.Writer) error {
	taken := "N"
	if e.IsTakenPath {
		taken = "T"
	}
	phy := absentField
	if e.PhysicalTargetValid {
		phy = fmt.Sprintf("%#x", e.PhysicalTarget)
	}
	_, err := fmt.Fprintf(w, "%6d %6d %6d %8s %20s %20s %8d \ttraverse_cnt: %8d  ",
		e.ID, e.SrcNodeID, e.DestNodeID, taken,
		fmt.Sprintf("%#x", e.VirtualTarget), phy, e.NonBranchInstructionCount, e.ObservedTraverseCount)
	if err != nil {
		return err
	}
	for _, k := range sortedKeys(e.Overflow) {
		if _, err := fmt.Fprintf(w, "%s %s  ", k, e.Overflow[k]); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// parseEdgeLine parses "EDGE <id> <src> <dest> <T|N> <vtarget> <ptarget|-> <inst_cnt> [k: v ...]".
// Endpoint ids are checked against the finished node table.
func parseEdgeLine(l Line, fields []string, nodes *NodeTable, pc *parseContext) (EdgeRecord, error) {
	var e EdgeRecord
	if len(fields) < 1+edgeFixedFields {
		return e, pc.errorf(l.Number, ErrFormat, "edge record has %d fixed fields, expected %d", len(fields)-1, edgeFixedFields)
	}

	id, err := parseUint(fields[1], 32)
	if err != nil {
		return e, pc.fieldError(l.Number, "edge id", fields[1], err)
	}
	e.ID = uint32(id)
	if e.SrcNodeID, err = parseNodeRef(l, "source node id", fields[2], nodes, pc); err != nil {
		return e, err
	}
	if e.DestNodeID, err = parseNodeRef(l, "destination node id", fields[3], nodes, pc); err != nil {
		return e, err
	}
	switch fields[4] {
	case "T":
		e.IsTakenPath = true
	case "N":
	default:
		return e, pc.fieldError(l.Number, "branch taken indicator", fields[4], nil)
	}
	if e.VirtualTarget, err = parseUint(fields[5], 64); err != nil {
		return e, pc.fieldError(l.Number, "branch virtual target", fields[5], err)
	}
	if e.PhysicalTarget, e.PhysicalTargetValid, err = optionalAddress(fields[6]); err != nil {
		return e, pc.fieldError(l.Number, "branch physical target", fields[6], err)
	}
	if e.NonBranchInstructionCount, err = parseUint(fields[7], 64); err != nil {
		return e, pc.fieldError(l.Number, "non-branch instruction count", fields[7], err)
	}

	err = keyValues(l, fields[1+edgeFixedFields:], pc, func(key, value string) error {
		if key == "traverse_cnt:" {
			var err error
			if e.ObservedTraverseCount, err = parseUint(value, 64); err != nil {
				return pc.fieldError(l.Number, "traverse_cnt", value, err)
			}
			return nil
		}
		if e.Overflow == nil {
			e.Overflow = make(map[string]string)
		}
		e.Overflow[key] = value
		return nil
	})
	return e, err
}

func parseNodeRef(l Line, field, token string, nodes *NodeTable, pc *parseContext) (uint32, error) {
	v, err := parseUint(token, 32)
	if err != nil {
		return 0, pc.fieldError(l.Number, field, token, err)
	}
	id := uint32(v)
	if !nodes.Has(id) {
		return 0, &ParseError{Source: pc.name, Line: l.Number, Field: field, Token: token, Err: ErrInvalidReference}
	}
	return id, nil
}

// edgeTableBuilder deduplicates edges on (source address, effective target).
// Not-taken edges use target 0; edges into a dummy node use dummySinkTarget.
type edgeTableBuilder struct {
	nodes *NodeTable
	byKey map[edgeKey]*EdgeRecord
	byID  map[uint32]struct{}
	maxID uint32
}

func newEdgeTableBuilder(nodes *NodeTable) *edgeTableBuilder {
	return &edgeTableBuilder{
		nodes: nodes,
		byKey: make(map[edgeKey]*EdgeRecord),
		byID:  make(map[uint32]struct{}),
	}
}

func (b *edgeTableBuilder) key(e *EdgeRecord) edgeKey {
	k := edgeKey{srcAddr: b.nodes.records[e.SrcNodeID].VirtualAddress}
	switch {
	case b.nodes.records[e.DestNodeID].IsDummy():
		k.target = dummySinkTarget
	case e.IsTakenPath:
		k.target = e.VirtualTarget
	}
	return k
}

func (b *edgeTableBuilder) insert(e EdgeRecord, line int64, pc *parseContext) error {
	key := b.key(&e)
	if _, dup := b.byKey[key]; dup {
		return pc.errorf(line, ErrDuplicate, "duplicated edge: (%#x, %#x)", key.srcAddr, key.target)
	}
	if _, dup := b.byID[e.ID]; dup {
		return pc.errorf(line, ErrDuplicate, "duplicated edge id: %d", e.ID)
	}
	rec := e
	b.byKey[key] = &rec
	b.byID[e.ID] = struct{}{}
	b.maxID = max(b.maxID, e.ID)
	return nil
}

func (b *edgeTableBuilder) build() *EdgeTable {
	if len(b.byKey) == 0 {
		return &EdgeTable{}
	}
	t := &EdgeTable{}
	t.records = make([]EdgeRecord, int(b.maxID)+1)
	t.present = make([]bool, int(b.maxID)+1)
	for _, e := range b.byKey {
		t.records[e.ID] = *e
		t.present[e.ID] = true
	}
	return t
}

// readEdgeTable consumes EDGE lines up to and including the sequence marker.
func readEdgeTable(src *Source, nodes *NodeTable, pc *parseContext) (*EdgeTable, error) {
	b := newEdgeTableBuilder(nodes)
	for {
		l, err := src.NextLine()
		if errors.Is(err, io.EOF) {
			return nil, pc.errorf(src.LineNumber(), ErrFormat, "%s is missing", sequenceSectionMarker)
		}
		if err != nil {
			return nil, err
		}
		fields := l.Fields()
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case sequenceSectionMarker:
			return b.build(), nil
		case edgeKeyword:
			e, err := parseEdgeLine(l, fields, nodes, pc)
			if err != nil {
				return nil, err
			}
			if err := b.insert(e, l.Number, pc); err != nil {
				return nil, err
			}
		default:
			return nil, pc.errorf(l.Number, ErrFormat, "'%s' specifier is missing", edgeKeyword)
		}
	}
}
