package bt9

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// dummySourceKey is the dedup key of node 0, which carries no real address.
const dummySourceKey = math.MaxUint64 - 1

const nodeFixedFields = 5

// NodeRecord is one static branch site.
type NodeRecord struct {
	ID                   uint32
	VirtualAddress       uint64
	PhysicalAddress      uint64
	PhysicalAddressValid bool
	Opcode               uint32
	OpcodeSize           uint64
	Class                BranchClass
	Behavior             BranchBehavior
	Mnemonic             string
	TakenCount           uint32
	NotTakenCount        uint32
	TargetCount          uint32
	Overflow             map[string]string
}

// IsDummy reports whether the node is a trace-boundary placeholder.
func (n *NodeRecord) IsDummy() bool { return n.OpcodeSize == 0 }

// Field returns the value of an unrecognized key such as "foo:".
func (n *NodeRecord) Field(key string) (string, bool) {
	v, ok := n.Overflow[key]
	return v, ok
}

// Validate rejects a node whose static class contradicts its observed behavior.
func (n *NodeRecord) Validate() error {
	if n.Class.Directness == Direct && n.Behavior.Indirectness == BehavesIndirect {
		return fmt.Errorf("node %d: class %s can never lead to behavior %s",
			n.ID, Direct, BehavesIndirect)
	}
	return nil
}

// dedupKey is the structural identity of the node within a trace.
func (n *NodeRecord) dedupKey() uint64 {
	if n.ID == 0 {
		return dummySourceKey
	}
	return n.VirtualAddress
}

func (n *NodeRecord) dump(w io.Writer) error {
	phy := absentField
	if n.PhysicalAddressValid {
		phy = fmt.Sprintf("%#x", n.PhysicalAddress)
	}
	if _, err := fmt.Fprintf(w, "%4d %20s %20s %16s %4d  ",
		n.ID, fmt.Sprintf("%#x", n.VirtualAddress), phy, fmt.Sprintf("%#x", n.Opcode), n.OpcodeSize); err != nil {
		return err
	}
	if n.IsDummy() {
		_, err := io.WriteString(w, "\n")
		return err
	}
	if err := n.Validate(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "  class: %4s+%s+%s  behavior: %4s+%s  taken_cnt: %8d  not_taken_cnt: %8d  tgt_cnt: %4d",
		n.Class.Type, n.Class.Directness, n.Class.Conditionality,
		n.Behavior.Direction, n.Behavior.Indirectness,
		n.TakenCount, n.NotTakenCount, n.TargetCount)
	if err != nil {
		return err
	}
	for _, k := range sortedKeys(n.Overflow) {
		if _, err := fmt.Fprintf(w, "  %s %s", k, n.Overflow[k]); err != nil {
			return err
		}
	}
	// The mnemonic lives in the comment tail so the dump parses back.
	if n.Mnemonic != "" {
		if _, err := fmt.Fprintf(w, "  # mnemonic: \"%s\"", n.Mnemonic); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// parseNodeLine parses "NODE <id> <vaddr> <paddr|-> <opcode> <size> [k: v ...] [# ... mnemonic: "..."]".
func parseNodeLine(l Line, fields []string, pc *parseContext) (NodeRecord, error) {
	var n NodeRecord
	if len(fields) < 1+nodeFixedFields {
		return n, pc.errorf(l.Number, ErrFormat, "node record has %d fixed fields, expected %d", len(fields)-1, nodeFixedFields)
	}

	id, err := parseUint(fields[1], 32)
	if err != nil {
		return n, pc.fieldError(l.Number, "node id", fields[1], err)
	}
	n.ID = uint32(id)
	if n.VirtualAddress, err = parseUint(fields[2], 64); err != nil {
		return n, pc.fieldError(l.Number, "virtual address", fields[2], err)
	}
	if n.PhysicalAddress, n.PhysicalAddressValid, err = optionalAddress(fields[3]); err != nil {
		return n, pc.fieldError(l.Number, "physical address", fields[3], err)
	}
	opcode, err := parseUint(fields[4], 32)
	if err != nil {
		return n, pc.fieldError(l.Number, "opcode", fields[4], err)
	}
	n.Opcode = uint32(opcode)
	if n.OpcodeSize, err = parseUint(fields[5], 64); err != nil {
		return n, pc.fieldError(l.Number, "opcode size", fields[5], err)
	}

	err = keyValues(l, fields[1+nodeFixedFields:], pc, func(key, value string) error {
		var err error
		switch key {
		case "class:":
			if n.Class, err = ParseBranchClass(value); err != nil {
				return pc.fieldError(l.Number, "class", value, err)
			}
		case "behavior:":
			if n.Behavior, err = ParseBranchBehavior(value); err != nil {
				return pc.fieldError(l.Number, "behavior", value, err)
			}
		case "taken_cnt:":
			if n.TakenCount, err = parseCount(value); err != nil {
				return pc.fieldError(l.Number, "taken_cnt", value, err)
			}
		case "not_taken_cnt:":
			if n.NotTakenCount, err = parseCount(value); err != nil {
				return pc.fieldError(l.Number, "not_taken_cnt", value, err)
			}
		case "tgt_cnt:":
			if n.TargetCount, err = parseCount(value); err != nil {
				return pc.fieldError(l.Number, "tgt_cnt", value, err)
			}
		default:
			if n.Overflow == nil {
				n.Overflow = make(map[string]string)
			}
			n.Overflow[key] = value
		}
		return nil
	})
	if err != nil {
		return n, err
	}

	if l.HasComment {
		if n.Mnemonic, err = parseMnemonic(l, pc); err != nil {
			return n, err
		}
	}
	return n, nil
}

func parseCount(token string) (uint32, error) {
	v, err := parseUint(token, 32)
	return uint32(v), err
}

// parseMnemonic extracts `mnemonic: "..."` from the comment tail. The quoted
// text may span several whitespace-separated tokens. A missing closing quote
// is tolerated with a warning.
func parseMnemonic(l Line, pc *parseContext) (string, error) {
	tokens := strings.Fields(l.Comment)
	at := -1
	for i, t := range tokens {
		if t == "mnemonic:" {
			at = i
			break
		}
	}
	if at < 0 {
		return "", nil
	}
	if at+1 >= len(tokens) || !strings.HasPrefix(tokens[at+1], `"`) {
		return "", pc.errorf(l.Number, ErrFormat, `missing " at the beginning of branch mnemonic`)
	}

	parts := []string{strings.TrimPrefix(tokens[at+1], `"`)}
	if p := parts[0]; p != "" && strings.HasSuffix(p, `"`) {
		return strings.TrimSuffix(p, `"`), nil
	}
	for _, t := range tokens[at+2:] {
		if strings.HasSuffix(t, `"`) {
			parts = append(parts, strings.TrimSuffix(t, `"`))
			return strings.Join(parts, " "), nil
		}
		parts = append(parts, t)
	}
	pc.warnf(l.Number, `missing " at the end of branch mnemonic`)
	return strings.Join(parts, " "), nil
}

// nodeTableBuilder deduplicates node records while the node section is read.
type nodeTableBuilder struct {
	byKey map[uint64]*NodeRecord
	byID  map[uint32]struct{}
	maxID uint32
}

func newNodeTableBuilder() *nodeTableBuilder {
	return &nodeTableBuilder{
		byKey: make(map[uint64]*NodeRecord),
		byID:  make(map[uint32]struct{}),
	}
}

func (b *nodeTableBuilder) insert(n NodeRecord, line int64, pc *parseContext) error {
	key := n.dedupKey()
	if _, dup := b.byKey[key]; dup {
		return pc.errorf(line, ErrDuplicate, "duplicated node: %#x", key)
	}
	if _, dup := b.byID[n.ID]; dup {
		return pc.errorf(line, ErrDuplicate, "duplicated node id: %d", n.ID)
	}
	rec := n
	b.byKey[key] = &rec
	b.byID[n.ID] = struct{}{}
	b.maxID = max(b.maxID, n.ID)
	return nil
}

// build lays the records out densely by declared id. The dedup map is
// dropped with the builder.
func (b *nodeTableBuilder) build() *NodeTable {
	if len(b.byKey) == 0 {
		return &NodeTable{}
	}
	t := &NodeTable{}
	t.records = make([]NodeRecord, int(b.maxID)+1)
	t.present = make([]bool, int(b.maxID)+1)
	for _, n := range b.byKey {
		t.records[n.ID] = *n
		t.present[n.ID] = true
	}
	return t
}

// readNodeTable consumes NODE lines up to and including the edge section marker.
func readNodeTable(src *Source, pc *parseContext) (*NodeTable, error) {
	b := newNodeTableBuilder()
	for {
		l, err := src.NextLine()
		if errors.Is(err, io.EOF) {
			return nil, pc.errorf(src.LineNumber(), ErrFormat, "%s is missing", edgeSectionMarker)
		}
		if err != nil {
			return nil, err
		}
		fields := l.Fields()
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case edgeSectionMarker:
			return b.build(), nil
		case nodeKeyword:
			n, err := parseNodeLine(l, fields, pc)
			if err != nil {
				return nil, err
			}
			if err := b.insert(n, l.Number, pc); err != nil {
				return nil, err
			}
		default:
			return nil, pc.errorf(l.Number, ErrFormat, "'%s' specifier is missing", nodeKeyword)
		}
	}
}
