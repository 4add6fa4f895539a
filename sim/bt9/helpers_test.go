package bt9

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// scenarioTrace is a minimal well-formed trace: a dummy source, one real
// conditional branch, one edge and a one-entry sequence.
const scenarioTrace = `BT9_SPA_TRACE_FORMAT
bt9_minor_version: 0
has_physical_address: 0
md5_checksum: d41d8cd98f00b204e9800998ecf8427e
conversion_date: Mon Jan  4 10:00:00 2016
original_stf_input_file: /traces/SHORT_MOBILE-1.stf.gz
total_instruction_count: 5
branch_instruction_count: 1
BT9_NODES
NODE 0 0 - 0 0
NODE 1 0x400 - 0x2a 4 class: JMP+DIRECT+COND behavior: DYN+DIR taken_cnt: 1 not_taken_cnt: 0 tgt_cnt: 1 # mnemonic: "b.eq 0x1000"
BT9_EDGES
EDGE 0 0 1 T 0x1000 - 4 traverse_cnt: 1
BT9_EDGE_SEQUENCE
0
EOF
`

// traceHead is the header, node and edge sections shared by the generated
// traces below. Edge ids 0..3 are valid.
const traceHead = `BT9_SPA_TRACE_FORMAT
bt9_minor_version: 0
has_physical_address: 0
BT9_NODES
NODE 0 0 - 0 0
NODE 1 0x400 - 0x2a 4 class: JMP+DIR+CND behavior: DYN+DIR
NODE 2 0x500 - 0x2b 4 class: CALL+IND+UCD behavior: AT+IND
BT9_EDGES
EDGE 0 0 1 T 0x400 - 0
EDGE 1 1 2 T 0x500 - 3
EDGE 2 1 2 N 0x404 - 1
EDGE 3 2 1 T 0x400 - 7
BT9_EDGE_SEQUENCE
`

// sequenceOf returns the edge ids i%4 for i in [0, n).
func sequenceOf(n int) []uint32 {
	seq := make([]uint32, n)
	for i := range seq {
		seq[i] = uint32(i % 4)
	}
	return seq
}

func traceWithSequence(seq []uint32, terminated bool) string {
	var b strings.Builder
	b.WriteString(traceHead)
	for _, id := range seq {
		fmt.Fprintf(&b, "%d\n", id)
	}
	if terminated {
		b.WriteString("EOF\n")
	}
	return b.String()
}

func newTestReader(t *testing.T, text string, opts ...Option) *Reader {
	t.Helper()
	r, err := NewReader(NewSource("test.bt9", strings.NewReader(text)), opts...)
	require.NoError(t, err)
	return r
}

func parseTestTrace(text string, opts ...Option) (*Reader, error) {
	return NewReader(NewSource("test.bt9", strings.NewReader(text)), opts...)
}

// collectEdgeIDs drains the reader's sequence.
func collectEdgeIDs(t *testing.T, r *Reader) []uint32 {
	t.Helper()
	var ids []uint32
	for inst, err := range r.BranchInstances() {
		require.NoError(t, err)
		ids = append(ids, inst.EdgeID)
	}
	return ids
}
