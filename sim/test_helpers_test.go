package sim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cbpsim/sim/bt9"
)

// simTraceHead declares a dummy source and one branch of each flavor:
// node 1 conditional jump, node 2 direct call, node 3 return.
const simTraceHead = `BT9_SPA_TRACE_FORMAT
bt9_minor_version: 0
has_physical_address: 0
original_stf_input_file: /traces/SIM-1.stf.gz
total_instruction_count: 1000
branch_instruction_count: 6
BT9_NODES
NODE 0 0 - 0 0
NODE 1 0x400 - 0x2a 4 class: JMP+DIR+CND
NODE 2 0x500 - 0x2b 4 class: CALL+DIR+UCD
NODE 3 0x600 - 0x2c 4 class: RET+UCD
BT9_EDGES
EDGE 0 0 1 T 0x400 - 10
EDGE 1 1 2 T 0x500 - 3
EDGE 2 1 1 N 0x404 - 1
EDGE 3 2 3 T 0x600 - 7
EDGE 4 3 1 T 0x400 - 2
BT9_EDGE_SEQUENCE
`

// simSequence: dummy, two not-taken conditionals, one taken, call, return.
const simSequence = "0\n2\n2\n1\n3\n4\nEOF\n"

func newSimReader(t *testing.T, text string) *bt9.Reader {
	t.Helper()
	r, err := bt9.NewReader(bt9.NewSource("sim.bt9", strings.NewReader(text)), bt9.WithWindowSize(4))
	require.NoError(t, err)
	return r
}

type trackedBranch struct {
	pc     uint64
	op     OpType
	taken  bool
	target uint64
}

// recordingPredictor always predicts fixed and records every call.
type recordingPredictor struct {
	fixed       bool
	predictions []uint64
	updates     []trackedBranch
	others      []trackedBranch
}

func (p *recordingPredictor) GetPrediction(pc uint64) bool {
	p.predictions = append(p.predictions, pc)
	return p.fixed
}

func (p *recordingPredictor) UpdatePredictor(pc uint64, op OpType, taken, _ bool, target uint64) {
	p.updates = append(p.updates, trackedBranch{pc, op, taken, target})
}

func (p *recordingPredictor) TrackOtherInstruction(pc uint64, op OpType, taken bool, target uint64) {
	p.others = append(p.others, trackedBranch{pc, op, taken, target})
}
