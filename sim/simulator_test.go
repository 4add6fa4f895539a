package sim

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_Run_CountsAndMispredictions(t *testing.T) {
	// GIVEN a trace with three conditional and two unconditional branches
	p := &recordingPredictor{fixed: true}
	s, err := NewSimulator(newSimReader(t, simTraceHead+simSequence), p, SimConfig{})
	require.NoError(t, err)

	// WHEN simulated with an always-taken predictor
	require.NoError(t, s.Run())

	// THEN both not-taken conditionals are mispredicted
	m := s.Metrics()
	assert.Equal(t, uint64(6), m.Branches)
	assert.Equal(t, uint64(3), m.Conditional)
	assert.Equal(t, uint64(2), m.Unconditional)
	assert.Equal(t, uint64(2), m.Mispredictions)
	assert.Equal(t, uint64(1), m.SkippedDummyNodes)
	assert.Equal(t, uint64(1000), m.Instructions)
	assert.Equal(t, uint64(5), m.BranchCount())
	assert.InDelta(t, 2.0, m.MispredPerKiloInst(), 1e-9)
	assert.Equal(t, "SIM-1", m.TraceName)

	// AND the predictor saw conditionals and the others separately
	assert.Equal(t, []uint64{0x400, 0x400, 0x400}, p.predictions)
	assert.Equal(t, []trackedBranch{
		{0x400, OpTypeJmpDirectCond, false, 0x404},
		{0x400, OpTypeJmpDirectCond, false, 0x404},
		{0x400, OpTypeJmpDirectCond, true, 0x500},
	}, p.updates)
	assert.Equal(t, []trackedBranch{
		{0x500, OpTypeCallDirectUncond, true, 0x600},
		{0x600, OpTypeRetUncond, true, 0x400},
	}, p.others)

	// AND the breakdown splits by op type
	assert.Equal(t, OpTypeStats{Count: 3, Mispredictions: 2}, *m.ByOpType[OpTypeJmpDirectCond])
	assert.Equal(t, OpTypeStats{Count: 1}, *m.ByOpType[OpTypeRetUncond])
}

func TestSimulator_OnBranch_ReceivesEveryInstance(t *testing.T) {
	var got []BranchOutcome
	cfg := SimConfig{OnBranch: func(o BranchOutcome) error {
		got = append(got, o)
		return nil
	}}
	s, err := NewSimulator(newSimReader(t, simTraceHead+simSequence), &recordingPredictor{fixed: false}, cfg)
	require.NoError(t, err)

	require.NoError(t, s.Run())

	require.Len(t, got, 6)
	assert.Equal(t, BranchOutcome{PC: 0, OpType: OpTypeError, Taken: true, Target: 0x400}, got[0])
	assert.Equal(t, BranchOutcome{PC: 0x400, OpType: OpTypeJmpDirectCond, Conditional: true, Taken: false, Predicted: false, Target: 0x404}, got[1])
	assert.Equal(t, BranchOutcome{PC: 0x500, OpType: OpTypeCallDirectUncond, Taken: true, Target: 0x600}, got[4])
	assert.Equal(t, uint64(1), s.Metrics().Mispredictions)
}

func TestSimulator_OnBranchError_AbortsRun(t *testing.T) {
	boom := errors.New("disk full")
	cfg := SimConfig{OnBranch: func(BranchOutcome) error { return boom }}
	s, err := NewSimulator(newSimReader(t, simTraceHead+simSequence), &recordingPredictor{}, cfg)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Run(), boom)
}

func TestSimulator_MaxBranches_StopsEarly(t *testing.T) {
	p := &recordingPredictor{fixed: true}
	s, err := NewSimulator(newSimReader(t, simTraceHead+simSequence), p, SimConfig{MaxBranches: 3})
	require.NoError(t, err)

	require.NoError(t, s.Run())

	assert.Equal(t, uint64(3), s.Metrics().Branches)
	assert.Len(t, p.predictions, 2)
}

func TestSimulator_UnclassifiedRealBranch_ErrOpType(t *testing.T) {
	// GIVEN node 2 has lost its class
	text := strings.Replace(simTraceHead, "0x2b 4 class: CALL+DIR+UCD", "0x2b 4", 1) + simSequence
	s, err := NewSimulator(newSimReader(t, text), &recordingPredictor{}, SimConfig{})
	require.NoError(t, err)

	// WHEN the call is reached
	err = s.Run()

	// THEN the run fails with the node named
	assert.ErrorIs(t, err, ErrOpType)
	assert.Contains(t, err.Error(), "node 2")
}

func TestSimulator_ClassWithoutConditionality_ErrOpType(t *testing.T) {
	text := strings.Replace(simTraceHead, "class: RET+UCD", "class: RET", 1) + simSequence
	s, err := NewSimulator(newSimReader(t, text), &recordingPredictor{}, SimConfig{})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Run(), ErrOpType)
}

func TestNewSimulator_BadHeaderCount_ErrHeader(t *testing.T) {
	text := strings.Replace(simTraceHead, "total_instruction_count: 1000", "total_instruction_count: lots", 1) + simSequence

	_, err := NewSimulator(newSimReader(t, text), &recordingPredictor{}, SimConfig{})

	assert.ErrorIs(t, err, ErrHeader)
}

func TestNewSimulator_MissingHeaderCounts_ZeroRates(t *testing.T) {
	text := strings.Replace(simTraceHead, "total_instruction_count: 1000\nbranch_instruction_count: 6\n", "", 1) + simSequence
	s, err := NewSimulator(newSimReader(t, text), &recordingPredictor{fixed: true}, SimConfig{})
	require.NoError(t, err)

	require.NoError(t, s.Run())

	assert.Zero(t, s.Metrics().MispredPerKiloInst())
	// Falls back to the simulated count less the dummy
	assert.Equal(t, uint64(5), s.Metrics().BranchCount())
}

func TestSimulator_Heartbeat_AdvancesAtThousand(t *testing.T) {
	var b strings.Builder
	b.WriteString(simTraceHead)
	for range 1200 {
		b.WriteString("3\n")
	}
	b.WriteString("EOF\n")
	s, err := NewSimulator(newSimReader(t, b.String()), &recordingPredictor{}, SimConfig{})
	require.NoError(t, err)

	require.NoError(t, s.Run())

	assert.Equal(t, 1, s.nextBeat)
	assert.Equal(t, uint64(1200), s.Metrics().Unconditional)
}

func TestSimulator_Heartbeat_ExcludesCurrentBranch(t *testing.T) {
	// GIVEN a trace whose 1000th branch is a mispredicted fall-through
	var b strings.Builder
	b.WriteString(simTraceHead)
	b.WriteString("0\n")
	for range 998 {
		b.WriteString("3\n")
	}
	b.WriteString("2\nEOF\n")
	s, err := NewSimulator(newSimReader(t, b.String()), &recordingPredictor{fixed: true}, SimConfig{})
	require.NoError(t, err)

	logger := logrus.StandardLogger()
	saved := logger.ReplaceHooks(make(logrus.LevelHooks))
	level := logger.GetLevel()
	logger.SetLevel(logrus.InfoLevel)
	hook := logtest.NewLocal(logger)
	t.Cleanup(func() {
		logger.ReplaceHooks(saved)
		logger.SetLevel(level)
	})

	// WHEN simulated
	require.NoError(t, s.Run())

	// THEN the heartbeat fires before that branch is tallied
	assert.Equal(t, uint64(1), s.Metrics().Mispredictions)
	var beats []string
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "MPKBr_") {
			beats = append(beats, e.Message)
		}
	}
	assert.Equal(t, []string{"MPKBr_1K:     0.0000"}, beats)
}

func TestMetrics_Print_ReportLayout(t *testing.T) {
	m := NewMetrics()
	m.TraceName = "SHORT-1"
	m.Instructions = 2000
	m.HeaderBranches = 11
	m.Conditional = 7
	m.Unconditional = 3
	m.Mispredictions = 3

	var out strings.Builder
	require.NoError(t, m.Print(&out))

	text := out.String()
	assert.Contains(t, text, "TRACE \t : SHORT-1")
	assert.Contains(t, text, fmt.Sprintf("NUM_BR                      \t : %10d", 10))
	assert.Contains(t, text, "MISPRED_PER_1K_INST         \t :     1.5000")
}

func TestMetrics_PrintBreakdown_OpTypeOrder(t *testing.T) {
	m := NewMetrics()
	m.record(OpTypeRetUncond, false)
	m.record(OpTypeJmpDirectCond, true)
	m.record(OpTypeCallDirectUncond, false)

	var out strings.Builder
	require.NoError(t, m.PrintBreakdown(&out))

	text := out.String()
	ret := strings.Index(text, "ret-uncond")
	call := strings.Index(text, "call-direct-uncond")
	jmp := strings.Index(text, "jmp-direct-cond")
	assert.True(t, ret < call && call < jmp, text)
}

func TestNewPredictor_RegisteredFactory_RunsTrace(t *testing.T) {
	// GIVEN a registered bimodal predictor
	p, err := NewPredictor(PredictorConfig{Kind: PredictorBimodal, TableSize: 64})
	require.NoError(t, err)
	s, err := NewSimulator(newSimReader(t, simTraceHead+simSequence), p, SimConfig{})
	require.NoError(t, err)

	// WHEN simulated
	require.NoError(t, s.Run())

	// THEN the first not-taken branch is mispredicted by the taken-biased counter
	assert.Equal(t, uint64(3), s.Metrics().Conditional)
	assert.GreaterOrEqual(t, s.Metrics().Mispredictions, uint64(1))
}
