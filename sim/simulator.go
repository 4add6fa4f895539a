package sim

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cbpsim/sim/bt9"
)

var (
	// ErrOpType reports a real branch whose class does not decode to an OpType.
	ErrOpType = errors.New("branch class does not decode to an op type")
	// ErrHeader reports a malformed instruction or branch count in the trace header.
	ErrHeader = errors.New("bad trace header count")
)

// BranchOutcome is what the simulator saw and predicted for one branch instance.
type BranchOutcome struct {
	PC          uint64
	OpType      OpType
	Conditional bool
	Taken       bool
	Predicted   bool // meaningful only when Conditional
	Target      uint64
}

// heartbeats are the branch counts at which the running MPKBr is logged.
var heartbeats = []struct {
	at    uint64
	label string
}{
	{1_000, "1K"}, {10_000, "10K"}, {100_000, "100K"}, {1_000_000, "1M"},
	{10_000_000, "10M"}, {30_000_000, "30M"}, {60_000_000, "60M"},
	{100_000_000, "100M"}, {300_000_000, "300M"}, {600_000_000, "600M"},
	{1_000_000_000, "1B"}, {10_000_000_000, "10B"},
}

// Simulator replays the dynamic branch sequence of a trace through a predictor.
type Simulator struct {
	reader    *bt9.Reader
	predictor Predictor
	cfg       SimConfig
	metrics   *Metrics
	nextBeat  int
}

// NewSimulator prepares a run. The instruction count comes from the
// total_instruction_count: header key; a missing key is logged and leaves
// per-instruction rates at zero.
func NewSimulator(reader *bt9.Reader, predictor Predictor, cfg SimConfig) (*Simulator, error) {
	m := NewMetrics()
	h := reader.Header()
	m.TraceName = h.TraceName()
	if m.TraceName == "" {
		m.TraceName = "unknown"
	}

	var err error
	if m.Instructions, err = headerCount(h, "total_instruction_count:"); err != nil {
		return nil, err
	}
	if m.Instructions == 0 {
		logrus.Warnf("trace header has no total_instruction_count, MPKI will be reported as 0")
	}
	if m.HeaderBranches, err = headerCount(h, "branch_instruction_count:"); err != nil {
		return nil, err
	}

	return &Simulator{
		reader:    reader,
		predictor: predictor,
		cfg:       cfg,
		metrics:   m,
	}, nil
}

func headerCount(h *bt9.Header, key string) (uint64, error) {
	v, ok := h.Get(key)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrHeader, key, v)
	}
	return n, nil
}

// Metrics returns the statistics gathered so far.
func (s *Simulator) Metrics() *Metrics { return s.metrics }

// Run walks the edge sequence to its end or to MaxBranches. A window error
// ends the run early with a warning; anything else aborts it.
func (s *Simulator) Run() error {
	for it := s.reader.Begin(); !it.Done(); {
		inst, err := it.Instance()
		if err != nil {
			if bt9.IsWindowError(err) {
				logrus.Warnf("stopping after %d branches: %v", s.metrics.Branches, err)
				break
			}
			return err
		}
		s.metrics.Branches++
		s.checkHeartbeat()
		if err := s.step(inst); err != nil {
			return fmt.Errorf("branch %d (edge %d): %w", s.metrics.Branches, inst.EdgeID, err)
		}

		if s.cfg.MaxBranches > 0 && s.metrics.Branches >= s.cfg.MaxBranches {
			logrus.Infof("stopping at --max-branches=%d", s.cfg.MaxBranches)
			break
		}
		if err := it.Advance(); err != nil {
			return err
		}
	}
	logrus.Debugf("simulated %d branches, %d window shifts", s.metrics.Branches, s.reader.WindowShifts())
	return nil
}

func (s *Simulator) step(inst *bt9.BranchInstance) error {
	src := inst.SourceNode()
	edge := inst.Edge()
	out := BranchOutcome{
		PC:     src.VirtualAddress,
		OpType: ClassifyBranch(src.Class),
		Taken:  edge.IsTakenPath,
		Target: edge.VirtualTarget,
	}

	if out.OpType == OpTypeError {
		// Only the dummy source node may lack a class.
		if inst.SrcNodeID != 0 {
			return fmt.Errorf("%w: node %d class %s", ErrOpType, src.ID, src.Class)
		}
		s.metrics.SkippedDummyNodes++
		return s.emit(out)
	}

	// A decoded OpType implies a known conditionality.
	if src.Class.Conditionality == bt9.Conditional {
		out.Conditional = true
		out.Predicted = s.predictor.GetPrediction(out.PC)
		s.predictor.UpdatePredictor(out.PC, out.OpType, out.Taken, out.Predicted, out.Target)
		s.metrics.Conditional++
		mispredicted := out.Predicted != out.Taken
		if mispredicted {
			s.metrics.Mispredictions++
		}
		s.metrics.record(out.OpType, mispredicted)
	} else {
		s.predictor.TrackOtherInstruction(out.PC, out.OpType, out.Taken, out.Target)
		s.metrics.Unconditional++
		s.metrics.record(out.OpType, false)
	}
	return s.emit(out)
}

func (s *Simulator) emit(out BranchOutcome) error {
	if s.cfg.OnBranch == nil {
		return nil
	}
	return s.cfg.OnBranch(out)
}

func (s *Simulator) checkHeartbeat() {
	if s.nextBeat >= len(heartbeats) || s.metrics.Branches != heartbeats[s.nextBeat].at {
		return
	}
	logrus.Infof("MPKBr_%s: %10.4f", heartbeats[s.nextBeat].label, s.metrics.MispredPerKiloBranch())
	s.nextBeat++
}
