// Tracks simulation-wide branch counts and misprediction statistics.

package sim

import (
	"fmt"
	"io"
	"maps"
	"slices"
)

// OpTypeStats counts instances and mispredictions of one OpType.
type OpTypeStats struct {
	Count          uint64
	Mispredictions uint64
}

// Metrics aggregates statistics about the simulation for final reporting.
type Metrics struct {
	TraceName string

	Instructions      uint64 // total_instruction_count: from the trace header
	HeaderBranches    uint64 // branch_instruction_count: from the trace header, 0 if absent
	Branches          uint64 // branch instances simulated, including the dummy source
	Conditional       uint64
	Unconditional     uint64
	Mispredictions    uint64
	SkippedDummyNodes uint64

	ByOpType map[OpType]*OpTypeStats
}

// NewMetrics returns zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{ByOpType: make(map[OpType]*OpTypeStats)}
}

func (m *Metrics) record(op OpType, mispredicted bool) {
	st, ok := m.ByOpType[op]
	if !ok {
		st = &OpTypeStats{}
		m.ByOpType[op] = st
	}
	st.Count++
	if mispredicted {
		st.Mispredictions++
	}
}

// MispredPerKiloInst is the headline figure: mispredictions per 1000
// instructions. Zero when the instruction count is unknown.
func (m *Metrics) MispredPerKiloInst() float64 {
	if m.Instructions == 0 {
		return 0
	}
	return 1000 * float64(m.Mispredictions) / float64(m.Instructions)
}

// MispredPerKiloBranch is mispredictions per 1000 simulated branch instances.
func (m *Metrics) MispredPerKiloBranch() float64 {
	if m.Branches == 0 {
		return 0
	}
	return 1000 * float64(m.Mispredictions) / float64(m.Branches)
}

// BranchCount is the number of real branches: the header count when present,
// otherwise the simulated count, less the dummy source either way.
func (m *Metrics) BranchCount() uint64 {
	n := m.Branches
	if m.HeaderBranches > 0 {
		n = m.HeaderBranches
	}
	if n > 0 {
		n--
	}
	return n
}

// Print writes the end-of-run report.
func (m *Metrics) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"  TRACE \t : %s\n"+
			"  NUM_INSTRUCTIONS            \t : %10d\n"+
			"  NUM_BR                      \t : %10d\n"+
			"  NUM_UNCOND_BR               \t : %10d\n"+
			"  NUM_CONDITIONAL_BR          \t : %10d\n"+
			"  NUM_MISPREDICTIONS          \t : %10d\n"+
			"  MISPRED_PER_1K_INST         \t : %10.4f\n",
		m.TraceName, m.Instructions, m.BranchCount(), m.Unconditional,
		m.Conditional, m.Mispredictions, m.MispredPerKiloInst())
	return err
}

// PrintBreakdown writes per-OpType counts in OpType order.
func (m *Metrics) PrintBreakdown(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "=== Branch Breakdown ==="); err != nil {
		return err
	}
	for _, op := range slices.Sorted(maps.Keys(m.ByOpType)) {
		st := m.ByOpType[op]
		if _, err := fmt.Fprintf(w, "  %-22s : %10d  mispred: %10d\n", op, st.Count, st.Mispredictions); err != nil {
			return err
		}
	}
	return nil
}
