package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_BranchCount_FallsBackToSimulated(t *testing.T) {
	// GIVEN metrics without a header branch count
	m := NewMetrics()
	m.Branches = 7

	// THEN the dummy source is still excluded
	assert.Equal(t, uint64(6), m.BranchCount())

	// WHEN the header supplies a count
	m.HeaderBranches = 100

	// THEN it wins over the simulated count
	assert.Equal(t, uint64(99), m.BranchCount())
}

func TestMetrics_BranchCount_Empty_Zero(t *testing.T) {
	assert.Equal(t, uint64(0), NewMetrics().BranchCount())
}

func TestMetrics_Rates_ZeroDenominators(t *testing.T) {
	m := NewMetrics()
	m.Mispredictions = 3

	assert.Equal(t, 0.0, m.MispredPerKiloInst())
	assert.Equal(t, 0.0, m.MispredPerKiloBranch())
}

func TestMetrics_Rates_PerThousand(t *testing.T) {
	m := NewMetrics()
	m.Instructions = 4000
	m.Branches = 500
	m.Mispredictions = 10

	assert.InDelta(t, 2.5, m.MispredPerKiloInst(), 1e-9)
	assert.InDelta(t, 20.0, m.MispredPerKiloBranch(), 1e-9)
}

func TestMetrics_Record_PerOpType(t *testing.T) {
	m := NewMetrics()
	m.record(OpTypeJmpDirectCond, true)
	m.record(OpTypeJmpDirectCond, false)
	m.record(OpTypeRetUncond, false)

	assert.Equal(t, OpTypeStats{Count: 2, Mispredictions: 1}, *m.ByOpType[OpTypeJmpDirectCond])
	assert.Equal(t, OpTypeStats{Count: 1}, *m.ByOpType[OpTypeRetUncond])
	assert.Len(t, m.ByOpType, 2)
}
