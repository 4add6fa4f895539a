package predictor

import "github.com/inference-sim/cbpsim/sim"

// GShare XORs a global history of conditional outcomes into the PC to index
// a table of 2-bit counters.
type GShare struct {
	pht         counterTable
	history     uint64
	historyMask uint64
	stats       Stats
}

// NewGShare creates a gshare predictor with tableSize counters (a power of 2)
// and historyLength bits of global history.
func NewGShare(tableSize, historyLength uint32) *GShare {
	return &GShare{
		pht:         newCounterTable(tableSize),
		historyMask: uint64(1)<<historyLength - 1,
	}
}

func (g *GShare) index(pc uint64) uint64 { return pcIndex(pc) ^ g.history }

func (g *GShare) GetPrediction(pc uint64) bool {
	return g.pht.taken(g.index(pc))
}

func (g *GShare) UpdatePredictor(pc uint64, _ sim.OpType, taken, predicted bool, _ uint64) {
	g.stats.observe(predicted, taken)
	g.pht.train(g.index(pc), taken)
	g.history <<= 1
	if taken {
		g.history |= 1
	}
	g.history &= g.historyMask
}

// TrackOtherInstruction is a no-op: only conditional outcomes enter the history.
func (g *GShare) TrackOtherInstruction(uint64, sim.OpType, bool, uint64) {}

// History returns the current global history register.
func (g *GShare) History() uint64 { return g.history }

// Stats returns the prediction statistics.
func (g *GShare) Stats() Stats { return g.stats }
