package predictor

import "github.com/inference-sim/cbpsim/sim"

// AlwaysTaken predicts every conditional branch taken and learns nothing.
type AlwaysTaken struct{}

func (AlwaysTaken) GetPrediction(uint64) bool                              { return true }
func (AlwaysTaken) UpdatePredictor(uint64, sim.OpType, bool, bool, uint64) {}
func (AlwaysTaken) TrackOtherInstruction(uint64, sim.OpType, bool, uint64) {}

// Bimodal is a PC-indexed table of 2-bit saturating counters with a branch
// target buffer.
type Bimodal struct {
	bht counterTable

	btb      []btbEntry
	btbValid []bool
	btbMask  uint64

	stats Stats
}

type btbEntry struct {
	pc     uint64
	target uint64
}

// NewBimodal creates a bimodal predictor. Sizes must be powers of 2.
func NewBimodal(tableSize, btbSize uint32) *Bimodal {
	return &Bimodal{
		bht:      newCounterTable(tableSize),
		btb:      make([]btbEntry, btbSize),
		btbValid: make([]bool, btbSize),
		btbMask:  uint64(btbSize - 1),
	}
}

func (b *Bimodal) GetPrediction(pc uint64) bool {
	return b.bht.taken(pcIndex(pc))
}

func (b *Bimodal) UpdatePredictor(pc uint64, _ sim.OpType, taken, predicted bool, target uint64) {
	b.stats.observe(predicted, taken)
	b.bht.train(pcIndex(pc), taken)
	if taken {
		b.recordTarget(pc, target)
	}
}

// TrackOtherInstruction records the targets of taken unconditional branches.
func (b *Bimodal) TrackOtherInstruction(pc uint64, _ sim.OpType, taken bool, target uint64) {
	if taken {
		b.recordTarget(pc, target)
	}
}

// Target returns the last taken target seen for pc, if it is still cached.
func (b *Bimodal) Target(pc uint64) (uint64, bool) {
	idx := pcIndex(pc) & b.btbMask
	if b.btbValid[idx] && b.btb[idx].pc == pc {
		return b.btb[idx].target, true
	}
	return 0, false
}

func (b *Bimodal) recordTarget(pc, target uint64) {
	idx := pcIndex(pc) & b.btbMask
	b.btb[idx] = btbEntry{pc: pc, target: target}
	b.btbValid[idx] = true
}

// Stats returns the prediction statistics.
func (b *Bimodal) Stats() Stats { return b.stats }
