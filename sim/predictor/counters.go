package predictor

// Stats holds prediction statistics of a table-based predictor.
type Stats struct {
	// Predictions is the number of conditional branches trained on.
	Predictions uint64
	// Correct is the number of correct predictions.
	Correct uint64
	// Mispredictions is the number of incorrect predictions.
	Mispredictions uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s Stats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

func (s *Stats) observe(predicted, taken bool) {
	s.Predictions++
	if predicted == taken {
		s.Correct++
	} else {
		s.Mispredictions++
	}
}

// counterTable is a table of 2-bit saturating counters.
// States: 0=Strongly Not Taken, 1=Weakly Not Taken, 2=Weakly Taken, 3=Strongly Taken
type counterTable struct {
	counters []uint8
	mask     uint64
}

// newCounterTable allocates size counters, initialized weakly taken.
// size must be a power of 2.
func newCounterTable(size uint32) counterTable {
	t := counterTable{
		counters: make([]uint8, size),
		mask:     uint64(size - 1),
	}
	for i := range t.counters {
		t.counters[i] = 2
	}
	return t
}

func (t *counterTable) taken(idx uint64) bool { return t.counters[idx&t.mask] >= 2 }

func (t *counterTable) train(idx uint64, taken bool) {
	c := &t.counters[idx&t.mask]
	if taken {
		if *c < 3 {
			*c++
		}
	} else if *c > 0 {
		*c--
	}
}

// pcIndex drops the alignment bits of pc.
func pcIndex(pc uint64) uint64 { return pc >> 2 }
