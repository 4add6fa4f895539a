package trace

// Summary aggregates statistics from a BranchLog.
type Summary struct {
	TotalBranches  int           `yaml:"total_branches"`
	Conditional    int           `yaml:"conditional"`
	Unconditional  int           `yaml:"unconditional"`
	Unresolved     int           `yaml:"unresolved"`
	Taken          int           `yaml:"taken"`
	Mispredictions int           `yaml:"mispredictions"`
	UniquePCs      int           `yaml:"unique_pcs"`
	OpTypeCounts   map[uint8]int `yaml:"op_type_counts"` // op type → count of resolved branches
}

// MispredictionRate is the fraction of conditional branches mispredicted.
func (s *Summary) MispredictionRate() float64 {
	if s.Conditional == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Conditional)
}

// Summarize computes aggregate statistics from a BranchLog.
// Safe for nil or empty logs (returns zero-value fields).
func Summarize(l *BranchLog) *Summary {
	summary := &Summary{
		OpTypeCounts: make(map[uint8]int),
	}
	if l == nil {
		return summary
	}

	pcs := make(map[uint64]struct{})
	summary.TotalBranches = len(l.Records)
	for _, r := range l.Records {
		pcs[r.PC] = struct{}{}
		if r.Unresolved {
			summary.Unresolved++
			continue
		}
		summary.OpTypeCounts[r.OpType]++
		if r.Taken {
			summary.Taken++
		}
		if !r.Conditional {
			summary.Unconditional++
			continue
		}
		summary.Conditional++
		if r.Predicted != r.Taken {
			summary.Mispredictions++
		}
	}
	summary.UniquePCs = len(pcs)

	return summary
}
