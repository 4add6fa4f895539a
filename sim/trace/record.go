// Package trace provides per-branch logging of a simulation run.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// Record captures one simulated branch instance.
type Record struct {
	PC          uint64
	Conditional bool
	Taken       bool
	Predicted   bool  // meaningful only when Conditional
	OpType      uint8 // sim.OpType numbering
	Target      uint64
	Unresolved  bool // the branch had no op type; only PC is meaningful
}
