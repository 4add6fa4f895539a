package sim

import (
	"fmt"

	"github.com/inference-sim/cbpsim/sim/bt9"
)

// OpType is the decoded kind of a branch as seen by a predictor. The
// numbering is the one predictors and branch logs exchange.
type OpType uint8

const (
	OpTypeOp OpType = iota + 2
	OpTypeRetUncond
	OpTypeJmpDirectUncond
	OpTypeJmpIndirectUncond
	OpTypeCallDirectUncond
	OpTypeCallIndirectUncond
	OpTypeRetCond
	OpTypeJmpDirectCond
	OpTypeJmpIndirectCond
	OpTypeCallDirectCond
	OpTypeCallIndirectCond
	OpTypeError
)

var opTypeNames = map[OpType]string{
	OpTypeOp:                 "op",
	OpTypeRetUncond:          "ret-uncond",
	OpTypeJmpDirectUncond:    "jmp-direct-uncond",
	OpTypeJmpIndirectUncond:  "jmp-indirect-uncond",
	OpTypeCallDirectUncond:   "call-direct-uncond",
	OpTypeCallIndirectUncond: "call-indirect-uncond",
	OpTypeRetCond:            "ret-cond",
	OpTypeJmpDirectCond:      "jmp-direct-cond",
	OpTypeJmpIndirectCond:    "jmp-indirect-cond",
	OpTypeCallDirectCond:     "call-direct-cond",
	OpTypeCallIndirectCond:   "call-indirect-cond",
	OpTypeError:              "error",
}

func (o OpType) String() string {
	if s, ok := opTypeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("OpType(%d)", uint8(o))
}

// IsConditional reports whether o is one of the conditional kinds.
func (o OpType) IsConditional() bool {
	return o >= OpTypeRetCond && o <= OpTypeCallIndirectCond
}

// ClassifyBranch maps a static branch class to its OpType. Classes that do
// not decode to a concrete kind, such as the dummy source node's, map to
// OpTypeError.
func ClassifyBranch(c bt9.BranchClass) OpType {
	cond := c.Conditionality == bt9.Conditional
	if c.Conditionality == bt9.ConditionalityUnknown {
		return OpTypeError
	}

	switch {
	case c.Type == bt9.TypeReturn:
		return pick(cond, OpTypeRetCond, OpTypeRetUncond)
	case c.Directness == bt9.Indirect && c.Type == bt9.TypeCall:
		return pick(cond, OpTypeCallIndirectCond, OpTypeCallIndirectUncond)
	case c.Directness == bt9.Indirect && c.Type == bt9.TypeJump:
		return pick(cond, OpTypeJmpIndirectCond, OpTypeJmpIndirectUncond)
	case c.Directness == bt9.Direct && c.Type == bt9.TypeCall:
		return pick(cond, OpTypeCallDirectCond, OpTypeCallDirectUncond)
	case c.Directness == bt9.Direct && c.Type == bt9.TypeJump:
		return pick(cond, OpTypeJmpDirectCond, OpTypeJmpDirectUncond)
	}
	return OpTypeError
}

func pick(cond bool, ifCond, ifUncond OpType) OpType {
	if cond {
		return ifCond
	}
	return ifUncond
}
