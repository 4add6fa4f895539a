// register.go wires the predictor constructors into the sim package's
// registration variable (NewPredictorFunc). This init() runs when any package
// imports sim/predictor, breaking the import cycle between sim/ (interface
// owner) and sim/predictor/ (implementations).
package predictor

import (
	"fmt"

	"github.com/inference-sim/cbpsim/sim"
)

// Defaults for zero-valued PredictorConfig fields.
const (
	DefaultTableSize     = 4096
	DefaultHistoryLength = 12
	DefaultBTBSize       = 256
)

func init() {
	sim.NewPredictorFunc = New
}

// New builds the predictor named by cfg.Kind.
func New(cfg sim.PredictorConfig) (sim.Predictor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tableSize := cfg.TableSize
	if tableSize == 0 {
		tableSize = DefaultTableSize
	}
	switch cfg.Kind {
	case "", sim.PredictorAlwaysTaken:
		return AlwaysTaken{}, nil
	case sim.PredictorBimodal:
		btbSize := cfg.BTBSize
		if btbSize == 0 {
			btbSize = DefaultBTBSize
		}
		return NewBimodal(tableSize, btbSize), nil
	case sim.PredictorGShare:
		history := cfg.HistoryLength
		if history == 0 {
			history = DefaultHistoryLength
		}
		return NewGShare(tableSize, history), nil
	default:
		panic(fmt.Sprintf("unhandled predictor %q", cfg.Kind))
	}
}
