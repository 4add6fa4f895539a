package sim

// Predictor is a conditional-branch direction predictor driven by the trace
// simulator. Implementations live in sim/predictor.
type Predictor interface {
	// GetPrediction returns the predicted direction for the conditional
	// branch at pc. Called once per conditional branch, before UpdatePredictor.
	GetPrediction(pc uint64) bool

	// UpdatePredictor trains on the resolved outcome of a conditional branch.
	UpdatePredictor(pc uint64, op OpType, taken, predicted bool, target uint64)

	// TrackOtherInstruction observes an unconditional branch. Predictors that
	// keep global history use it; others ignore it.
	TrackOtherInstruction(pc uint64, op OpType, taken bool, target uint64)
}

// NewPredictorFunc builds a Predictor from its configuration. Set by
// sim/predictor's init(); nil until that package is imported.
var NewPredictorFunc func(cfg PredictorConfig) (Predictor, error)

// NewPredictor builds the configured predictor through NewPredictorFunc.
func NewPredictor(cfg PredictorConfig) (Predictor, error) {
	if NewPredictorFunc == nil {
		panic("NewPredictorFunc not registered: import sim/predictor to register it " +
			"(add: import _ \"github.com/inference-sim/cbpsim/sim/predictor\")")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewPredictorFunc(cfg)
}
