package sim_test

// Blank import triggers sim/predictor's init(), which registers NewPredictorFunc.
// This allows package sim's internal test files to build predictors through
// NewPredictor without directly importing sim/predictor (which would create an
// import cycle).
import _ "github.com/inference-sim/cbpsim/sim/predictor"
