// Package sim replays BT9 branch traces through a branch predictor and
// reports misprediction statistics.
//
// # Reading Guide
//
// Start with these files:
//   - bt9/: the trace reader (header, node and edge tables, windowed edge sequence)
//   - optype.go: how a static branch class decodes to the OpType a predictor sees
//   - simulator.go: the replay loop, heartbeats and per-branch callbacks
//
// # Architecture
//
// The sim package defines the Predictor interface and the driver;
// implementations live in sub-packages:
//   - sim/bt9/: BT9 trace parsing
//   - sim/predictor/: always-taken, bimodal and gshare predictors
//   - sim/trace/: CSV and binary branch logs
//
// sim/predictor registers its constructor via init() by setting the
// package-level factory variable NewPredictorFunc.
package sim
