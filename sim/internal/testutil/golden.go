// Package testutil provides shared test infrastructure for the branch
// prediction simulator. It holds the golden dataset types and assertion
// helpers used by the sim/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase represents a single test case from the golden dataset.
type GoldenTestCase struct {
	Name          string        `json:"name"`
	Trace         string        `json:"trace"` // file name under testdata/traces/
	WindowSize    int           `json:"window_size"`
	Predictor     string        `json:"predictor"`
	TableSize     uint32        `json:"table_size"`
	HistoryLength uint32        `json:"history_length"`
	Metrics       GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected end-of-run report of a golden test case.
type GoldenMetrics struct {
	TraceName string `json:"trace_name"`

	// Exact match counts
	Instructions      uint64 `json:"instructions"`
	BranchCount       uint64 `json:"branch_count"` // NUM_BR as reported
	Branches          uint64 `json:"branches"`     // instances simulated, dummy source included
	Conditional       uint64 `json:"conditional"`
	Unconditional     uint64 `json:"unconditional"`
	Mispredictions    uint64 `json:"mispredictions"`
	SkippedDummyNodes uint64 `json:"skipped_dummy_nodes"`

	MispredPerKiloInst float64 `json:"mispred_per_1k_inst"`
}

// testdataDir resolves the repo root testdata/ directory relative to this
// source file: sim/internal/testutil/ → testdata/.
func testdataDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata")
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	path := filepath.Join(testdataDir(t), "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// TracePath returns the path of a golden trace file.
func TracePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testdataDir(t), "traces", name)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
