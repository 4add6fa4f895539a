package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Predictor kinds accepted by PredictorConfig.Kind.
const (
	PredictorAlwaysTaken = "always-taken"
	PredictorBimodal     = "bimodal"
	PredictorGShare      = "gshare"
)

// ValidPredictorKinds is the set of recognized predictor names.
// Shared by Validate() and the sim/predictor factory.
var ValidPredictorKinds = map[string]bool{
	"":                   true,
	PredictorAlwaysTaken: true,
	PredictorBimodal:     true,
	PredictorGShare:      true,
}

// PredictorConfig selects and sizes a predictor. Zero values pick defaults.
type PredictorConfig struct {
	Kind          string `yaml:"kind"`           // "always-taken" (default), "bimodal", "gshare"
	TableSize     uint32 `yaml:"table_size"`     // counter table entries, power of 2 (default 4096)
	HistoryLength uint32 `yaml:"history_length"` // gshare global history bits, 1..32 (default 12)
	BTBSize       uint32 `yaml:"btb_size"`       // bimodal target buffer entries, power of 2 (default 256)
}

// Validate checks the predictor name and table geometry.
func (c PredictorConfig) Validate() error {
	if !ValidPredictorKinds[c.Kind] {
		return fmt.Errorf("unknown predictor %q", c.Kind)
	}
	if c.TableSize != 0 && c.TableSize&(c.TableSize-1) != 0 {
		return fmt.Errorf("table_size must be a power of 2, got %d", c.TableSize)
	}
	if c.BTBSize != 0 && c.BTBSize&(c.BTBSize-1) != 0 {
		return fmt.Errorf("btb_size must be a power of 2, got %d", c.BTBSize)
	}
	if c.HistoryLength > 32 {
		return fmt.Errorf("history_length must be at most 32, got %d", c.HistoryLength)
	}
	return nil
}

// LoadPredictorConfig reads a predictor YAML file. Unknown keys are errors.
func LoadPredictorConfig(path string) (*PredictorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading predictor config: %w", err)
	}
	var cfg PredictorConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing predictor config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("predictor config %s: %w", path, err)
	}
	return &cfg, nil
}

// SimConfig controls a trace simulation run.
type SimConfig struct {
	// MaxBranches stops the run after this many branch instances (0 = whole trace).
	MaxBranches uint64
	// OnBranch, when set, receives every simulated branch in trace order.
	// A returned error aborts the run.
	OnBranch func(BranchOutcome) error
}
