package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/cbpsim/sim"
	"github.com/inference-sim/cbpsim/sim/bt9"
	_ "github.com/inference-sim/cbpsim/sim/predictor"
	"github.com/inference-sim/cbpsim/sim/trace"
)

var (
	// CLI flags for trace reading
	logLevel   string // Log verbosity level
	windowSize int    // Edge sequence window capacity (entries)

	// CLI flags for the predictor
	predictorKind       string // Predictor name
	tableSize           uint32 // Counter table entries
	historyLength       uint32 // gshare global history bits
	predictorConfigPath string // Optional predictor YAML file

	// CLI flags for the run
	branchLogLevel string // Branch log format
	branchLogPath  string // Branch log destination
	maxBranches    uint64 // Stop after this many branch instances
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cbpsim",
	Short: "Trace-driven branch prediction simulator for BT9 traces",
}

// setupLogging applies the --log flag.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runCmd replays a trace through a predictor using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run <trace>",
	Short: "Run the branch prediction simulation over a BT9 trace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := resolvePredictorConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if !trace.IsValidLevel(branchLogLevel) {
			logrus.Fatalf("Unknown branch log level %q; valid levels: none, csv, binary", branchLogLevel)
		}
		logPath := branchLogPath
		if logPath == "" {
			logPath = trace.DefaultPath(args[0], trace.Level(branchLogLevel))
		}

		logrus.Infof("Starting simulation of %s with predictor=%q, window=%d", args[0], cfg.Kind, windowSize)
		startTime := time.Now()

		if err := runTrace(args[0], cfg, trace.Level(branchLogLevel), logPath, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// resolvePredictorConfig loads --predictor-config when given; flags set on
// the command line override the file.
func resolvePredictorConfig(cmd *cobra.Command) (sim.PredictorConfig, error) {
	var cfg sim.PredictorConfig
	if predictorConfigPath != "" {
		loaded, err := sim.LoadPredictorConfig(predictorConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}
	flags := cmd.Flags()
	if predictorConfigPath == "" || flags.Changed("predictor") {
		cfg.Kind = predictorKind
	}
	if predictorConfigPath == "" || flags.Changed("table-size") {
		cfg.TableSize = tableSize
	}
	if predictorConfigPath == "" || flags.Changed("history-length") {
		cfg.HistoryLength = historyLength
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid predictor configuration: %w", err)
	}
	return cfg, nil
}

// runTrace simulates one trace and writes the report to out.
func runTrace(path string, cfg sim.PredictorConfig, level trace.Level, logPath string, out io.Writer) error {
	reader, err := bt9.Open(path, bt9.WithWindowSize(windowSize))
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()
	for _, w := range reader.Warnings() {
		logrus.Warn(w.String())
	}

	predictor, err := sim.NewPredictor(cfg)
	if err != nil {
		return err
	}
	branchLog, err := trace.Create(logPath, level)
	if err != nil {
		return err
	}

	s, err := sim.NewSimulator(reader, predictor, sim.SimConfig{
		MaxBranches: maxBranches,
		OnBranch: func(o sim.BranchOutcome) error {
			return branchLog.Write(toRecord(o))
		},
	})
	if err != nil {
		_ = branchLog.Close()
		return err
	}
	runErr := s.Run()
	if err := branchLog.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}
	if level != trace.LevelNone && level != "" {
		logrus.Infof("Branch log written to %s", logPath)
	}

	if err := s.Metrics().Print(out); err != nil {
		return err
	}
	return s.Metrics().PrintBreakdown(out)
}

// toRecord converts a simulated branch to a branch log row. Branches with
// no op type keep only their PC.
func toRecord(o sim.BranchOutcome) trace.Record {
	if o.OpType == sim.OpTypeError {
		return trace.Record{PC: o.PC, Unresolved: true}
	}
	return trace.Record{
		PC:          o.PC,
		Conditional: o.Conditional,
		Taken:       o.Taken,
		Predicted:   o.Predicted,
		OpType:      uint8(o.OpType),
		Target:      o.Target,
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().IntVar(&windowSize, "window-size", bt9.DefaultWindowSize, "Edge sequence entries kept in memory (at least 2)")

	// Predictor configs
	runCmd.Flags().StringVar(&predictorKind, "predictor", sim.PredictorAlwaysTaken, "Predictor (always-taken, bimodal, gshare)")
	runCmd.Flags().Uint32Var(&tableSize, "table-size", 0, "Counter table entries, power of 2 (0 = predictor default)")
	runCmd.Flags().Uint32Var(&historyLength, "history-length", 0, "gshare global history bits (0 = predictor default)")
	runCmd.Flags().StringVar(&predictorConfigPath, "predictor-config", "", "Path to predictor YAML config; explicit flags override it")

	// Run configs
	runCmd.Flags().StringVar(&branchLogLevel, "branch-log", "none", "Per-branch log format (none, csv, binary)")
	runCmd.Flags().StringVar(&branchLogPath, "branch-log-path", "", "Branch log path (default <trace>.csv or <trace>.dat)")
	runCmd.Flags().Uint64Var(&maxBranches, "max-branches", 0, "Stop after this many branch instances (0 = whole trace)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
