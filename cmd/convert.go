package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/cbpsim/sim/trace"
)

var convertSummary bool

var convertCmd = &cobra.Command{
	Use:   "convert <branch-log.dat>",
	Short: "Convert a binary branch log to CSV",
	Long:  "Convert a binary branch log written by `run --branch-log binary` to CSV, or summarize it as YAML with --summary. Output is written to stdout for piping.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		if err := convertBranchLog(args[0], cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Branch log conversion failed: %v", err)
		}
	},
}

// convertBranchLog reads the binary log at path and writes CSV rows, or a
// YAML summary when --summary is set, to out.
func convertBranchLog(path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening branch log: %w", err)
	}
	defer func() { _ = f.Close() }()
	records, err := trace.ReadBinary(f)
	if err != nil {
		return err
	}
	logrus.Debugf("read %d branch records from %s", len(records), path)

	if convertSummary {
		log := &trace.BranchLog{Records: records}
		return writeYAML(out, trace.Summarize(log))
	}
	w, err := trace.NewCSVWriter(nopCloser{out})
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return w.Close()
}

// writeYAML marshals v to YAML and writes it to out.
func writeYAML(out io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("YAML marshal failed: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// nopCloser keeps stdout open when a writer closes its destination.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func init() {
	convertCmd.Flags().BoolVar(&convertSummary, "summary", false, "Print aggregate statistics as YAML instead of CSV rows")

	rootCmd.AddCommand(convertCmd)
}
