package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/cbpsim/sim/bt9"
)

var (
	dumpHeader bool
	dumpNodes  bool
	dumpEdges  bool
)

// dumpCmd prints the parsed static parts of a trace.
var dumpCmd = &cobra.Command{
	Use:   "dump <trace>",
	Short: "Print the header and node/edge tables of a BT9 trace",
	Long:  "Print the header (as YAML) and the node and edge tables (in trace syntax) of a BT9 trace. With no section flags, all three are printed.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		if err := dumpTrace(args[0], cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Dump failed: %v", err)
		}
	},
}

// dumpTrace writes the selected sections of the trace at path to out.
func dumpTrace(path string, out io.Writer) error {
	reader, err := bt9.Open(path, bt9.WithWindowSize(windowSize))
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()
	for _, w := range reader.Warnings() {
		logrus.Warn(w.String())
	}

	all := !dumpHeader && !dumpNodes && !dumpEdges
	if all || dumpHeader {
		if err := writeYAML(out, reader.Header()); err != nil {
			return err
		}
	}
	if all || dumpNodes {
		if err := reader.Nodes().Dump(out); err != nil {
			return err
		}
	}
	if all || dumpEdges {
		if err := reader.Edges().Dump(out); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpHeader, "header", false, "Print the trace header as YAML")
	dumpCmd.Flags().BoolVar(&dumpNodes, "nodes", false, "Print the node table")
	dumpCmd.Flags().BoolVar(&dumpEdges, "edges", false, "Print the edge table")

	rootCmd.AddCommand(dumpCmd)
}
