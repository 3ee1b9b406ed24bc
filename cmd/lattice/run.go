package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/latticelabs/lattice"
	"github.com/latticelabs/lattice/internal/logging"
	"github.com/latticelabs/lattice/internal/presentation/tui"
	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <graph-file>",
	Short: "Execute a graph from a JSON or YAML file",
	Long:  `Loads a graph definition from disk, executes it, and prints the per-node outputs.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inputs, _ := cmd.Flags().GetStringToString("input")
		parallel, _ := cmd.Flags().GetBool("parallel")
		stream, _ := cmd.Flags().GetBool("stream")
		jsonMode, _ := cmd.Flags().GetBool("json")
		debug, _ := cmd.Flags().GetBool("debug")

		if err := runGraph(args[0], inputs, parallel, stream, jsonMode, debug); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringToStringP("input", "i", nil, "Execution input as key=value (repeatable)")
	runCmd.Flags().Bool("parallel", false, "Execute independent nodes concurrently")
	runCmd.Flags().Bool("stream", false, "Print execution events as NDJSON instead of the final result")
	runCmd.Flags().Bool("json", false, "Print the result as JSON")
}

func runGraph(path string, rawInputs map[string]string, parallel, stream, jsonMode, debug bool) error {
	g, err := graph.LoadFile(path)
	if err != nil {
		return err
	}

	eng := lattice.New(lattice.WithLogger(createLogger(debug)))

	inputs := make(map[string]any, len(rawInputs))
	for k, v := range rawInputs {
		inputs[k] = v
	}

	ctx := context.Background()

	if stream {
		enc := json.NewEncoder(os.Stdout)
		for ev := range eng.ExecuteStreaming(ctx, g, inputs) {
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}
		return nil
	}

	var res engine.Result
	var execErr error
	if parallel {
		res, execErr = eng.ExecuteParallel(ctx, g, inputs)
	} else {
		res, execErr = eng.Execute(ctx, g, inputs)
	}

	if jsonMode || !tui.IsInteractive() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		tui.PrintBanner(lattice.Version)
		tui.PrintResult(res)
	}

	// A failed node is reported through the result, not the exit path,
	// unless the run never started.
	var verr *graph.ValidationError
	if errors.As(execErr, &verr) {
		return execErr
	}
	return nil
}

func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}
