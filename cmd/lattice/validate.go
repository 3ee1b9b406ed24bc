package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/latticelabs/lattice/pkg/graph"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph-file>",
	Short: "Check a graph definition for consistency",
	Long:  `Loads a graph from disk and reports structural problems: duplicate IDs, dangling edges, and cycles.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g, err := graph.LoadFile(args[0])
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}

		valid, problems := graph.Validate(g)
		if !valid {
			fmt.Printf("Graph '%s' is invalid:\n", g.ID)
			for _, p := range problems {
				fmt.Printf("  - %s\n", p)
			}
			os.Exit(1)
		}
		fmt.Println("Graph is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
