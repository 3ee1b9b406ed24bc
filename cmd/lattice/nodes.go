package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/latticelabs/lattice"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the registered node types",
	Run: func(cmd *cobra.Command, args []string) {
		jsonMode, _ := cmd.Flags().GetBool("json")

		eng := lattice.New()
		specs := eng.Registry().Specs()

		if jsonMode {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(specs); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		for _, spec := range specs {
			fmt.Printf("%-16s %s (%s)\n", spec.Type, spec.DisplayName, spec.Category)
			if spec.Description != "" {
				fmt.Printf("%-16s %s\n", "", spec.Description)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(nodesCmd)

	nodesCmd.Flags().Bool("json", false, "Print specs as JSON")
}
