package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/latticelabs/lattice/internal/adapters/mcp"
	"github.com/latticelabs/lattice/internal/adapters/memory"
	"github.com/latticelabs/lattice/internal/logging"
	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/nodes"
	"github.com/latticelabs/lattice/pkg/registry"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the Lattice engine as an MCP server.
This allows AI agents to execute, validate, and inspect graphs as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		graphsDir, _ := cmd.Flags().GetString("graphs")

		// Logs go to stderr so they cannot corrupt JSON-RPC on stdout.
		logger := logging.New(slog.LevelInfo)
		slog.SetDefault(logger)

		graphs := memory.NewGraphStore()
		if graphsDir != "" {
			if err := loadGraphsDir(graphsDir, graphs); err != nil {
				log.Fatalf("Error loading graphs: %v", err)
			}
		}

		reg := registry.New()
		x := engine.New(reg, engine.WithLogger(logger))
		nodes.RegisterBuiltins(reg, nodes.Config{Graphs: graphs, Runner: x})

		srv := mcp.NewServer(x, reg, graphs)

		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			slog.Info("Starting Lattice MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				slog.Error("MCP server execution failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			slog.Info("Starting Lattice MCP Server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				if err != http.ErrServerClosed {
					slog.Error("MCP server execution failed", "err", err)
					os.Exit(1)
				}
			}
			slog.Info("MCP server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().StringP("graphs", "g", "", "Directory of graph files to preload")
}

// loadGraphsDir loads every .json/.yaml/.yml graph file in a directory
// into the store so MCP tools can reference them by ID or name.
func loadGraphsDir(dir string, store *memory.GraphStore) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		g, err := graph.LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if err := store.Save(context.Background(), g); err != nil {
			return err
		}
		slog.Info("loaded graph", "graph_id", g.ID, "file", entry.Name())
	}
	return nil
}
