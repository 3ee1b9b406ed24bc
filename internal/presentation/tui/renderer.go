package tui

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
)

// NewRenderer returns a function that renders markdown using glamour.
// It auto-detects the terminal background for light/dark styling.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsInteractive reports whether stdout is attached to a terminal.
// Non-interactive output (pipes, CI) gets plain markdown instead of
// ANSI-styled text.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// FormatResult renders an execution result as markdown: a status line
// per node in deterministic order, then the outputs of nodes that
// produced any, then errors.
func FormatResult(result engine.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Execution %s\n\n", result.ExecutionID)
	fmt.Fprintf(&b, "Graph: `%s`\n\n", result.GraphID)

	nodeIDs := make([]string, 0, len(result.Status))
	for id := range result.Status {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	b.WriteString("## Nodes\n\n")
	for _, id := range nodeIDs {
		fmt.Fprintf(&b, "- %s `%s` %s\n", statusGlyph(result.Status[id]), id, result.Status[id])
	}

	if len(result.Outputs) > 0 {
		b.WriteString("\n## Outputs\n\n")
		for _, id := range nodeIDs {
			outputs, ok := result.Outputs[id]
			if !ok || len(outputs) == 0 {
				continue
			}
			ports := make([]string, 0, len(outputs))
			for port := range outputs {
				ports = append(ports, port)
			}
			sort.Strings(ports)
			for _, port := range ports {
				fmt.Fprintf(&b, "- `%s.%s`: %v\n", id, port, outputs[port])
			}
		}
	}

	if len(result.Errors) > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, id := range nodeIDs {
			if msg, ok := result.Errors[id]; ok {
				fmt.Fprintf(&b, "- `%s`: %s\n", id, msg)
			}
		}
	}

	return b.String()
}

// PrintResult writes a result to stdout, styled when interactive.
func PrintResult(result engine.Result) {
	markdown := FormatResult(result)
	if !IsInteractive() {
		fmt.Print(markdown)
		return
	}

	render := NewRenderer()
	styled, err := render(markdown)
	if err != nil {
		fmt.Print(markdown)
		return
	}
	fmt.Print(styled)
}

func statusGlyph(s graph.NodeStatus) string {
	switch s {
	case graph.StatusCompleted:
		return "✓"
	case graph.StatusFailed:
		return "✗"
	case graph.StatusRunning:
		return "▸"
	default:
		return "·"
	}
}
