package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a graph document from JSON bytes and normalizes it.
func Parse(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}
	return normalize(&g)
}

// ParseYAML decodes a graph document from YAML bytes and normalizes it.
func ParseYAML(data []byte) (*Graph, error) {
	var g Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}
	return normalize(&g)
}

// LoadFile reads a graph definition from disk. The format is chosen by
// extension: .json is JSON, everything else is treated as YAML.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return Parse(data)
	}
	return ParseYAML(data)
}

// normalize fills derivable fields: node IDs from map keys, edge IDs
// from endpoint pairs, and non-nil containers.
func normalize(g *Graph) (*Graph, error) {
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	for id, n := range g.Nodes {
		if n == nil {
			return nil, fmt.Errorf("node %q has no body", id)
		}
		if n.ID == "" {
			n.ID = id
		}
		if n.ID != id {
			return nil, fmt.Errorf("node key %q does not match node_id %q", id, n.ID)
		}
	}
	for i := range g.Edges {
		e := &g.Edges[i]
		if e.ID == "" {
			e.ID = fmt.Sprintf("%s_%s-%s_%s", e.SourceNode, e.SourcePort, e.TargetNode, e.TargetPort)
		}
	}
	if g.Metadata == nil {
		g.Metadata = make(map[string]any)
	}
	return g, nil
}
