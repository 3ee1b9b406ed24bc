package graph

import "fmt"

// Validate checks the structural integrity of a graph. It accumulates
// every violation instead of stopping at the first one and never
// mutates the graph.
//
// Checks, in order:
//  1. cycle detection via Kahn's algorithm (reported as one error)
//  2. edges referencing missing source/target nodes (one error each)
//  3. duplicate edges, keyed on the full endpoint 4-tuple
//  4. more than one edge feeding the same (node, port) input
//
// The fan-in check is stricter than the duplicate check: input
// resolution takes the first matching edge, so a second edge into the
// same port would be silently ignored at run time.
func Validate(g *Graph) (bool, []string) {
	var problems []string

	if order := kahnOrder(g); len(order) != len(g.Nodes) {
		problems = append(problems, "graph contains cycles")
	}

	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.SourceNode]; !ok {
			problems = append(problems, fmt.Sprintf("edge %s references non-existent source node: %s", e.ID, e.SourceNode))
		}
		if _, ok := g.Nodes[e.TargetNode]; !ok {
			problems = append(problems, fmt.Sprintf("edge %s references non-existent target node: %s", e.ID, e.TargetNode))
		}
	}

	seen := make(map[string]bool)
	for _, e := range g.Edges {
		sig := e.Signature()
		if seen[sig] {
			problems = append(problems, fmt.Sprintf("duplicate edge: %s", sig))
		}
		seen[sig] = true
	}

	fanIn := make(map[string]string) // (target node, port) -> first source
	for _, e := range g.Edges {
		key := e.TargetNode + "." + e.TargetPort
		if src, ok := fanIn[key]; ok && src != e.SourceNode+"."+e.SourcePort {
			problems = append(problems, fmt.Sprintf("input %s is fed by multiple edges", key))
			continue
		}
		fanIn[key] = e.SourceNode + "." + e.SourcePort
	}

	return len(problems) == 0, problems
}

// kahnOrder runs Kahn's algorithm over the graph and returns the nodes
// it managed to order. A result shorter than the node count means a
// cycle. Seeds are taken in lexicographic node-ID order and successors
// in edge declaration order, so the result is deterministic for
// identical input.
func kahnOrder(g *Graph) []string {
	successors := make(map[string][]string, len(g.Nodes))
	inDegree := make(map[string]int, len(g.Nodes))

	for id := range g.Nodes {
		inDegree[id] = 0
	}
	for _, e := range g.Edges {
		// Edges into or out of unknown nodes are reported separately;
		// counting them here would wedge the sort.
		if _, ok := g.Nodes[e.SourceNode]; !ok {
			continue
		}
		if _, ok := g.Nodes[e.TargetNode]; !ok {
			continue
		}
		successors[e.SourceNode] = append(successors[e.SourceNode], e.TargetNode)
		inDegree[e.TargetNode]++
	}

	var queue []string
	for _, id := range g.NodeIDs() {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var order []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, succ := range successors[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}
	return order
}
