package graph

// ExecutionOrder returns a topological ordering of the graph's nodes.
// The graph is validated first; a *ValidationError is returned if any
// structural check fails. Ordering is deterministic: when several
// nodes are ready at once the tie-break is lexicographic discovery
// order (see kahnOrder).
func ExecutionOrder(g *Graph) ([]string, error) {
	if ok, problems := Validate(g); !ok {
		return nil, &ValidationError{Problems: problems}
	}
	return kahnOrder(g), nil
}

// ParallelBatches groups nodes into dependency waves: wave k holds
// every node whose dependencies are fully contained in waves 0..k-1.
// Nodes within a wave have no dependency relationship and may run
// concurrently; waves are strictly ordered. A wave that cannot make
// progress indicates a residual cycle and yields a *ValidationError.
func ParallelBatches(g *Graph) ([][]string, error) {
	deps := make(map[string]map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.SourceNode]; !ok {
			continue
		}
		if _, ok := g.Nodes[e.TargetNode]; !ok {
			continue
		}
		if deps[e.TargetNode] == nil {
			deps[e.TargetNode] = make(map[string]bool)
		}
		deps[e.TargetNode][e.SourceNode] = true
	}

	ids := g.NodeIDs()
	processed := make(map[string]bool, len(ids))
	var batches [][]string

	for len(processed) < len(ids) {
		var ready []string
		for _, id := range ids {
			if processed[id] {
				continue
			}
			satisfied := true
			for dep := range deps[id] {
				if !processed[dep] {
					satisfied = false
					break
				}
			}
			if satisfied {
				ready = append(ready, id)
			}
		}

		if len(ready) == 0 {
			return nil, &ValidationError{Problems: []string{"cannot resolve dependencies, possible cycle"}}
		}

		batches = append(batches, ready)
		for _, id := range ready {
			processed[id] = true
		}
	}

	return batches, nil
}
