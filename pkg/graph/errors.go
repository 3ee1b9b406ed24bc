package graph

import (
	"fmt"
	"strings"
)

// ValidationError reports structural problems found before any node
// runs: cycles, dangling or duplicate edges, conflicting fan-in.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("invalid graph: %s", e.Problems[0])
	}
	return fmt.Sprintf("invalid graph: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}
