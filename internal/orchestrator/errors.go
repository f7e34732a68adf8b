package orchestrator

import (
	"fmt"
	"strings"

	"github.com/reactforge/reactforge/internal/agent"
)

// AbortError is returned by Run when failFast stops the build. It names the
// agents that failed in the aborting wave and carries the partial report
// built from whatever results exist, for the caller to inspect.
type AbortError struct {
	FailedAgents []agent.ID
	Report       *Report
}

func (e *AbortError) Error() string {
	names := make([]string, len(e.FailedAgents))
	for i, id := range e.FailedAgents {
		names[i] = string(id)
	}
	return fmt.Sprintf("build aborted: agent(s) failed: %s", strings.Join(names, ", "))
}
