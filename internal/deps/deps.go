package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary and what it is for.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after a PATH lookup. Detail holds the resolved
// path when it differs from Command, or the reason the lookup failed.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Blocking reports whether a missing dependency should stop a run.
func (s Status) Blocking() bool {
	return !s.Available && !s.Optional
}

// CheckBinaries looks up each requirement in order.
func CheckBinaries(requirements []Requirement) []Status {
	out := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		out[i] = lookup(req)
	}
	return out
}

func lookup(req Requirement) Status {
	st := Status{Requirement: req}
	if req.Command == "" {
		st.Detail = "command not configured"
		return st
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		st.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return st
	}
	st.Available = true
	if path != req.Command {
		st.Detail = path
	}
	return st
}
