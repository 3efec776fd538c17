package initphase

import (
	"time"

	"github.com/mrlokans/lingua/internal/ipc"
)

// PhaseResult is the state of one phase in the latest run.
type PhaseResult struct {
	Name       string      `json:"name"`
	Status     PhaseStatus `json:"status"`
	Optional   bool        `json:"optional,omitempty"`
	DependsOn  []string    `json:"dependsOn,omitempty"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
	DurationMs int64       `json:"durationMs"`
	Error      string      `json:"error,omitempty"`
}

// HookError records a hook that failed at some stage of the run.
type HookError struct {
	Hook  string `json:"hook"`
	Stage string `json:"stage"`
	Phase string `json:"phase,omitempty"`
	Error string `json:"error"`
}

// Status is a point-in-time snapshot safe to hand to other goroutines.
type Status struct {
	State      State         `json:"state"`
	Current    string        `json:"current,omitempty"`
	Attempt    int           `json:"attempt"`
	Phases     []PhaseResult `json:"phases"`
	HookErrors []HookError   `json:"hookErrors,omitempty"`
	Error      *ipc.Envelope `json:"error,omitempty"`
	StartedAt  *time.Time    `json:"startedAt,omitempty"`
	FinishedAt *time.Time    `json:"finishedAt,omitempty"`
}

// Phase returns the result for name, if the phase is registered.
func (s Status) Phase(name string) (PhaseResult, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseResult{}, false
}

func (s Status) clone() Status {
	out := s
	out.Phases = make([]PhaseResult, len(s.Phases))
	copy(out.Phases, s.Phases)
	out.HookErrors = append([]HookError(nil), s.HookErrors...)
	return out
}
