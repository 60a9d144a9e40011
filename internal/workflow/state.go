package workflow

import "github.com/temirov/auditdesk/internal/apiclient"

// State is the lifecycle position of an audit.
type State string

// Lifecycle states.
const (
	StateDraft      State = "draft"
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// DeriveState computes the lifecycle state of an audit; a nil audit is a Draft.
func DeriveState(audit *apiclient.Audit) State {
	switch {
	case audit == nil:
		return StateDraft
	case audit.IsCompleted:
		return StateCompleted
	case len(audit.Checklists) > 0:
		return StateInProgress
	default:
		return StateNotStarted
	}
}

// Terminal reports whether no further transitions are possible.
func (state State) Terminal() bool {
	return state == StateCompleted
}
