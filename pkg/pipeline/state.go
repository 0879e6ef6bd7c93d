package pipeline

// State identifies where the controller sits in the round loop.
type State string

const (
	StateIdle           State = "idle"
	StateRoleAssignment State = "role_assignment"
	StateDecisionMaking State = "decision_making"
	StateExecution      State = "execution"
	StateEvaluation     State = "evaluation"
	StateAccepted       State = "accepted"
	StateRejected       State = "rejected"
	StateTerminated     State = "terminated"
)

// Terminal reports whether the loop is over for good. Accepted and Rejected
// are resting states between rounds, not terminal ones.
func (s State) Terminal() bool {
	return s == StateTerminated
}

func (s State) String() string {
	return string(s)
}
