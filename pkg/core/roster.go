package core

import "errors"

// Role labels the part an actor plays in the roster.
type Role string

const (
	RoleAssigner  Role = "role_assigner"
	RoleSolver    Role = "solver"
	RoleCritic    Role = "critic"
	RoleManager   Role = "manager"
	RoleEvaluator Role = "evaluator"
)

var (
	ErrNoAssigner  = errors.New("roster: exactly one role assigner is required")
	ErrNoSolver    = errors.New("roster: exactly one solver is required")
	ErrNoEvaluator = errors.New("roster: exactly one evaluator is required")
)

// Roster maps role tags to actors. Assigner, Solver, and Evaluator must each
// be exactly one actor; Critics is an ordered set of zero or more; Manager is
// optional, and its presence is the marker that enables the manager-guided
// decision protocol. The roster is shared by reference and never replaced by
// the controller.
type Roster struct {
	Assigner  Actor
	Solver    Actor
	Critics   []Actor
	Manager   Actor
	Evaluator Actor
}

// Validate checks the exactly-one constraints.
func (r *Roster) Validate() error {
	if r.Assigner == nil {
		return ErrNoAssigner
	}
	if r.Solver == nil {
		return ErrNoSolver
	}
	if r.Evaluator == nil {
		return ErrNoEvaluator
	}
	return nil
}

// Candidates returns the planning candidate list: the solver followed by the
// critics in roster order. The slice is a fresh copy.
func (r *Roster) Candidates() []Actor {
	out := make([]Actor, 0, 1+len(r.Critics))
	out = append(out, r.Solver)
	out = append(out, r.Critics...)
	return out
}

// HasManager reports whether a manager actor is present.
func (r *Roster) HasManager() bool {
	return r.Manager != nil
}
