// Package workflow owns the lifecycle state machine shared by every
// record kind: the legal transitions between states and the roles that
// may initiate a transition away from each state.
package workflow

import "github.com/sitetrace/sitetrace/internal/sitetrace/types"

// transitions is the full directed graph of legal status changes.
// archived is terminal; revoked can only be archived.  Cycles are
// intentional (approved <-> under_review, open <-> in_progress, ...).
var transitions = map[types.State][]types.State{
	types.StateDraft:       {types.StateSubmitted, types.StateArchived},
	types.StateSubmitted:   {types.StateUnderReview, types.StateDraft},
	types.StateUnderReview: {types.StateApproved, types.StateSubmitted},
	types.StateApproved:    {types.StateClosed, types.StateUnderReview, types.StateSuspended, types.StateRevoked},
	types.StateClosed:      {types.StateArchived},
	types.StateArchived:    {},
	types.StateSuspended:   {types.StateApproved, types.StateRevoked},
	types.StateRevoked:     {types.StateArchived},
	types.StateOpen:        {types.StateInProgress, types.StateArchived},
	types.StateInProgress:  {types.StateCompleted, types.StateOpen},
	types.StateCompleted:   {types.StateVerified, types.StateInProgress},
	types.StateVerified:    {types.StateClosed, types.StateCompleted},
}

// CanTransition reports whether moving a record from one status to
// another is declared in the transition graph.  Unknown states are
// never valid endpoints.
func CanTransition(from, to types.State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Successors returns the states reachable in one step from the given
// state.  The returned slice is a copy.
func Successors(from types.State) []types.State {
	next := transitions[from]
	out := make([]types.State, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether a state has no outgoing transitions.
func IsTerminal(s types.State) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// AllowedRoles returns which roles may initiate a transition away from
// the given state.  This is advisory metadata for the caller's
// permission check; the engine does not authenticate anyone.
func AllowedRoles(from types.State) []types.Role {
	switch from {
	case types.StateDraft, types.StateOpen, types.StateInProgress, types.StateCompleted:
		return []types.Role{types.RoleWorker, types.RoleSupervisor, types.RoleManager, types.RoleAdmin}
	case types.StateSubmitted, types.StateSuspended, types.StateVerified:
		return []types.Role{types.RoleSupervisor, types.RoleManager, types.RoleAdmin}
	case types.StateUnderReview, types.StateApproved, types.StateClosed, types.StateRevoked:
		return []types.Role{types.RoleManager, types.RoleAdmin}
	default:
		return nil
	}
}

// RoleAllowed reports whether the given role may initiate a transition
// away from the given state.
func RoleAllowed(from types.State, role types.Role) bool {
	for _, r := range AllowedRoles(from) {
		if r == role {
			return true
		}
	}
	return false
}

// InitialState returns the conventional starting status for a record
// kind.  CAPAs, observations and inspections run on the open ->
// in_progress -> completed -> verified track; everything else starts
// as a draft.
func InitialState(kind types.RecordKind) types.State {
	switch kind {
	case types.KindCapa, types.KindObservation, types.KindInspection:
		return types.StateOpen
	default:
		return types.StateDraft
	}
}
