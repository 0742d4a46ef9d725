package types

// State is one of the fixed lifecycle states a record can occupy.
// Which transitions are legal between states is owned by the workflow
// package; this type is the shared vocabulary.
type State string

const (
	StateDraft       State = "draft"
	StateSubmitted   State = "submitted"
	StateUnderReview State = "under_review"
	StateApproved    State = "approved"
	StateClosed      State = "closed"
	StateArchived    State = "archived"
	StateSuspended   State = "suspended"
	StateRevoked     State = "revoked"
	StateOpen        State = "open"
	StateInProgress  State = "in_progress"
	StateCompleted   State = "completed"
	StateVerified    State = "verified"
)

// States lists every recognised workflow state.
var States = []State{
	StateDraft, StateSubmitted, StateUnderReview, StateApproved,
	StateClosed, StateArchived, StateSuspended, StateRevoked,
	StateOpen, StateInProgress, StateCompleted, StateVerified,
}

// Valid reports whether s is a recognised workflow state.
func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

// Role identifies the class of actor performing an action.  Roles gate
// which transitions an actor may initiate; they do not imply any
// authentication scheme.
type Role string

const (
	RoleWorker     Role = "worker"
	RoleSupervisor Role = "supervisor"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
)

// Actor names the user performing an operation, together with the role
// the caller attributes to them.
type Actor struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}
