package types

import "time"

// AuditAction is the controlled vocabulary of audit trail actions.
type AuditAction string

const (
	ActionCreated          AuditAction = "created"
	ActionStatusChange     AuditAction = "status_change"
	ActionUpdated          AuditAction = "updated"
	ActionPermitSuspended  AuditAction = "permit_suspended"
	ActionPermitRevoked    AuditAction = "permit_revoked"
	ActionPermitReinstated AuditAction = "permit_reinstated"
	ActionCapaLinked       AuditAction = "capa_linked"
	ActionCapaEscalated    AuditAction = "capa_escalated"
	ActionSignedRoster     AuditAction = "signed_roster"
	ActionSignedPermit     AuditAction = "signed_permit"
	ActionLinkAdded        AuditAction = "link_added"
	ActionEvidenceAdded    AuditAction = "evidence_added"
)

// AuditEntry is one immutable line in a record's audit trail.  Entries
// are never edited or deleted and are always read back most recent
// first.
type AuditEntry struct {
	ID         string      `json:"id"`
	RecordID   string      `json:"record_id"`
	At         time.Time   `json:"at"`
	Actor      string      `json:"actor,omitempty"`
	Action     AuditAction `json:"action"`
	FromStatus *State      `json:"from_status,omitempty"`
	ToStatus   *State      `json:"to_status,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}
