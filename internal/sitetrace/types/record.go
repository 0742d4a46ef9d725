package types

import "time"

// RecordKind is the closed set of safety record kinds.
type RecordKind string

const (
	KindIncident      RecordKind = "incident"
	KindInspection    RecordKind = "inspection"
	KindPermit        RecordKind = "permit"
	KindObservation   RecordKind = "observation"
	KindJSA           RecordKind = "jsa"
	KindCapa          RecordKind = "capa"
	KindSiteDiary     RecordKind = "site_diary"
	KindTraining      RecordKind = "training"
	KindInduction     RecordKind = "induction"
	KindToolboxTalk   RecordKind = "toolbox_talk"
	KindCertification RecordKind = "certification"
)

// Kinds lists every recognised record kind.
var Kinds = []RecordKind{
	KindIncident, KindInspection, KindPermit, KindObservation, KindJSA,
	KindCapa, KindSiteDiary, KindTraining, KindInduction, KindToolboxTalk,
	KindCertification,
}

// Valid reports whether k is a recognised record kind.
func (k RecordKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// NumberPrefix returns the prefix used for human-readable record numbers
// of this kind, e.g. "INC" for incidents ("INC-2026-0001").
func (k RecordKind) NumberPrefix() string {
	switch k {
	case KindIncident:
		return "INC"
	case KindInspection:
		return "INSP"
	case KindPermit:
		return "PTW"
	case KindObservation:
		return "OBS"
	case KindJSA:
		return "JSA"
	case KindCapa:
		return "CAPA"
	case KindSiteDiary:
		return "SD"
	case KindTraining:
		return "TRN"
	case KindInduction:
		return "IND"
	case KindToolboxTalk:
		return "TBT"
	case KindCertification:
		return "CERT"
	default:
		return "REC"
	}
}

// Priority orders records by urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Escalate returns the next priority up, or p unchanged if already critical.
func (p Priority) Escalate() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	case PriorityHigh:
		return PriorityCritical
	default:
		return p
	}
}

// Record is the unit of safety documentation.  ID and Number are assigned
// at creation and never change; UpdatedAt advances on every mutation and
// Version increments with it.
//
// Kind-specific fields live in exactly one of the detail pointers, which
// must match Kind — a permit carries Permit, a CAPA carries Capa, and so
// on.  Kinds without extra fields (incident, site_diary, training, ...)
// carry none.
type Record struct {
	ID          string     `json:"id"`
	Number      string     `json:"number"`
	Kind        RecordKind `json:"kind"`
	Status      State      `json:"status"`
	Priority    Priority   `json:"priority"`
	Owner       string     `json:"owner,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	Title       string     `json:"title"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int64      `json:"version"`

	Permit      *PermitDetails      `json:"permit,omitempty"`
	Capa        *CapaDetails        `json:"capa,omitempty"`
	Observation *ObservationDetails `json:"observation,omitempty"`
	JSA         *JSADetails         `json:"jsa,omitempty"`
}

// PermitDetails carries the permit-to-work extension fields.
type PermitDetails struct {
	ValidFrom        *time.Time    `json:"valid_from,omitempty"`
	ValidTo          *time.Time    `json:"valid_to,omitempty"`
	Hazards          []string      `json:"hazards,omitempty"`
	Controls         []string      `json:"controls,omitempty"`
	Roster           []RosterEntry `json:"roster,omitempty"`
	SuspensionReason string        `json:"suspension_reason,omitempty"`
	RevocationReason string        `json:"revocation_reason,omitempty"`
}

// CapaDetails links a corrective/preventive action back to the record
// that triggered it.
type CapaDetails struct {
	OriginID         string     `json:"origin_id"`
	OriginKind       RecordKind `json:"origin_kind"`
	OriginNumber     string     `json:"origin_number"`
	RequiresEvidence bool       `json:"requires_evidence,omitempty"`
}

// ObservationDetails carries the optional one-way link to a CAPA spawned
// from the observation.
type ObservationDetails struct {
	Category    string `json:"category,omitempty"`
	CapaID      string `json:"capa_id,omitempty"`
	CapaCreated bool   `json:"capa_created,omitempty"`
}

// JSADetails carries the job-safety-analysis extension fields.
type JSADetails struct {
	Activity string        `json:"activity,omitempty"`
	Steps    []string      `json:"steps,omitempty"`
	Roster   []RosterEntry `json:"roster,omitempty"`
}

// RosterEntry is one worker acknowledgment slot on a permit or JSA.
type RosterEntry struct {
	WorkerID string     `json:"worker_id"`
	Name     string     `json:"name,omitempty"`
	Role     string     `json:"role,omitempty"`
	Signed   bool       `json:"signed"`
	SignedAt *time.Time `json:"signed_at,omitempty"`
}

// LinkedRecord is an append-only reference from one record to another.
// The target is stored by value; no cross-record integrity is enforced.
type LinkedRecord struct {
	ID           string     `json:"id"`
	RecordID     string     `json:"record_id"`
	TargetID     string     `json:"target_id"`
	TargetKind   RecordKind `json:"target_kind,omitempty"`
	TargetNumber string     `json:"target_number,omitempty"`
	Relation     string     `json:"relation,omitempty"`
	AddedAt      time.Time  `json:"added_at"`
}

// Evidence is an append-only reference to an uploaded artifact.
type Evidence struct {
	ID          string    `json:"id"`
	RecordID    string    `json:"record_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes,omitempty"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	Note        string    `json:"note,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}
