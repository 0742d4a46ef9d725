package store

import (
	"context"
	"strings"
	"time"

	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
)

// RecordPatch is a partial update of a record's base fields.  Nil
// pointers leave the field untouched.  When Status is set the store
// validates the transition against the workflow graph before applying
// anything.
type RecordPatch struct {
	Status      *types.State
	Priority    *types.Priority
	Owner       *string
	Assignee    *string
	Title       *string
	Location    *string
	Description *string
	DueDate     *time.Time
	ClearDue    bool

	// ExpectedVersion, when non-zero, must match the stored record's
	// current version or the update fails with ErrVersionConflict.
	ExpectedVersion int64
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Status == nil && p.Priority == nil && p.Owner == nil &&
		p.Assignee == nil && p.Title == nil && p.Location == nil &&
		p.Description == nil && p.DueDate == nil && !p.ClearDue
}

// RecordFilter selects records for List.  Zero values match everything.
type RecordFilter struct {
	Kind     types.RecordKind
	Status   types.State
	Statuses []types.State
	Assignee string
	// Search matches case-insensitively against title, number and
	// description.
	Search string
	// DueBefore matches records whose due date is set and earlier than
	// the given instant.
	DueBefore *time.Time
}

// Matches reports whether the record satisfies the filter.  Both store
// implementations share this predicate so List behaves identically
// regardless of backend.
func (f RecordFilter) Matches(r types.Record) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if r.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Assignee != "" && r.Assignee != f.Assignee {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Title), q) &&
			!strings.Contains(strings.ToLower(r.Number), q) &&
			!strings.Contains(strings.ToLower(r.Description), q) {
			return false
		}
	}
	if f.DueBefore != nil {
		if r.DueDate == nil || !r.DueDate.Before(*f.DueBefore) {
			return false
		}
	}
	return true
}

// MutateFn edits a record in place inside a store transaction.  It may
// change the status and kind-specific details; the store validates any
// status change against the workflow graph and stamps UpdatedAt and
// Version before persisting.
type MutateFn func(r *types.Record) error

// RecordStore is the single source of truth for records, their audit
// trails and their secondary collections.  Implementations must apply
// each mutation and its audit entries atomically — a failed call leaves
// no partial state behind.
type RecordStore interface {
	// Create inserts a new record together with its "created" audit
	// entry.  Missing ID, Number, timestamps and Version are filled in.
	// Fails with ErrDuplicateID if the id is already present.
	Create(ctx context.Context, rec types.Record, actor string) (types.Record, error)

	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, id string) (types.Record, error)

	// Update merges the patch into the record.  A status change is
	// validated against the workflow graph (ErrInvalidTransition) and
	// produces exactly one status_change audit entry; any other change
	// produces one updated entry.  UpdatedAt advances and Version
	// increments in the same transaction.
	Update(ctx context.Context, id string, patch RecordPatch, actor string) (types.Record, error)

	// Mutate applies fn to the record and appends the given audit
	// entries atomically.  Used by the kind-specific lifecycle rules
	// where a detail change, a status change and its audit entry must
	// land together.
	Mutate(ctx context.Context, id string, fn MutateFn, entries ...types.AuditEntry) (types.Record, error)

	// AppendAudit adds one entry to the record's trail.  Fails with
	// ErrNotFound for an unknown record id, never otherwise.
	AppendAudit(ctx context.Context, id string, entry types.AuditEntry) error

	// AuditLog returns the record's entries, most recent first.
	AuditLog(ctx context.Context, id string) ([]types.AuditEntry, error)

	// List returns the records matching the filter.  Each call produces
	// a fresh result; ordering is newest first by creation time.
	List(ctx context.Context, filter RecordFilter) ([]types.Record, error)

	// Delete removes the record and all of its audit, link and evidence
	// collections atomically.
	Delete(ctx context.Context, id string) error

	// AddLink appends a linked-record reference owned by link.RecordID.
	AddLink(ctx context.Context, link types.LinkedRecord) (types.LinkedRecord, error)

	// Links returns the record's linked-record references in insertion
	// order.
	Links(ctx context.Context, id string) ([]types.LinkedRecord, error)

	// AddEvidence appends an evidence reference owned by ev.RecordID.
	AddEvidence(ctx context.Context, ev types.Evidence) (types.Evidence, error)

	// Evidence returns the record's evidence references in insertion
	// order.
	Evidence(ctx context.Context, id string) ([]types.Evidence, error)
}
