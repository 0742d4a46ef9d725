package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
	"github.com/sitetrace/sitetrace/internal/sitetrace/workflow"
)

// FormatNumber renders a human-readable record number from a per-kind,
// per-year sequence, e.g. ("permit", 2026, 12) -> "PTW-2026-0012".
func FormatNumber(kind types.RecordKind, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%04d", kind.NumberPrefix(), year, seq)
}

// PrepareNew normalises a record about to be inserted: fills a missing
// id, stamps timestamps and version, defaults priority and status, and
// checks kind/detail coherence.  The record number is the backend's job
// (it owns the sequence counter) and is not touched here.
func PrepareNew(rec *types.Record, now time.Time) error {
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if !rec.Kind.Valid() {
		return fmt.Errorf("%w: unknown record kind %q", ErrValidation, rec.Kind)
	}
	if rec.Status == "" {
		rec.Status = workflow.InitialState(rec.Kind)
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, rec.Status)
	}
	if rec.Priority == "" {
		rec.Priority = types.PriorityMedium
	}
	if strings.TrimSpace(rec.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := CheckDetails(*rec); err != nil {
		return err
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Version = 1
	return nil
}

// CheckDetails enforces the tagged-union rule: detail structs may only
// be present on the kind they belong to, and a CAPA must carry its
// origin reference.
func CheckDetails(rec types.Record) error {
	if rec.Permit != nil && rec.Kind != types.KindPermit {
		return fmt.Errorf("%w: permit details on %s record", ErrValidation, rec.Kind)
	}
	if rec.Capa != nil && rec.Kind != types.KindCapa {
		return fmt.Errorf("%w: capa details on %s record", ErrValidation, rec.Kind)
	}
	if rec.Observation != nil && rec.Kind != types.KindObservation {
		return fmt.Errorf("%w: observation details on %s record", ErrValidation, rec.Kind)
	}
	if rec.JSA != nil && rec.Kind != types.KindJSA {
		return fmt.Errorf("%w: jsa details on %s record", ErrValidation, rec.Kind)
	}
	if rec.Kind == types.KindCapa {
		if rec.Capa == nil || strings.TrimSpace(rec.Capa.OriginID) == "" {
			return fmt.Errorf("%w: capa requires an originating record reference", ErrValidation)
		}
	}
	return nil
}

// NewEntry builds an audit entry with a fresh id and timestamp.
func NewEntry(recordID, actor string, action types.AuditAction) types.AuditEntry {
	return types.AuditEntry{
		ID:       uuid.New().String(),
		RecordID: recordID,
		At:       time.Now().UTC(),
		Actor:    actor,
		Action:   action,
	}
}

// StatusChangeEntry builds the audit entry paired with a status change.
func StatusChangeEntry(recordID, actor string, from, to types.State) types.AuditEntry {
	e := NewEntry(recordID, actor, types.ActionStatusChange)
	e.FromStatus = &from
	e.ToStatus = &to
	return e
}
