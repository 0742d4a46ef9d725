package store

import (
	"fmt"
	"time"

	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
	"github.com/sitetrace/sitetrace/internal/sitetrace/workflow"
)

// PatchResult describes what ApplyPatch changed, so the backend can
// build the matching audit entry.
type PatchResult struct {
	StatusChanged bool
	From, To      types.State
	OtherChanged  bool
}

// ApplyPatch merges the patch into the record in place.  A status change
// is validated against the workflow graph; the version check runs first
// so a conflicting writer never gets as far as a transition error.
// UpdatedAt and Version are the caller's job (Touch).
func ApplyPatch(rec *types.Record, p RecordPatch) (PatchResult, error) {
	var res PatchResult

	if p.ExpectedVersion != 0 && p.ExpectedVersion != rec.Version {
		return res, fmt.Errorf("%w: expected version %d, have %d",
			ErrVersionConflict, p.ExpectedVersion, rec.Version)
	}

	if p.Status != nil && *p.Status != rec.Status {
		if !workflow.CanTransition(rec.Status, *p.Status) {
			return res, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, *p.Status)
		}
		res.StatusChanged = true
		res.From = rec.Status
		res.To = *p.Status
		rec.Status = *p.Status
	}

	set := func(dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			res.OtherChanged = true
		}
	}
	set(&rec.Owner, p.Owner)
	set(&rec.Assignee, p.Assignee)
	set(&rec.Title, p.Title)
	set(&rec.Location, p.Location)
	set(&rec.Description, p.Description)

	if p.Priority != nil && *p.Priority != rec.Priority {
		rec.Priority = *p.Priority
		res.OtherChanged = true
	}
	if p.ClearDue {
		if rec.DueDate != nil {
			rec.DueDate = nil
			res.OtherChanged = true
		}
	} else if p.DueDate != nil {
		d := p.DueDate.UTC()
		rec.DueDate = &d
		res.OtherChanged = true
	}

	return res, nil
}

// Touch stamps a mutation: UpdatedAt advances strictly (never equal to
// the previous value, even within one clock tick) and Version
// increments.
func Touch(rec *types.Record, now time.Time) {
	now = now.UTC()
	if !now.After(rec.UpdatedAt) {
		now = rec.UpdatedAt.Add(time.Millisecond)
	}
	rec.UpdatedAt = now
	rec.Version++
}
