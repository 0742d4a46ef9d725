package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
	"github.com/sitetrace/sitetrace/internal/sitetrace/workflow"
)

var (
	// ErrRoleNotAllowed means the actor's role may not initiate a
	// transition away from the record's current status.
	ErrRoleNotAllowed = errors.New("role not allowed for this transition")

	// ErrActorRequired means the operation needs a named actor for the
	// audit trail.
	ErrActorRequired = errors.New("actor is required")
)

// RecordService is the generic record API: create, update, status
// changes, deletion, listing and audit retrieval.  The permission gate
// on transitions lives here; the transition graph itself is enforced a
// second time inside the store.
type RecordService struct {
	store  store.RecordStore
	logger *log.Logger
}

func NewRecordService(st store.RecordStore, logger *log.Logger) *RecordService {
	return &RecordService{store: st, logger: logger}
}

func (s *RecordService) Create(ctx context.Context, rec types.Record, actor types.Actor) (types.Record, error) {
	if strings.TrimSpace(actor.Name) == "" {
		return types.Record{}, ErrActorRequired
	}
	created, err := s.store.Create(ctx, rec, actor.Name)
	if err != nil {
		return types.Record{}, err
	}
	s.logger.Printf("record created kind=%s number=%s by=%s", created.Kind, created.Number, actor.Name)
	return created, nil
}

func (s *RecordService) Get(ctx context.Context, id string) (types.Record, error) {
	return s.store.Get(ctx, id)
}

func (s *RecordService) List(ctx context.Context, filter store.RecordFilter) ([]types.Record, error) {
	return s.store.List(ctx, filter)
}

func (s *RecordService) AuditLog(ctx context.Context, id string) ([]types.AuditEntry, error) {
	return s.store.AuditLog(ctx, id)
}

// Update merges a partial patch.  A status change is gated on the
// actor's role before the store validates the transition itself.
func (s *RecordService) Update(ctx context.Context, id string, patch store.RecordPatch, actor types.Actor) (types.Record, error) {
	if strings.TrimSpace(actor.Name) == "" {
		return types.Record{}, ErrActorRequired
	}
	if patch.Status != nil {
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return types.Record{}, err
		}
		if current.Status != *patch.Status && !workflow.RoleAllowed(current.Status, actor.Role) {
			return types.Record{}, fmt.Errorf("%w: %s cannot move a record out of %s",
				ErrRoleNotAllowed, actor.Role, current.Status)
		}
	}
	return s.store.Update(ctx, id, patch, actor.Name)
}

// ChangeStatus moves the record to a new workflow state.
func (s *RecordService) ChangeStatus(ctx context.Context, id string, to types.State, actor types.Actor) (types.Record, error) {
	return s.Update(ctx, id, store.RecordPatch{Status: &to}, actor)
}

// Delete removes the record and everything attached to it.  This is an
// administrative operation; lesser roles get ErrRoleNotAllowed.
func (s *RecordService) Delete(ctx context.Context, id string, actor types.Actor) error {
	if actor.Role != types.RoleAdmin {
		return fmt.Errorf("%w: delete requires admin", ErrRoleNotAllowed)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Printf("record deleted id=%s by=%s", id, actor.Name)
	return nil
}

// AddLink attaches a reference to another record and audits it.
func (s *RecordService) AddLink(ctx context.Context, link types.LinkedRecord, actor types.Actor) (types.LinkedRecord, error) {
	added, err := s.store.AddLink(ctx, link)
	if err != nil {
		return types.LinkedRecord{}, err
	}
	entry := store.NewEntry(link.RecordID, actor.Name, types.ActionLinkAdded)
	entry.Detail = fmt.Sprintf("linked to %s", linkLabel(added))
	if err := s.store.AppendAudit(ctx, link.RecordID, entry); err != nil {
		return types.LinkedRecord{}, err
	}
	return added, nil
}

func (s *RecordService) Links(ctx context.Context, id string) ([]types.LinkedRecord, error) {
	return s.store.Links(ctx, id)
}

// AddEvidence attaches an uploaded-artifact reference and audits it.
func (s *RecordService) AddEvidence(ctx context.Context, ev types.Evidence, actor types.Actor) (types.Evidence, error) {
	added, err := s.store.AddEvidence(ctx, ev)
	if err != nil {
		return types.Evidence{}, err
	}
	entry := store.NewEntry(ev.RecordID, actor.Name, types.ActionEvidenceAdded)
	entry.Detail = fmt.Sprintf("evidence %s attached", added.FileName)
	if err := s.store.AppendAudit(ctx, ev.RecordID, entry); err != nil {
		return types.Evidence{}, err
	}
	return added, nil
}

func (s *RecordService) Evidence(ctx context.Context, id string) ([]types.Evidence, error) {
	return s.store.Evidence(ctx, id)
}

func linkLabel(l types.LinkedRecord) string {
	if l.TargetNumber != "" {
		return l.TargetNumber
	}
	return l.TargetID
}
