package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
	"github.com/sitetrace/sitetrace/internal/sitetrace/workflow"
)

// PermitService implements the permit-specific lifecycle actions:
// suspension, revocation and reinstatement.  Each action is a single
// atomic mutation pairing the status change, the reason field and one
// audit entry.
type PermitService struct {
	store store.RecordStore
}

func NewPermitService(st store.RecordStore) *PermitService {
	return &PermitService{store: st}
}

// Suspend takes an active permit out of service.  A non-empty reason is
// mandatory.
func (s *PermitService) Suspend(ctx context.Context, id string, actor types.Actor, reason string) (types.Record, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return types.Record{}, fmt.Errorf("%w: a suspension reason is required", store.ErrValidation)
	}

	rec, err := s.precheck(ctx, id, actor)
	if err != nil {
		return types.Record{}, err
	}

	entry := store.NewEntry(id, actor.Name, types.ActionPermitSuspended)
	from, to := rec.Status, types.StateSuspended
	entry.FromStatus = &from
	entry.ToStatus = &to
	entry.Detail = reason

	return s.store.Mutate(ctx, id, func(r *types.Record) error {
		ensurePermitDetails(r)
		r.Status = types.StateSuspended
		r.Permit.SuspensionReason = reason
		return nil
	}, entry)
}

// Revoke permanently withdraws a permit.  A non-empty reason is
// mandatory; a revoked permit can only be archived afterwards.
func (s *PermitService) Revoke(ctx context.Context, id string, actor types.Actor, reason string) (types.Record, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return types.Record{}, fmt.Errorf("%w: a revocation reason is required", store.ErrValidation)
	}

	rec, err := s.precheck(ctx, id, actor)
	if err != nil {
		return types.Record{}, err
	}

	entry := store.NewEntry(id, actor.Name, types.ActionPermitRevoked)
	from, to := rec.Status, types.StateRevoked
	entry.FromStatus = &from
	entry.ToStatus = &to
	entry.Detail = reason

	return s.store.Mutate(ctx, id, func(r *types.Record) error {
		ensurePermitDetails(r)
		r.Status = types.StateRevoked
		r.Permit.RevocationReason = reason
		return nil
	}, entry)
}

// Reinstate returns a suspended permit to approved and clears the
// suspension reason.  No reason is taken.
func (s *PermitService) Reinstate(ctx context.Context, id string, actor types.Actor) (types.Record, error) {
	rec, err := s.precheck(ctx, id, actor)
	if err != nil {
		return types.Record{}, err
	}
	if rec.Status != types.StateSuspended {
		return types.Record{}, fmt.Errorf("%w: permit %s is %s, not suspended",
			store.ErrInvalidTransition, rec.Number, rec.Status)
	}

	entry := store.NewEntry(id, actor.Name, types.ActionPermitReinstated)
	from, to := rec.Status, types.StateApproved
	entry.FromStatus = &from
	entry.ToStatus = &to

	return s.store.Mutate(ctx, id, func(r *types.Record) error {
		ensurePermitDetails(r)
		r.Status = types.StateApproved
		r.Permit.SuspensionReason = ""
		return nil
	}, entry)
}

// precheck loads the record and applies the rules shared by all three
// actions: it must be a permit, it must not already be in a state the
// permit lifecycle treats as final, and the actor's role must be
// allowed to move it.
func (s *PermitService) precheck(ctx context.Context, id string, actor types.Actor) (types.Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return types.Record{}, err
	}
	if rec.Kind != types.KindPermit {
		return types.Record{}, fmt.Errorf("%w: record %s is a %s, not a permit",
			store.ErrValidation, rec.Number, rec.Kind)
	}
	switch rec.Status {
	case types.StateRevoked, types.StateClosed, types.StateArchived:
		return types.Record{}, fmt.Errorf("%w: permit %s is %s",
			store.ErrInvalidTransition, rec.Number, rec.Status)
	}
	if !workflow.RoleAllowed(rec.Status, actor.Role) {
		return types.Record{}, fmt.Errorf("%w: %s cannot act on a %s permit",
			ErrRoleNotAllowed, actor.Role, rec.Status)
	}
	return rec, nil
}

// Permits created without details still get the lifecycle.
func ensurePermitDetails(r *types.Record) {
	if r.Permit == nil {
		r.Permit = &types.PermitDetails{}
	}
}
