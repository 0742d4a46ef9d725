package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sitetrace/sitetrace/internal/sitetrace/service"
	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/store/memory"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
)

func newPermitWithRoster(t *testing.T, st *memory.RecordStore) types.Record {
	t.Helper()

	rec, err := st.Create(context.Background(), types.Record{
		Kind:   types.KindPermit,
		Status: types.StateApproved,
		Title:  "Roof access",
		Permit: &types.PermitDetails{
			Roster: []types.RosterEntry{
				{WorkerID: "w-17", Name: "A. Okafor"},
				{WorkerID: "w-22", Name: "L. Costa"},
			},
		},
	}, "m.chen")
	if err != nil {
		t.Fatalf("create permit: %v", err)
	}
	return rec
}

func TestSign_MarksExactlyOneEntry(t *testing.T) {
	st := memory.NewRecordStore()
	svc := service.NewRosterService(st)
	ctx := context.Background()
	rec := newPermitWithRoster(t, st)

	got, err := svc.Sign(ctx, rec.ID, "w-17", worker)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	roster := got.Permit.Roster
	if !roster[0].Signed || roster[0].SignedAt == nil {
		t.Error("expected w-17 signed with timestamp")
	}
	if roster[1].Signed {
		t.Error("w-22 should be untouched")
	}

	log, _ := st.AuditLog(ctx, rec.ID)
	if log[0].Action != types.ActionSignedPermit {
		t.Errorf("expected signed_permit entry, got %s", log[0].Action)
	}
}

func TestSign_JsaUsesRosterAction(t *testing.T) {
	st := memory.NewRecordStore()
	svc := service.NewRosterService(st)
	ctx := context.Background()

	rec, err := st.Create(ctx, types.Record{
		Kind:  types.KindJSA,
		Title: "Trenching JSA",
		JSA: &types.JSADetails{
			Activity: "Trenching",
			Roster:   []types.RosterEntry{{WorkerID: "w-31", Name: "P. Singh"}},
		},
	}, "m.chen")
	if err != nil {
		t.Fatalf("create jsa: %v", err)
	}

	if _, err := svc.Sign(ctx, rec.ID, "w-31", worker); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	log, _ := st.AuditLog(ctx, rec.ID)
	if log[0].Action != types.ActionSignedRoster {
		t.Errorf("expected signed_roster entry, got %s", log[0].Action)
	}
}

func TestSign_ResignOverwritesTimestampAndAuditsAgain(t *testing.T) {
	st := memory.NewRecordStore()
	svc := service.NewRosterService(st)
	ctx := context.Background()
	rec := newPermitWithRoster(t, st)

	first, err := svc.Sign(ctx, rec.ID, "w-17", worker)
	if err != nil {
		t.Fatalf("first Sign: %v", err)
	}
	second, err := svc.Sign(ctx, rec.ID, "w-17", worker)
	if err != nil {
		t.Fatalf("second Sign: %v", err)
	}

	if !second.Permit.Roster[0].Signed {
		t.Error("expected entry still signed")
	}
	if second.Permit.Roster[0].SignedAt.Before(*first.Permit.Roster[0].SignedAt) {
		t.Error("expected re-sign to move the timestamp forward")
	}

	log, _ := st.AuditLog(ctx, rec.ID)
	if len(log) != 3 { // created + two sign-offs
		t.Errorf("expected the repeat sign-off audited, got %d entries", len(log))
	}
}

func TestSign_UnknownWorkerRejectedWithoutMutation(t *testing.T) {
	st := memory.NewRecordStore()
	svc := service.NewRosterService(st)
	ctx := context.Background()
	rec := newPermitWithRoster(t, st)

	_, err := svc.Sign(ctx, rec.ID, "w-99", worker)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, _ := st.Get(ctx, rec.ID)
	if got.Version != rec.Version {
		t.Error("failed sign should not mutate the record")
	}
	log, _ := st.AuditLog(ctx, rec.ID)
	if len(log) != 1 {
		t.Errorf("failed sign should not audit, got %d entries", len(log))
	}
}

func TestSign_KindWithoutRosterRejected(t *testing.T) {
	st := memory.NewRecordStore()
	svc := service.NewRosterService(st)

	rec, err := st.Create(context.Background(), types.Record{
		Kind:  types.KindIncident,
		Title: "No roster here",
	}, "j.ramos")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Sign(context.Background(), rec.ID, "w-17", worker)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
