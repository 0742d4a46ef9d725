package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/store/memory"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
)

func stringPtr(s string) *string { return &s }

func statePtr(s types.State) *types.State { return &s }

func newIncident(t *testing.T, s *memory.RecordStore) types.Record {
	t.Helper()

	rec, err := s.Create(context.Background(), types.Record{
		Kind:  types.KindIncident,
		Title: "Slip on scaffold stairs",
	}, "j.ramos")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return rec
}

// ── Create ───────────────────────────────────────────────────────────────────

func TestCreate_AssignsIDNumberAndCreatedEntry(t *testing.T) {
	s := memory.NewRecordStore()
	rec := newIncident(t, s)

	if rec.ID == "" {
		t.Error("expected generated id")
	}
	if rec.Number == "" {
		t.Error("expected generated number")
	}
	if rec.Status != types.StateDraft {
		t.Errorf("expected initial status draft, got %s", rec.Status)
	}
	if rec.Version != 1 {
		t.Errorf("expected version 1, got %d", rec.Version)
	}

	log, err := s.AuditLog(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("AuditLog: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("expected exactly 1 audit entry after create, got %d", len(log))
	}
	if log[0].Action != types.ActionCreated {
		t.Errorf("expected created entry, got %s", log[0].Action)
	}
	if log[0].Actor != "j.ramos" {
		t.Errorf("expected actor j.ramos, got %q", log[0].Actor)
	}
}

func TestCreate_DuplicateIDRejected(t *testing.T) {
	s := memory.NewRecordStore()
	rec := newIncident(t, s)

	_, err := s.Create(context.Background(), types.Record{
		ID:    rec.ID,
		Kind:  types.KindIncident,
		Title: "Another incident",
	}, "j.ramos")
	if !errors.Is(err, store.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestCreate_NumbersSequencePerKind(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()

	first := newIncident(t, s)
	second := newIncident(t, s)
	permit, err := s.Create(ctx, types.Record{
		Kind:   types.KindPermit,
		Status: types.StateDraft,
		Title:  "Hot work permit",
	}, "j.ramos")
	if err != nil {
		t.Fatalf("Create permit: %v", err)
	}

	if first.Number == second.Number {
		t.Errorf("incident numbers should differ, both %q", first.Number)
	}
	if permit.Number[:3] != "PTW" {
		t.Errorf("expected permit number prefix PTW, got %q", permit.Number)
	}
}

func TestCreate_DetailKindMismatchRejected(t *testing.T) {
	s := memory.NewRecordStore()

	_, err := s.Create(context.Background(), types.Record{
		Kind:   types.KindIncident,
		Title:  "Incident carrying permit details",
		Permit: &types.PermitDetails{},
	}, "j.ramos")
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// ── Update / transitions ─────────────────────────────────────────────────────

func TestUpdate_StatusChainWithAuditEntries(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()
	rec := newIncident(t, s)

	for _, to := range []types.State{types.StateSubmitted, types.StateUnderReview, types.StateApproved} {
		var err error
		rec, err = s.Update(ctx, rec.ID, store.RecordPatch{Status: statePtr(to)}, "m.chen")
		if err != nil {
			t.Fatalf("Update to %s: %v", to, err)
		}
		if rec.Status != to {
			t.Fatalf("expected status %s, got %s", to, rec.Status)
		}
	}

	log, err := s.AuditLog(ctx, rec.ID)
	if err != nil {
		t.Fatalf("AuditLog: %v", err)
	}
	// created + 3 status changes, newest first.
	if len(log) != 4 {
		t.Fatalf("expected 4 audit entries, got %d", len(log))
	}
	top := log[0]
	if top.Action != types.ActionStatusChange {
		t.Fatalf("expected status_change on top, got %s", top.Action)
	}
	if top.FromStatus == nil || *top.FromStatus != types.StateUnderReview {
		t.Errorf("expected from=under_review, got %v", top.FromStatus)
	}
	if top.ToStatus == nil || *top.ToStatus != types.StateApproved {
		t.Errorf("expected to=approved, got %v", top.ToStatus)
	}
}

func TestUpdate_IllegalTransitionRejectedWithoutMutation(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()
	rec := newIncident(t, s)

	rec, err := s.Update(ctx, rec.ID, store.RecordPatch{Status: statePtr(types.StateSubmitted)}, "m.chen")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// submitted -> approved skips review and must fail.
	_, err = s.Update(ctx, rec.ID, store.RecordPatch{
		Status:   statePtr(types.StateApproved),
		Assignee: stringPtr("a.okafor"),
	}, "m.chen")
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.StateSubmitted {
		t.Errorf("status mutated despite failed update: %s", got.Status)
	}
	if got.Assignee != "" {
		t.Errorf("assignee mutated despite failed update: %q", got.Assignee)
	}
	if got.Version != rec.Version {
		t.Errorf("version advanced despite failed update: %d", got.Version)
	}

	log, _ := s.AuditLog(ctx, rec.ID)
	if len(log) != 2 {
		t.Errorf("expected no audit entry for failed update, got %d entries", len(log))
	}
}

func TestUpdate_FieldChangeAdvancesUpdatedAtAndVersion(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()
	rec := newIncident(t, s)

	updated, err := s.Update(ctx, rec.ID, store.RecordPatch{
		Description: stringPtr("Worker slipped on wet step, no injury."),
	}, "j.ramos")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.UpdatedAt.After(rec.UpdatedAt) {
		t.Error("expected UpdatedAt to advance")
	}
	if updated.Version != rec.Version+1 {
		t.Errorf("expected version %d, got %d", rec.Version+1, updated.Version)
	}

	log, _ := s.AuditLog(ctx, rec.ID)
	if len(log) != 2 || log[0].Action != types.ActionUpdated {
		t.Errorf("expected one updated entry on top, got %+v", log)
	}
}

func TestUpdate_VersionConflict(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()
	rec := newIncident(t, s)

	// A racing writer bumped the version first.
	if _, err := s.Update(ctx, rec.ID, store.RecordPatch{
		Description: stringPtr("first writer"),
	}, "j.ramos"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := s.Update(ctx, rec.ID, store.RecordPatch{
		Description:     stringPtr("second writer"),
		ExpectedVersion: rec.Version,
	}, "m.chen")
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestUpdate_UnknownRecord(t *testing.T) {
	s := memory.NewRecordStore()

	_, err := s.Update(context.Background(), "missing", store.RecordPatch{
		Description: stringPtr("x"),
	}, "j.ramos")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ── Audit log ────────────────────────────────────────────────────────────────

func TestAuditLog_ReverseInsertionOrder(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()
	rec := newIncident(t, s)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := s.AppendAudit(ctx, rec.ID, types.AuditEntry{
			At:     base.Add(time.Duration(i) * time.Minute),
			Actor:  "j.ramos",
			Action: types.ActionUpdated,
			Detail: string(rune('a' + i)),
		})
		if err != nil {
			t.Fatalf("AppendAudit %d: %v", i, err)
		}
	}

	log, err := s.AuditLog(ctx, rec.ID)
	if err != nil {
		t.Fatalf("AuditLog: %v", err)
	}
	if len(log) != 6 { // created + 5 appends
		t.Fatalf("expected 6 entries, got %d", len(log))
	}
	for i, want := range []string{"e", "d", "c", "b", "a"} {
		if log[i].Detail != want {
			t.Errorf("entry %d: expected detail %q, got %q", i, want, log[i].Detail)
		}
	}
}

func TestAppendAudit_UnknownRecord(t *testing.T) {
	s := memory.NewRecordStore()

	err := s.AppendAudit(context.Background(), "missing", types.AuditEntry{
		Action: types.ActionUpdated,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ── List ─────────────────────────────────────────────────────────────────────

func TestList_FiltersByKindStatusAndSearch(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()

	newIncident(t, s)
	permit, err := s.Create(ctx, types.Record{
		Kind:   types.KindPermit,
		Status: types.StateApproved,
		Title:  "Confined space entry",
	}, "m.chen")
	if err != nil {
		t.Fatalf("Create permit: %v", err)
	}

	byKind, err := s.List(ctx, store.RecordFilter{Kind: types.KindPermit})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byKind) != 1 || byKind[0].ID != permit.ID {
		t.Errorf("kind filter: expected just the permit, got %d records", len(byKind))
	}

	byStatus, _ := s.List(ctx, store.RecordFilter{Status: types.StateDraft})
	if len(byStatus) != 1 || byStatus[0].Kind != types.KindIncident {
		t.Errorf("status filter: expected just the incident, got %d records", len(byStatus))
	}

	bySearch, _ := s.List(ctx, store.RecordFilter{Search: "confined"})
	if len(bySearch) != 1 || bySearch[0].ID != permit.ID {
		t.Errorf("search filter: expected just the permit, got %d records", len(bySearch))
	}

	all, _ := s.List(ctx, store.RecordFilter{})
	if len(all) != 2 {
		t.Errorf("expected 2 records unfiltered, got %d", len(all))
	}
}

func TestList_DueBefore(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()

	due := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	rec, err := s.Create(ctx, types.Record{
		Kind:    types.KindCapa,
		Title:   "Replace damaged guardrail",
		DueDate: &due,
		Capa:    &types.CapaDetails{OriginID: "origin-1", OriginKind: types.KindIncident},
	}, "m.chen")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cutoff := due.Add(24 * time.Hour)
	overdue, err := s.List(ctx, store.RecordFilter{Kind: types.KindCapa, DueBefore: &cutoff})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != rec.ID {
		t.Errorf("expected the overdue capa, got %d records", len(overdue))
	}

	early := due.Add(-24 * time.Hour)
	none, _ := s.List(ctx, store.RecordFilter{Kind: types.KindCapa, DueBefore: &early})
	if len(none) != 0 {
		t.Errorf("expected no records due before %v, got %d", early, len(none))
	}
}

// ── Delete ───────────────────────────────────────────────────────────────────

func TestDelete_RemovesRecordAndCollections(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()
	rec := newIncident(t, s)

	if _, err := s.AddLink(ctx, types.LinkedRecord{RecordID: rec.ID, TargetID: "other"}); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	if _, err := s.AddEvidence(ctx, types.Evidence{RecordID: rec.ID, FileName: "photo.jpg"}); err != nil {
		t.Fatalf("AddEvidence: %v", err)
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.Get(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.AuditLog(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected audit log gone after delete, got %v", err)
	}
	if err := s.Delete(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

// ── Links and evidence ───────────────────────────────────────────────────────

func TestLinksAndEvidence_AppendOnlyInsertionOrder(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()
	rec := newIncident(t, s)

	for _, target := range []string{"t1", "t2", "t3"} {
		if _, err := s.AddLink(ctx, types.LinkedRecord{RecordID: rec.ID, TargetID: target}); err != nil {
			t.Fatalf("AddLink %s: %v", target, err)
		}
	}
	links, err := s.Links(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if len(links) != 3 || links[0].TargetID != "t1" || links[2].TargetID != "t3" {
		t.Errorf("expected links in insertion order, got %+v", links)
	}

	ev, err := s.AddEvidence(ctx, types.Evidence{RecordID: rec.ID, FileName: "report.pdf"})
	if err != nil {
		t.Fatalf("AddEvidence: %v", err)
	}
	if ev.ID == "" || ev.AddedAt.IsZero() {
		t.Error("expected evidence id and timestamp assigned")
	}
}

func TestGet_ReturnsIsolatedCopy(t *testing.T) {
	s := memory.NewRecordStore()
	ctx := context.Background()

	rec, err := s.Create(ctx, types.Record{
		Kind:   types.KindPermit,
		Status: types.StateApproved,
		Title:  "Hot work",
		Permit: &types.PermitDetails{Roster: []types.RosterEntry{{WorkerID: "w-1"}}},
	}, "m.chen")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _ := s.Get(ctx, rec.ID)
	got.Permit.Roster[0].Signed = true

	again, _ := s.Get(ctx, rec.ID)
	if again.Permit.Roster[0].Signed {
		t.Error("mutating a returned record must not affect the store")
	}
}
