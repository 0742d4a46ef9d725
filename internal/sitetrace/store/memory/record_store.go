// Package memory holds the in-memory RecordStore used in tests and dev
// environments.  Semantics match the sqlite backend exactly; only
// durability differs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
	"github.com/sitetrace/sitetrace/internal/sitetrace/workflow"
)

type RecordStore struct {
	mu       sync.RWMutex
	records  map[string]types.Record
	audits   map[string][]types.AuditEntry // newest first
	links    map[string][]types.LinkedRecord
	evidence map[string][]types.Evidence
	counters map[string]int64 // "<kind>/<year>" -> last sequence
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		records:  make(map[string]types.Record),
		audits:   make(map[string][]types.AuditEntry),
		links:    make(map[string][]types.LinkedRecord),
		evidence: make(map[string][]types.Evidence),
		counters: make(map[string]int64),
	}
}

func (s *RecordStore) Create(ctx context.Context, rec types.Record, actor string) (types.Record, error) {
	now := time.Now().UTC()
	if err := store.PrepareNew(&rec, now); err != nil {
		return types.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return types.Record{}, fmt.Errorf("%w: %s", store.ErrDuplicateID, rec.ID)
	}
	if rec.Number == "" {
		key := fmt.Sprintf("%s/%d", rec.Kind, now.Year())
		s.counters[key]++
		rec.Number = store.FormatNumber(rec.Kind, now.Year(), s.counters[key])
	}

	created := store.NewEntry(rec.ID, actor, types.ActionCreated)
	created.Detail = fmt.Sprintf("%s %s created", rec.Kind, rec.Number)

	s.records[rec.ID] = rec.Clone()
	s.audits[rec.ID] = []types.AuditEntry{created}
	return rec, nil
}

func (s *RecordStore) Get(_ context.Context, id string) (types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return types.Record{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return rec.Clone(), nil
}

func (s *RecordStore) Update(_ context.Context, id string, patch store.RecordPatch, actor string) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return types.Record{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}

	work := rec.Clone()
	res, err := store.ApplyPatch(&work, patch)
	if err != nil {
		return types.Record{}, err
	}
	if !res.StatusChanged && !res.OtherChanged {
		return work, nil
	}
	store.Touch(&work, time.Now().UTC())

	var entry types.AuditEntry
	if res.StatusChanged {
		entry = store.StatusChangeEntry(id, actor, res.From, res.To)
	} else {
		entry = store.NewEntry(id, actor, types.ActionUpdated)
	}

	s.records[id] = work.Clone()
	s.audits[id] = prepend(s.audits[id], entry)
	return work, nil
}

func (s *RecordStore) Mutate(_ context.Context, id string, fn store.MutateFn, entries ...types.AuditEntry) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return types.Record{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}

	work := rec.Clone()
	before := work.Status
	if err := fn(&work); err != nil {
		return types.Record{}, err
	}
	if work.Status != before && !workflow.CanTransition(before, work.Status) {
		return types.Record{}, fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, before, work.Status)
	}
	if err := store.CheckDetails(work); err != nil {
		return types.Record{}, err
	}
	store.Touch(&work, time.Now().UTC())

	s.records[id] = work.Clone()
	for i := range entries {
		entries[i].RecordID = id
		s.audits[id] = prepend(s.audits[id], entries[i])
	}
	return work, nil
}

func (s *RecordStore) AppendAudit(_ context.Context, id string, entry types.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	entry.RecordID = id
	s.audits[id] = prepend(s.audits[id], entry)
	return nil
}

func (s *RecordStore) AuditLog(_ context.Context, id string) ([]types.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.records[id]; !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	out := make([]types.AuditEntry, len(s.audits[id]))
	copy(out, s.audits[id])
	return out, nil
}

func (s *RecordStore) List(_ context.Context, filter store.RecordFilter) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Record
	for _, rec := range s.records {
		if filter.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Number > out[j].Number
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *RecordStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	delete(s.records, id)
	delete(s.audits, id)
	delete(s.links, id)
	delete(s.evidence, id)
	return nil
}

func (s *RecordStore) AddLink(_ context.Context, link types.LinkedRecord) (types.LinkedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[link.RecordID]; !ok {
		return types.LinkedRecord{}, fmt.Errorf("%w: %s", store.ErrNotFound, link.RecordID)
	}
	if strings.TrimSpace(link.TargetID) == "" {
		return types.LinkedRecord{}, fmt.Errorf("%w: link target id is required", store.ErrValidation)
	}
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.AddedAt.IsZero() {
		link.AddedAt = time.Now().UTC()
	}
	s.links[link.RecordID] = append(s.links[link.RecordID], link)
	return link, nil
}

func (s *RecordStore) Links(_ context.Context, id string) ([]types.LinkedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.records[id]; !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	out := make([]types.LinkedRecord, len(s.links[id]))
	copy(out, s.links[id])
	return out, nil
}

func (s *RecordStore) AddEvidence(_ context.Context, ev types.Evidence) (types.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[ev.RecordID]; !ok {
		return types.Evidence{}, fmt.Errorf("%w: %s", store.ErrNotFound, ev.RecordID)
	}
	if strings.TrimSpace(ev.FileName) == "" {
		return types.Evidence{}, fmt.Errorf("%w: evidence file name is required", store.ErrValidation)
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.AddedAt.IsZero() {
		ev.AddedAt = time.Now().UTC()
	}
	s.evidence[ev.RecordID] = append(s.evidence[ev.RecordID], ev)
	return ev, nil
}

func (s *RecordStore) Evidence(_ context.Context, id string) ([]types.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.records[id]; !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	out := make([]types.Evidence, len(s.evidence[id]))
	copy(out, s.evidence[id])
	return out, nil
}

func prepend(entries []types.AuditEntry, e types.AuditEntry) []types.AuditEntry {
	return append([]types.AuditEntry{e}, entries...)
}
