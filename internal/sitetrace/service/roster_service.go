package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
)

// RosterService records worker sign-offs on permit and JSA rosters.
type RosterService struct {
	store store.RecordStore
}

func NewRosterService(st store.RecordStore) *RosterService {
	return &RosterService{store: st}
}

// Sign marks the roster entry for workerID as signed and stamps the
// time.  Re-signing overwrites the timestamp and still appends an audit
// entry, so the trail carries the repeat rather than hiding it.
func (s *RosterService) Sign(ctx context.Context, id, workerID string, actor types.Actor) (types.Record, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return types.Record{}, fmt.Errorf("%w: worker id is required", store.ErrValidation)
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return types.Record{}, err
	}

	var action types.AuditAction
	switch rec.Kind {
	case types.KindPermit:
		action = types.ActionSignedPermit
	case types.KindJSA:
		action = types.ActionSignedRoster
	default:
		return types.Record{}, fmt.Errorf("%w: record %s (%s) has no roster",
			store.ErrValidation, rec.Number, rec.Kind)
	}

	entry := store.NewEntry(id, actor.Name, action)
	entry.Detail = fmt.Sprintf("roster sign-off by worker %s", workerID)

	return s.store.Mutate(ctx, id, func(r *types.Record) error {
		roster := rosterOf(r)
		for i := range roster {
			if roster[i].WorkerID == workerID {
				now := time.Now().UTC()
				roster[i].Signed = true
				roster[i].SignedAt = &now
				return nil
			}
		}
		return fmt.Errorf("%w: worker %q is not on the roster of %s",
			store.ErrNotFound, workerID, r.Number)
	}, entry)
}

func rosterOf(r *types.Record) []types.RosterEntry {
	switch {
	case r.Permit != nil:
		return r.Permit.Roster
	case r.JSA != nil:
		return r.JSA.Roster
	default:
		return nil
	}
}
