package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
)

// CapaService raises corrective/preventive actions from other records.
// A single user action produces audit entries on two records: the new
// CAPA's own "created" entry and a "capa_linked" entry on the origin.
type CapaService struct {
	store  store.RecordStore
	logger *log.Logger
}

func NewCapaService(st store.RecordStore, logger *log.Logger) *CapaService {
	return &CapaService{store: st, logger: logger}
}

// CapaInput carries the caller-supplied fields of a new CAPA.
type CapaInput struct {
	Title            string
	Description      string
	Owner            string
	Assignee         string
	Priority         types.Priority
	DueDate          *time.Time
	RequiresEvidence bool
}

// CreateFromRecord raises a CAPA from an originating record.  The
// origin must exist and must not be archived; an observation origin
// additionally gets its one-way CAPA link stamped.
func (s *CapaService) CreateFromRecord(ctx context.Context, originID string, in CapaInput, actor types.Actor) (types.Record, error) {
	origin, err := s.store.Get(ctx, originID)
	if err != nil {
		return types.Record{}, err
	}
	if origin.Status == types.StateArchived {
		return types.Record{}, fmt.Errorf("%w: cannot raise a CAPA from archived record %s",
			store.ErrValidation, origin.Number)
	}

	capa, err := s.store.Create(ctx, types.Record{
		Kind:        types.KindCapa,
		Status:      types.StateOpen,
		Title:       in.Title,
		Description: in.Description,
		Owner:       in.Owner,
		Assignee:    in.Assignee,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Capa: &types.CapaDetails{
			OriginID:         origin.ID,
			OriginKind:       origin.Kind,
			OriginNumber:     origin.Number,
			RequiresEvidence: in.RequiresEvidence,
		},
	}, actor.Name)
	if err != nil {
		return types.Record{}, err
	}

	linked := store.NewEntry(origin.ID, actor.Name, types.ActionCapaLinked)
	linked.Detail = fmt.Sprintf("CAPA %s raised from this record", capa.Number)

	if origin.Kind == types.KindObservation {
		// The observation remembers its CAPA; nothing checks the
		// reverse direction.
		_, err = s.store.Mutate(ctx, origin.ID, func(r *types.Record) error {
			if r.Observation == nil {
				r.Observation = &types.ObservationDetails{}
			}
			r.Observation.CapaID = capa.ID
			r.Observation.CapaCreated = true
			return nil
		}, linked)
	} else {
		err = s.store.AppendAudit(ctx, origin.ID, linked)
	}
	if err != nil {
		return types.Record{}, err
	}

	if _, err := s.store.AddLink(ctx, types.LinkedRecord{
		RecordID:     origin.ID,
		TargetID:     capa.ID,
		TargetKind:   types.KindCapa,
		TargetNumber: capa.Number,
		Relation:     "corrective_action",
	}); err != nil {
		return types.Record{}, err
	}

	s.logger.Printf("capa raised number=%s origin=%s by=%s", capa.Number, origin.Number, actor.Name)
	return capa, nil
}
