package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
)

// CapaEscalator periodically raises the priority of CAPAs that have
// gone past their due date while still open or in progress.  It runs as
// a background goroutine and is safe to stop via its context or the
// Stop method.
type CapaEscalator struct {
	store    store.RecordStore
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// EscalatorConfig holds the parameters for NewCapaEscalator.
type EscalatorConfig struct {
	// Enabled turns the background loop on; Sweep can still be called
	// directly when disabled.
	Enabled bool

	// IntervalMinutes is how often the sweep runs.  Defaults to 60.
	IntervalMinutes int
}

// NewCapaEscalator creates an escalator but does not start it.
// Call Start to begin the background loop.
func NewCapaEscalator(st store.RecordStore, cfg EscalatorConfig, logger *log.Logger) *CapaEscalator {
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	if !cfg.Enabled {
		interval = 0
	}

	return &CapaEscalator{
		store:    st,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background loop: an immediate sweep, then one per
// interval until ctx is cancelled or Stop is called.
func (e *CapaEscalator) Start(ctx context.Context) {
	if e.interval <= 0 {
		e.logger.Printf("capa escalator disabled")
		close(e.done)
		return
	}

	ctx, e.cancel = context.WithCancel(ctx)

	go e.loop(ctx)

	e.logger.Printf("capa escalator started (interval=%s)", e.interval)
}

// Stop signals the loop to exit and waits for it to finish.
func (e *CapaEscalator) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	<-e.done
}

func (e *CapaEscalator) loop(ctx context.Context) {
	defer close(e.done)

	e.runSweep(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runSweep(ctx)
		}
	}
}

func (e *CapaEscalator) runSweep(ctx context.Context) {
	n, err := e.Sweep(ctx)
	if err != nil {
		e.logger.Printf("capa escalation sweep error: %v", err)
		return
	}
	if n > 0 {
		e.logger.Printf("capa escalation sweep: %d record(s) escalated", n)
	}
}

// Sweep escalates every overdue open/in-progress CAPA one priority
// level, appending one capa_escalated entry per record.  Records
// already at critical are left alone.  Returns how many records were
// escalated.
func (e *CapaEscalator) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	overdue, err := e.store.List(ctx, store.RecordFilter{
		Kind:      types.KindCapa,
		Statuses:  []types.State{types.StateOpen, types.StateInProgress},
		DueBefore: &now,
	})
	if err != nil {
		return 0, fmt.Errorf("list overdue capas: %w", err)
	}

	escalated := 0
	for _, rec := range overdue {
		next := rec.Priority.Escalate()
		if next == rec.Priority {
			continue
		}

		entry := store.NewEntry(rec.ID, "system", types.ActionCapaEscalated)
		entry.Detail = fmt.Sprintf("overdue since %s; priority raised to %s",
			rec.DueDate.Format(time.RFC3339), next)

		if _, err := e.store.Mutate(ctx, rec.ID, func(r *types.Record) error {
			r.Priority = r.Priority.Escalate()
			return nil
		}, entry); err != nil {
			return escalated, fmt.Errorf("escalate %s: %w", rec.Number, err)
		}
		escalated++
	}
	return escalated, nil
}
