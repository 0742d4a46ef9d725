package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitetrace/sitetrace/internal/config"
	"github.com/sitetrace/sitetrace/internal/db"
	"github.com/sitetrace/sitetrace/internal/sitetrace/service"
	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/store/sqlite"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample records into the configured database",
	Long: `Seed inserts a small set of sample records through the service
layer so every record carries a proper audit trail.  Intended for dev
databases; safe to run more than once (each run adds new records).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger := log.New(os.Stdout, "sitetrace ", log.LstdFlags|log.LUTC)

		ctx := cmd.Context()
		conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer conn.Close()

		writer := db.NewWorker(conn)
		defer writer.Close()

		return seedRecords(ctx, sqlite.NewRecordStore(conn, writer), logger)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedRecords creates a handful of representative records via the
// service layer so each one gets its created entry and audit trail.
func seedRecords(ctx context.Context, st store.RecordStore, logger *log.Logger) error {
	records := service.NewRecordService(st, logger)
	capas := service.NewCapaService(st, logger)

	manager := types.Actor{Name: "seed", Role: types.RoleManager}
	nextWeek := time.Now().UTC().Add(7 * 24 * time.Hour)

	permit, err := records.Create(ctx, types.Record{
		Kind:     types.KindPermit,
		Title:    "Hot work permit: welding on level 2",
		Location: "Level 2, grid C4",
		Permit: &types.PermitDetails{
			ValidTo:  &nextWeek,
			Hazards:  []string{"sparks", "fumes"},
			Controls: []string{"fire watch", "ventilation"},
			Roster: []types.RosterEntry{
				{WorkerID: "w-17", Name: "Ana Reyes", Role: "welder"},
				{WorkerID: "w-22", Name: "Marco Silva", Role: "fire watch"},
			},
		},
	}, manager)
	if err != nil {
		return fmt.Errorf("seeding permit: %w", err)
	}

	incident, err := records.Create(ctx, types.Record{
		Kind:        types.KindIncident,
		Title:       "Dropped load near gate 3",
		Location:    "Gate 3 laydown area",
		Priority:    types.PriorityHigh,
		Description: "Sling failure during a routine lift; no injuries.",
	}, manager)
	if err != nil {
		return fmt.Errorf("seeding incident: %w", err)
	}

	if _, err := records.Create(ctx, types.Record{
		Kind:  types.KindObservation,
		Title: "Loose scaffold plank on tower B",
		Observation: &types.ObservationDetails{
			Category: "housekeeping",
		},
	}, manager); err != nil {
		return fmt.Errorf("seeding observation: %w", err)
	}

	if _, err := capas.CreateFromRecord(ctx, incident.ID, service.CapaInput{
		Title:            "Re-certify all lifting gear on site",
		Priority:         types.PriorityHigh,
		DueDate:          &nextWeek,
		RequiresEvidence: true,
	}, manager); err != nil {
		return fmt.Errorf("seeding capa: %w", err)
	}

	logger.Printf("seeded sample records (permit %s, incident %s)", permit.Number, incident.Number)
	return nil
}
