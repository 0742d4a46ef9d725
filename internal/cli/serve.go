package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitetrace/sitetrace/internal/config"
	"github.com/sitetrace/sitetrace/internal/db"
	"github.com/sitetrace/sitetrace/internal/httpapi"
	"github.com/sitetrace/sitetrace/internal/sitetrace/service"
	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/store/memory"
	"github.com/sitetrace/sitetrace/internal/sitetrace/store/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sitetrace HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger := log.New(os.Stdout, "sitetrace ", log.LstdFlags|log.LUTC)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var recordStore store.RecordStore
		var closeStore func()

		switch cfg.Store {
		case config.StoreMemory:
			recordStore = memory.NewRecordStore()
			closeStore = func() {}
		default:
			conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath})
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			writer := db.NewWorker(conn)
			recordStore = sqlite.NewRecordStore(conn, writer)
			closeStore = func() {
				writer.Close()
				_ = conn.Close()
			}
		}
		defer closeStore()

		if cfg.SeedDev && cfg.Env == "dev" {
			if err := seedRecords(ctx, recordStore, logger); err != nil {
				logger.Printf("seed error: %v", err)
			}
		}

		escalator := service.NewCapaEscalator(recordStore, service.EscalatorConfig{
			Enabled:         cfg.Escalation.Enabled,
			IntervalMinutes: cfg.Escalation.IntervalMinutes,
		}, logger)
		escalator.Start(ctx)
		defer escalator.Stop()

		srv := httpapi.NewServer(httpapi.Dependencies{
			Logger:         logger,
			Addr:           cfg.ListenAddr,
			AllowedOrigins: cfg.CORSOrigins,
			Records:        service.NewRecordService(recordStore, logger),
			Permits:        service.NewPermitService(recordStore),
			Capas:          service.NewCapaService(recordStore, logger),
			Rosters:        service.NewRosterService(recordStore),
		})

		go func() {
			logger.Printf("listening on %s (store=%s)", cfg.ListenAddr, cfg.Store)
			if err := srv.Start(); err != nil {
				logger.Printf("server error: %v", err)
				stop()
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
