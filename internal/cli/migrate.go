package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitetrace/sitetrace/internal/config"
	"github.com/sitetrace/sitetrace/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		// Open applies any pending migrations.
		conn, err := db.Open(cmd.Context(), db.Config{Path: cfg.DBPath})
		if err != nil {
			return err
		}
		defer conn.Close()

		fmt.Printf("database at %s is up to date\n", cfg.DBPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
