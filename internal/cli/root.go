package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sitetrace",
	Short: "Site safety record keeping",
	Long: `Sitetrace keeps site safety records -- incidents, inspections,
permits, observations, CAPAs and the rest -- behind a workflow state
machine with a full append-only audit trail per record.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "sitetrace.yml", "config file path")
}
