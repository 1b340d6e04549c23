package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleetops/tripdispatch/app"
	"github.com/fleetops/tripdispatch/config"
	"github.com/fleetops/tripdispatch/pkg/export"
)

var (
	historyTripID int64
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Export a trip's assignment history",
	RunE:  exportHistory,
}

func init() {
	historyCmd.Flags().Int64Var(&historyTripID, "trip", 0, "trip id")
	historyCmd.Flags().StringVar(&historyFormat, "format", "json", "output format: json or csv")
	rootCmd.AddCommand(historyCmd)
}

func exportHistory(cmd *cobra.Command, args []string) error {
	if historyTripID <= 0 {
		return fmt.Errorf("--trip is required")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	records, err := svc.Orchestrator.History(context.Background(), historyTripID)
	if err != nil {
		return err
	}
	switch historyFormat {
	case "json":
		return export.WriteJSON(os.Stdout, records)
	case "csv":
		return export.WriteCSV(os.Stdout, records)
	default:
		return fmt.Errorf("unknown format %s", historyFormat)
	}
}
