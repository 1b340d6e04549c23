package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleetops/tripdispatch/app"
	"github.com/fleetops/tripdispatch/config"
)

var suggestTripID int64

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Rank drivers, vehicles and pairs for a trip",
	RunE:  suggest,
}

func init() {
	suggestCmd.Flags().Int64Var(&suggestTripID, "trip", 0, "trip id")
	rootCmd.AddCommand(suggestCmd)
}

func suggest(cmd *cobra.Command, args []string) error {
	if suggestTripID <= 0 {
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

	sug, err := svc.Orchestrator.Suggestions(context.Background(), suggestTripID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sug)
}
