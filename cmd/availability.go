package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetops/tripdispatch/app"
	"github.com/fleetops/tripdispatch/config"
	"github.com/fleetops/tripdispatch/core/model"
)

var (
	availBranchID   int64
	availCategoryID int64
	availStart      string
	availEnd        string
	availQuantity   int
)

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Check fleet availability for a category and time window",
	RunE:  checkAvailability,
}

func init() {
	availabilityCmd.Flags().Int64Var(&availBranchID, "branch", 0, "branch id (0 for all branches)")
	availabilityCmd.Flags().Int64Var(&availCategoryID, "category", 0, "vehicle category id")
	availabilityCmd.Flags().StringVar(&availStart, "start", "", "window start (RFC3339)")
	availabilityCmd.Flags().StringVar(&availEnd, "end", "", "window end (RFC3339)")
	availabilityCmd.Flags().IntVar(&availQuantity, "quantity", 1, "requested vehicle count")
	rootCmd.AddCommand(availabilityCmd)
}

func checkAvailability(cmd *cobra.Command, args []string) error {
	if availCategoryID <= 0 {
		return fmt.Errorf("--category is required")
	}
	start, err := time.Parse(time.RFC3339, availStart)
	if err != nil {
		return fmt.Errorf("--start must be RFC3339: %w", err)
	}
	end, err := time.Parse(time.RFC3339, availEnd)
	if err != nil {
		return fmt.Errorf("--end must be RFC3339: %w", err)
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

	res, err := svc.Orchestrator.Availability(context.Background(), availBranchID, availCategoryID,
		model.TimeWindow{Start: start, End: end}, availQuantity)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
