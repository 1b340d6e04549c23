// Package export renders assignment history for spreadsheets and scripts.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/fleetops/tripdispatch/core/model"
)

// WriteJSON writes the assignment records to w in JSON format.
func WriteJSON(w io.Writer, records []model.AssignmentRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteCSV writes the assignment records to w in CSV format.
func WriteCSV(w io.Writer, records []model.AssignmentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "trip_id", "action", "actor", "driver_before", "driver_after", "vehicle_before", "vehicle_after", "note", "created_at"}); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.ID,
			strconv.FormatInt(r.TripID, 10),
			string(r.Action),
			r.Actor,
			formatID(r.DriverBefore),
			formatID(r.DriverAfter),
			formatID(r.VehicleBefore),
			formatID(r.VehicleAfter),
			r.Note,
			r.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
