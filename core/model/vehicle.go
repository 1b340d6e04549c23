package model

// VehicleStatus enumerates vehicle fleet states.
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "AVAILABLE"
	VehicleInUse       VehicleStatus = "IN_USE"
	VehicleMaintenance VehicleStatus = "MAINTENANCE"
	VehicleInactive    VehicleStatus = "INACTIVE"
)

// Vehicle is a branch-owned fleet unit. Status is mutated exclusively by the
// dispatch orchestrator in response to trip lifecycle events, except for
// MAINTENANCE/INACTIVE which fleet administration sets out of band.
type Vehicle struct {
	ID         int64         `json:"id"`
	BranchID   int64         `json:"branchId"`
	CategoryID int64         `json:"categoryId"`
	Plate      string        `json:"plate"`
	Model      string        `json:"model,omitempty"`
	Capacity   int           `json:"capacity"` // seats
	Status     VehicleStatus `json:"status"`
}

// Active reports whether the vehicle counts toward fleet capacity.
func (v Vehicle) Active() bool {
	return v.Status != VehicleInactive && v.Status != VehicleMaintenance
}

// VehicleCategory describes a bookable class of vehicles.
type VehicleCategory struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Seats int    `json:"seats"`
}
