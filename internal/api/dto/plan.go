package dto

// TruckRequest overrides one vehicle of the configured fleet. Times are HH:MM.
type TruckRequest struct {
	TruckID  int    `json:"truck_id"`
	Capacity int    `json:"capacity"`
	Trips    int    `json:"trips"`
	DepartAt string `json:"depart_at"`
}

type PlanRequest struct {
	Fleet []TruckRequest `json:"fleet"`
	// Time of day the status report is rendered for; end of service when empty.
	At string `json:"at"`
}
