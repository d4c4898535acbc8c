package dto

import "time"

// PackageResponse is a package as seen at the requested time of day.
type PackageResponse struct {
	PackageID     int        `json:"package_id"`
	Address       string     `json:"address"`
	City          string     `json:"city,omitempty"`
	Zip           string     `json:"zip,omitempty"`
	Weight        int        `json:"weight,omitempty"`
	Deadline      *time.Time `json:"deadline"`
	Note          string     `json:"note,omitempty"`
	Status        string     `json:"status"`
	TruckID       int        `json:"truck_id,omitempty"`
	TruckAffinity int        `json:"truck_affinity,omitempty"`
	GroupID       int        `json:"group_id,omitempty"`
	LoadedAt      *time.Time `json:"loaded_at"`
	DeliveredAt   *time.Time `json:"delivered_at"`
	Late          bool       `json:"late"`
}

type ListPackagesResponse struct {
	At       time.Time         `json:"at"`
	RunID    string            `json:"run_id,omitempty"`
	Packages []PackageResponse `json:"packages"`
}
