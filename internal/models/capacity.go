package models

import "math"

// DateLayout is the calendar-day format used for trip and ledger keys.
const DateLayout = "2006-01-02"

// TripKey identifies a single run: one driver on one route on one calendar day.
// Date is formatted with DateLayout.
type TripKey struct {
	DriverID string
	RouteID  string
	Date     string
}

// Load is the amount of capacity a delivery request consumes.
type Load struct {
	Packages int    `json:"packages"`
	Weight   Weight `json:"weight_kg"`
	Volume   Volume `json:"volume_m3"`
}

// CapacityLedgerEntry tracks accepted load against declared capacity for a TripKey.
type CapacityLedgerEntry struct {
	ID                    string `json:"id" db:"id"`
	DriverID              string `json:"driver_id" db:"driver_id"`
	RouteID               string `json:"route_id" db:"route_id"`
	ServiceDate           string `json:"service_date" db:"service_date"`
	TotalCapacityPackages int    `json:"total_capacity_packages" db:"total_capacity_packages"`
	TotalCapacityWeight   Weight `json:"total_capacity_weight_kg" db:"total_capacity_weight_g"`
	AcceptedPackages      int    `json:"accepted_packages" db:"accepted_packages"`
	AcceptedWeight        Weight `json:"accepted_weight_kg" db:"accepted_weight_g"`
	AcceptedVolume        Volume `json:"accepted_volume_m3" db:"accepted_volume_cm3"`
	AcceptedDeliveryCount int    `json:"accepted_delivery_count" db:"accepted_delivery_count"`
	CreatedAt             int64  `json:"created_at" db:"created_at"`
	UpdatedAt             int64  `json:"updated_at" db:"updated_at"`
}

// Fits reports whether load can be added without exceeding the declared totals.
func (e *CapacityLedgerEntry) Fits(load Load) bool {
	return e.AcceptedPackages+load.Packages <= e.TotalCapacityPackages &&
		e.AcceptedWeight+load.Weight <= e.TotalCapacityWeight
}

// Occupancy is accepted load expressed as whole percentages of capacity.
type Occupancy struct {
	PackagesPercent int `json:"packages_percent"`
	WeightPercent   int `json:"weight_percent"`
}

// Percent returns round(accepted/total*100), or 0 when total is zero.
func Percent(accepted, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(accepted) / float64(total) * 100))
}
