package models

import "github.com/lib/pq"

// Route is a fixed intercity path offered to companies.
type Route struct {
	ID                 string  `json:"id" db:"id"`
	Name               string  `json:"name" db:"name"`
	OriginCity         string  `json:"origin_city" db:"origin_city"`
	DestinationCity    string  `json:"destination_city" db:"destination_city"`
	DistanceKm         float64 `json:"distance_km" db:"distance_km"`
	AvgDurationMinutes int     `json:"avg_duration_minutes" db:"avg_duration_minutes"`
	Active             bool    `json:"active" db:"active"`
	CreatedAt          int64   `json:"created_at" db:"created_at"`
	UpdatedAt          int64   `json:"updated_at" db:"updated_at"`
}

// DriverRouteProfile is a driver's recurring schedule and declared capacity for a route.
// DaysOfWeek uses 1 = Sunday through 7 = Saturday.
type DriverRouteProfile struct {
	ID                      string        `json:"id" db:"id"`
	DriverID                string        `json:"driver_id" db:"driver_id"`
	RouteID                 string        `json:"route_id" db:"route_id"`
	DaysOfWeek              pq.Int64Array `json:"days_of_week" db:"days_of_week"`
	DepartureTime           string        `json:"departure_time" db:"departure_time"` // HH:MM
	ArrivalTime             *string       `json:"arrival_time,omitempty" db:"arrival_time"`
	CapacityPackages        int           `json:"capacity_packages" db:"capacity_packages"`
	CapacityWeight          Weight        `json:"capacity_weight_kg" db:"capacity_weight_g"`
	CapacityVolume          *Volume       `json:"capacity_volume_m3,omitempty" db:"capacity_volume_cm3"`
	AcceptsMultiplePickups  bool          `json:"accepts_multiple_pickups" db:"accepts_multiple_pickups"`
	AcceptsMultipleDropoffs bool          `json:"accepts_multiple_dropoffs" db:"accepts_multiple_dropoffs"`
	PickupRadiusKm          *float64      `json:"pickup_radius_km,omitempty" db:"pickup_radius_km"`
	Active                  bool          `json:"active" db:"active"`
	CreatedAt               int64         `json:"created_at" db:"created_at"`
	UpdatedAt               int64         `json:"updated_at" db:"updated_at"`
}

// RunsOn reports whether the profile operates on the given weekday number (1 = Sunday).
func (p *DriverRouteProfile) RunsOn(weekday int) bool {
	for _, d := range p.DaysOfWeek {
		if int(d) == weekday {
			return true
		}
	}
	return false
}

// PriceTier holds the fare components for intermunicipal deliveries.
type PriceTier struct {
	ID        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	BaseFare  float64 `json:"base_fare" db:"base_fare"`
	PerKmRate float64 `json:"per_km_rate" db:"per_km_rate"`
	StopFee   float64 `json:"stop_fee" db:"stop_fee"`
	Active    bool    `json:"active" db:"active"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
	UpdatedAt int64   `json:"updated_at" db:"updated_at"`
}

// Setting is a key/value system setting.
type Setting struct {
	Key       string `json:"key" db:"key"`
	Value     string `json:"value" db:"value"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

const SettingAutoCancelTimeout = "auto_cancel_timeout_minutes"
