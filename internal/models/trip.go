package models

// TripStatus is derived from the trip's legs, except for cancelled.
type TripStatus string

const (
	TripStatusScheduled  TripStatus = "scheduled"
	TripStatusCollecting TripStatus = "collecting"
	TripStatusInTransit  TripStatus = "in_transit"
	TripStatusDelivering TripStatus = "delivering"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

var tripProgress = map[TripStatus]int{
	TripStatusScheduled:  0,
	TripStatusCollecting: 1,
	TripStatusInTransit:  2,
	TripStatusDelivering: 3,
	TripStatusCompleted:  4,
}

// Progress ranks a status along the forward lifecycle. Cancelled ranks -1.
func (s TripStatus) Progress() int {
	if p, ok := tripProgress[s]; ok {
		return p
	}
	return -1
}

// IsTerminal returns true for completed and cancelled trips
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// Trip is one concrete run of a driver along a route on a specific date.
type Trip struct {
	ID                 string     `json:"id" db:"id"`
	DriverID           string     `json:"driver_id" db:"driver_id"`
	RouteID            string     `json:"route_id" db:"route_id"`
	ServiceDate        string     `json:"service_date" db:"service_date"`
	Status             TripStatus `json:"status" db:"status"`
	CapacityPackages   int        `json:"capacity_packages" db:"capacity_packages"`
	CapacityWeight     Weight     `json:"capacity_weight_kg" db:"capacity_weight_g"`
	AcceptedPackages   int        `json:"accepted_packages" db:"accepted_packages"`
	AcceptedWeight     Weight     `json:"accepted_weight_kg" db:"accepted_weight_g"`
	AcceptedVolume     Volume     `json:"accepted_volume_m3" db:"accepted_volume_cm3"`
	DeliveryCount      int        `json:"delivery_count" db:"delivery_count"`
	PlannedDepartureAt *int64     `json:"planned_departure_at" db:"planned_departure_at"`
	PlannedArrivalAt   *int64     `json:"planned_arrival_at" db:"planned_arrival_at"`
	ActualDepartureAt  *int64     `json:"actual_departure_at" db:"actual_departure_at"`
	ActualArrivalAt    *int64     `json:"actual_arrival_at" db:"actual_arrival_at"`
	CancelledAt        *int64     `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelReason       *string    `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CreatedAt          int64      `json:"created_at" db:"created_at"`
	UpdatedAt          int64      `json:"updated_at" db:"updated_at"`
}

// Occupancy returns the trip's fill level for dashboards.
func (t *Trip) Occupancy() Occupancy {
	return Occupancy{
		PackagesPercent: Percent(int64(t.AcceptedPackages), int64(t.CapacityPackages)),
		WeightPercent:   Percent(int64(t.AcceptedWeight), int64(t.CapacityWeight)),
	}
}

// RemainingPackages returns how many more packages the trip can take
func (t *Trip) RemainingPackages() int {
	return t.CapacityPackages - t.AcceptedPackages
}

// RemainingWeight returns how much more weight the trip can take
func (t *Trip) RemainingWeight() Weight {
	return t.CapacityWeight - t.AcceptedWeight
}

// TripSummary is the admin/driver listing row with joined names and occupancy.
type TripSummary struct {
	Trip
	DriverName      string    `json:"driver_name" db:"driver_name"`
	RouteName       string    `json:"route_name" db:"route_name"`
	OriginCity      string    `json:"origin_city" db:"origin_city"`
	DestinationCity string    `json:"destination_city" db:"destination_city"`
	Occupancy       Occupancy `json:"occupancy" db:"-"`
}

// TripDetail is a trip with its bound requests and legs.
type TripDetail struct {
	TripSummary
	Deliveries  []DeliveryRequest `json:"deliveries"`
	Collections []CollectionLeg   `json:"collections"`
	Dropoffs    []DropoffLeg      `json:"dropoffs"`
}

// TripFilter narrows trip listings.
type TripFilter struct {
	DriverID string
	RouteID  string
	Status   string
	Date     string
	Limit    int
	Offset   int
}
