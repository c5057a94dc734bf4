package models

// DeliveryStatus tracks a company's shipment from creation to a terminal state
type DeliveryStatus string

const (
	DeliveryStatusAwaitingDriver DeliveryStatus = "awaiting_driver"
	DeliveryStatusDriverAccepted DeliveryStatus = "driver_accepted"
	DeliveryStatusInProgress     DeliveryStatus = "in_progress" // Collection started
	DeliveryStatusDelivered      DeliveryStatus = "delivered"
	DeliveryStatusFailed         DeliveryStatus = "failed" // Collection failed or dropoff refused/absent/returned
	DeliveryStatusCancelled      DeliveryStatus = "cancelled"
)

// IsTerminal returns true once no further transitions are possible
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusFailed || s == DeliveryStatusCancelled
}

// DeliveryRequest is a company's shipment along an intermunicipal route.
type DeliveryRequest struct {
	ID             string         `json:"id" db:"id"`
	OrderNumber    string         `json:"order_number" db:"order_number"`
	CompanyID      string         `json:"company_id" db:"company_id"`
	RouteID        string         `json:"route_id" db:"route_id"`
	PriceTierID    string         `json:"price_tier_id" db:"price_tier_id"`
	TripID         *string        `json:"trip_id" db:"trip_id"`
	PickupAddress  string         `json:"pickup_address" db:"pickup_address"`
	PickupLat      *float64       `json:"pickup_lat,omitempty" db:"pickup_lat"`
	PickupLng      *float64       `json:"pickup_lng,omitempty" db:"pickup_lng"`
	PickupContact  *string        `json:"pickup_contact,omitempty" db:"pickup_contact"`
	DropoffAddress string         `json:"dropoff_address" db:"dropoff_address"`
	DropoffLat     *float64       `json:"dropoff_lat,omitempty" db:"dropoff_lat"`
	DropoffLng     *float64       `json:"dropoff_lng,omitempty" db:"dropoff_lng"`
	RecipientName  string         `json:"recipient_name" db:"recipient_name"`
	RecipientPhone string         `json:"recipient_phone" db:"recipient_phone"`
	PackageCount   int            `json:"package_count" db:"package_count"`
	Weight         Weight         `json:"weight_kg" db:"weight_g"`
	Volume         Volume         `json:"volume_m3" db:"volume_cm3"`
	Description    *string        `json:"description,omitempty" db:"description"`
	BaseFare       float64        `json:"base_fare" db:"base_fare"`
	PerKmRate      float64        `json:"per_km_rate" db:"per_km_rate"`
	DistanceKm     float64        `json:"distance_km" db:"distance_km"`
	StopFee        float64        `json:"stop_fee" db:"stop_fee"`
	TotalPrice     float64        `json:"total_price" db:"total_price"`
	Status         DeliveryStatus `json:"status" db:"status"`
	CancelReason   *string        `json:"cancel_reason,omitempty" db:"cancel_reason"`
	AcceptedAt     *int64         `json:"accepted_at,omitempty" db:"accepted_at"`
	CancelledAt    *int64         `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt      int64          `json:"created_at" db:"created_at"`
	UpdatedAt      int64          `json:"updated_at" db:"updated_at"`
}

// Load returns the capacity this request consumes on a trip
func (d *DeliveryRequest) Load() Load {
	return Load{Packages: d.PackageCount, Weight: d.Weight, Volume: d.Volume}
}

// Fare is the price breakdown of a delivery request.
type Fare struct {
	BaseFare   float64 `json:"base_fare"`
	PerKmRate  float64 `json:"per_km_rate"`
	DistanceKm float64 `json:"distance_km"`
	StopFee    float64 `json:"stop_fee"`
	Total      float64 `json:"total"`
}

// DeliveryFilter narrows delivery request listings.
type DeliveryFilter struct {
	CompanyID string
	RouteID   string
	TripID    string
	Status    string
	Limit     int
	Offset    int
}

// BoundRequest is the result of a successful acceptance.
type BoundRequest struct {
	Request    DeliveryRequest `json:"request"`
	Trip       Trip            `json:"trip"`
	Collection CollectionLeg   `json:"collection"`
	Dropoff    DropoffLeg      `json:"dropoff"`
}
