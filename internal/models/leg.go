package models

// CollectionStatus is the pickup leg progression.
type CollectionStatus string

const (
	CollectionPending   CollectionStatus = "pending"
	CollectionEnRoute   CollectionStatus = "en_route"
	CollectionArrived   CollectionStatus = "arrived"
	CollectionCollected CollectionStatus = "collected"
	CollectionFailed    CollectionStatus = "failed"
)

// DropoffStatus is the delivery leg progression.
type DropoffStatus string

const (
	DropoffPending   DropoffStatus = "pending"
	DropoffEnRoute   DropoffStatus = "en_route"
	DropoffArrived   DropoffStatus = "arrived"
	DropoffDelivered DropoffStatus = "delivered"
	DropoffRefused   DropoffStatus = "refused"
	DropoffAbsent    DropoffStatus = "absent"
	DropoffReturned  DropoffStatus = "returned"
)

type CollectionLeg struct {
	ID                string           `json:"id" db:"id"`
	TripID            string           `json:"trip_id" db:"trip_id"`
	DeliveryRequestID string           `json:"delivery_request_id" db:"delivery_request_id"`
	Sequence          int              `json:"sequence" db:"sequence"`
	Address           string           `json:"address" db:"address"`
	Lat               *float64         `json:"lat,omitempty" db:"lat"`
	Lng               *float64         `json:"lng,omitempty" db:"lng"`
	Contact           *string          `json:"contact,omitempty" db:"contact"`
	Status            CollectionStatus `json:"status" db:"status"`
	FailureReason     *string          `json:"failure_reason,omitempty" db:"failure_reason"`
	PhotoURL          *string          `json:"photo_url,omitempty" db:"photo_url"`
	Notes             *string          `json:"notes,omitempty" db:"notes"`
	EnRouteAt         *int64           `json:"en_route_at,omitempty" db:"en_route_at"`
	ArrivedAt         *int64           `json:"arrived_at,omitempty" db:"arrived_at"`
	FinishedAt        *int64           `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt         int64            `json:"created_at" db:"created_at"`
	UpdatedAt         int64            `json:"updated_at" db:"updated_at"`
}

type DropoffLeg struct {
	ID                string        `json:"id" db:"id"`
	TripID            string        `json:"trip_id" db:"trip_id"`
	DeliveryRequestID string        `json:"delivery_request_id" db:"delivery_request_id"`
	CollectionLegID   string        `json:"collection_leg_id" db:"collection_leg_id"`
	Sequence          int           `json:"sequence" db:"sequence"`
	Address           string        `json:"address" db:"address"`
	Lat               *float64      `json:"lat,omitempty" db:"lat"`
	Lng               *float64      `json:"lng,omitempty" db:"lng"`
	RecipientName     string        `json:"recipient_name" db:"recipient_name"`
	RecipientPhone    string        `json:"recipient_phone" db:"recipient_phone"`
	Status            DropoffStatus `json:"status" db:"status"`
	FailureReason     *string       `json:"failure_reason,omitempty" db:"failure_reason"`
	ReceiverName      *string       `json:"receiver_name,omitempty" db:"receiver_name"`
	ReceiverDocument  *string       `json:"receiver_document,omitempty" db:"receiver_document"`
	PhotoURL          *string       `json:"photo_url,omitempty" db:"photo_url"`
	SignatureURL      *string       `json:"signature_url,omitempty" db:"signature_url"`
	Rating            *int          `json:"rating,omitempty" db:"rating"`
	RatingComment     *string       `json:"rating_comment,omitempty" db:"rating_comment"`
	Notes             *string       `json:"notes,omitempty" db:"notes"`
	EnRouteAt         *int64        `json:"en_route_at,omitempty" db:"en_route_at"`
	ArrivedAt         *int64        `json:"arrived_at,omitempty" db:"arrived_at"`
	FinishedAt        *int64        `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt         int64         `json:"created_at" db:"created_at"`
	UpdatedAt         int64         `json:"updated_at" db:"updated_at"`
}

// LegSet is every leg currently attached to a trip.
type LegSet struct {
	Collections []CollectionLeg
	Dropoffs    []DropoffLeg
}

// LegMetadata carries the optional proof and confirmation fields sent with an advance.
type LegMetadata struct {
	Reason           string  `json:"reason,omitempty"`
	PhotoURL         *string `json:"photo_url,omitempty"`
	SignatureURL     *string `json:"signature_url,omitempty"`
	ReceiverName     *string `json:"receiver_name,omitempty"`
	ReceiverDocument *string `json:"receiver_document,omitempty"`
	Rating           *int    `json:"rating,omitempty"`
	RatingComment    *string `json:"rating_comment,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

// AdvanceResult is returned after a leg moves forward.
type AdvanceResult struct {
	TripID         string     `json:"trip_id"`
	TripStatus     TripStatus `json:"trip_status"`
	PreviousStatus TripStatus `json:"previous_status"`
	LegStatus      string     `json:"leg_status"`
}
