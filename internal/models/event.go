package models

// EventType names a notification emitted after a committed state change.
type EventType string

const (
	EventDeliveryAccepted  EventType = "delivery.accepted"
	EventDeliveryReleased  EventType = "delivery.released"
	EventDeliveryCancelled EventType = "delivery.cancelled"
	EventLegAdvanced       EventType = "leg.advanced"
	EventTripStatusChanged EventType = "trip.status_changed"
)

// Event is fanned out to websocket clients, push tokens and the message broker.
type Event struct {
	Type       EventType `json:"type"`
	TripID     string    `json:"trip_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	DriverID   string    `json:"driver_id,omitempty"`
	CompanyID  string    `json:"company_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt int64     `json:"occurred_at"`
}
