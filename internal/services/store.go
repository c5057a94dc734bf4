package services

import (
	"context"

	"fretus-backend/internal/models"
)

// Store runs engine work inside a single database transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional view the engine mutates.
//
// Leg rows are only mutated while their delivery request row is locked, so
// locks are always taken in the order request, leg, trip, ledger.
type Tx interface {
	GetRoute(ctx context.Context, id string) (*models.Route, error)
	GetPriceTier(ctx context.Context, id string) (*models.PriceTier, error)
	// GetActiveProfile returns models.ErrNotFound when the driver has no active profile for the route.
	GetActiveProfile(ctx context.Context, driverID, routeID string) (*models.DriverRouteProfile, error)
	GetSetting(ctx context.Context, key string) (string, error)

	CreateDelivery(ctx context.Context, d *models.DeliveryRequest) error
	GetDeliveryForUpdate(ctx context.Context, id string) (*models.DeliveryRequest, error)
	// BindDelivery returns models.ErrAlreadyBound unless the request is unbound and awaiting a driver.
	BindDelivery(ctx context.Context, requestID, tripID string, now int64) error
	UnbindDelivery(ctx context.Context, requestID string, now int64) error
	SetDeliveryStatus(ctx context.Context, requestID string, status models.DeliveryStatus, reason *string, now int64) error
	ListTripDeliveries(ctx context.Context, tripID string) ([]models.DeliveryRequest, error)
	// LockStaleDeliveries locks unbound awaiting_driver requests created before cutoff, skipping rows locked elsewhere.
	LockStaleDeliveries(ctx context.Context, cutoff int64, limit int) ([]models.DeliveryRequest, error)

	// OpenLedger returns the entry for key, creating it from profile if absent. created reports whether this call inserted it.
	OpenLedger(ctx context.Context, key models.TripKey, profile *models.DriverRouteProfile, now int64) (entry *models.CapacityLedgerEntry, created bool, err error)
	// ReserveLedger returns models.ErrCapacityExceeded when load does not fit.
	ReserveLedger(ctx context.Context, key models.TripKey, load models.Load, now int64) (*models.CapacityLedgerEntry, error)
	ReleaseLedger(ctx context.Context, key models.TripKey, load models.Load, now int64) (*models.CapacityLedgerEntry, error)

	// FindOrCreateTrip inserts trip unless one exists for its key, then returns the locked row.
	FindOrCreateTrip(ctx context.Context, trip *models.Trip) (*models.Trip, error)
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	GetTripForUpdate(ctx context.Context, id string) (*models.Trip, error)
	// ReserveTrip returns models.ErrCapacityExceeded when load does not fit.
	ReserveTrip(ctx context.Context, tripID string, load models.Load, now int64) (*models.Trip, error)
	ReleaseTrip(ctx context.Context, tripID string, load models.Load, now int64) (*models.Trip, error)
	UpdateTripStatus(ctx context.Context, trip *models.Trip) error

	// CreateLegs assigns each leg the next sequence number within its trip.
	CreateLegs(ctx context.Context, collection *models.CollectionLeg, dropoff *models.DropoffLeg) error
	DeleteLegs(ctx context.Context, requestID string) error
	GetCollectionLeg(ctx context.Context, id string) (*models.CollectionLeg, error)
	GetCollectionLegByRequest(ctx context.Context, requestID string) (*models.CollectionLeg, error)
	GetDropoffLeg(ctx context.Context, id string) (*models.DropoffLeg, error)
	UpdateCollectionLeg(ctx context.Context, leg *models.CollectionLeg) error
	UpdateDropoffLeg(ctx context.Context, leg *models.DropoffLeg) error
	ListTripLegs(ctx context.Context, tripID string) (models.LegSet, error)
}
