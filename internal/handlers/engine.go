package handlers

import (
	"context"

	"fretus-backend/internal/models"
	"fretus-backend/internal/services"
)

// Engine is the part of services.Engine the HTTP layer drives.
type Engine interface {
	CreateDelivery(ctx context.Context, companyID string, in services.DeliveryInput) (*models.DeliveryRequest, error)
	Accept(ctx context.Context, requestID, driverID string) (*models.BoundRequest, error)
	Release(ctx context.Context, requestID, driverID string) error
	Cancel(ctx context.Context, requestID, companyID, reason string) (*models.DeliveryRequest, error)
	AdvanceCollection(ctx context.Context, legID, driverID string, next models.CollectionStatus, meta models.LegMetadata) (*models.AdvanceResult, error)
	AdvanceDropoff(ctx context.Context, legID, driverID string, next models.DropoffStatus, meta models.LegMetadata) (*models.AdvanceResult, error)
	CancelTrip(ctx context.Context, tripID, driverID, reason string) (*models.Trip, error)
	Quote(ctx context.Context, routeID, priceTierID string) (*models.Fare, error)
}

var _ Engine = (*services.Engine)(nil)
