package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fretus-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine binds delivery requests to trips and drives trip status from leg progress.
type Engine struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewEngine creates an engine. Calendar days are computed in loc.
func NewEngine(store Store, notifier Notifier, logger *zap.Logger, loc *time.Location) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store:    store,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

// SetClock replaces the engine's time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// DeliveryInput is what a company submits when requesting a delivery.
type DeliveryInput struct {
	RouteID        string
	PriceTierID    string
	PickupAddress  string
	PickupLat      *float64
	PickupLng      *float64
	PickupContact  *string
	DropoffAddress string
	DropoffLat     *float64
	DropoffLng     *float64
	RecipientName  string
	RecipientPhone string
	PackageCount   int
	Weight         models.Weight
	Volume         models.Volume
	Description    *string
}

// CreateDelivery prices and stores a new request awaiting a driver.
func (e *Engine) CreateDelivery(ctx context.Context, companyID string, in DeliveryInput) (*models.DeliveryRequest, error) {
	if in.PackageCount <= 0 || in.Weight <= 0 || in.Volume < 0 {
		return nil, models.ErrInvalidLoad
	}

	now := e.now()
	var created *models.DeliveryRequest

	err := e.store.WithTx(ctx, func(tx Tx) error {
		route, err := tx.GetRoute(ctx, in.RouteID)
		if err != nil {
			return err
		}
		if !route.Active {
			return models.ErrRouteInactive
		}
		tier, err := tx.GetPriceTier(ctx, in.PriceTierID)
		if err != nil {
			return err
		}
		if !tier.Active {
			return fmt.Errorf("price tier %s: %w", tier.ID, models.ErrNotFound)
		}

		fare := QuoteFare(route, tier)
		d := &models.DeliveryRequest{
			ID:             uuid.New().String(),
			OrderNumber:    orderNumber(now.In(e.loc)),
			CompanyID:      companyID,
			RouteID:        route.ID,
			PriceTierID:    tier.ID,
			PickupAddress:  in.PickupAddress,
			PickupLat:      in.PickupLat,
			PickupLng:      in.PickupLng,
			PickupContact:  in.PickupContact,
			DropoffAddress: in.DropoffAddress,
			DropoffLat:     in.DropoffLat,
			DropoffLng:     in.DropoffLng,
			RecipientName:  in.RecipientName,
			RecipientPhone: in.RecipientPhone,
			PackageCount:   in.PackageCount,
			Weight:         in.Weight,
			Volume:         in.Volume,
			Description:    in.Description,
			BaseFare:       fare.BaseFare,
			PerKmRate:      fare.PerKmRate,
			DistanceKm:     fare.DistanceKm,
			StopFee:        fare.StopFee,
			TotalPrice:     fare.Total,
			Status:         models.DeliveryStatusAwaitingDriver,
			CreatedAt:      now.Unix(),
			UpdatedAt:      now.Unix(),
		}
		if err := tx.CreateDelivery(ctx, d); err != nil {
			return err
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("📦 delivery request created",
		zap.String("request_id", created.ID),
		zap.String("order_number", created.OrderNumber),
		zap.String("company_id", companyID),
		zap.Float64("total_price", created.TotalPrice),
	)
	return created, nil
}

// Accept binds the request to the driver's trip for today, reserving capacity
// and creating the collection and dropoff legs in one transaction.
func (e *Engine) Accept(ctx context.Context, requestID, driverID string) (*models.BoundRequest, error) {
	now := e.now()
	ts := now.Unix()
	var bound *models.BoundRequest
	var previous models.TripStatus

	err := e.store.WithTx(ctx, func(tx Tx) error {
		req, err := tx.GetDeliveryForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.TripID != nil {
			return models.ErrAlreadyBound
		}
		if req.Status != models.DeliveryStatusAwaitingDriver {
			return models.ErrRequestClosed
		}

		route, err := tx.GetRoute(ctx, req.RouteID)
		if err != nil {
			return err
		}
		if !route.Active {
			return models.ErrRouteInactive
		}

		profile, err := tx.GetActiveProfile(ctx, driverID, route.ID)
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNoRouteProfile
		}
		if err != nil {
			return err
		}

		day := e.serviceDay(now)
		if !profile.RunsOn(weekdayNumber(day)) {
			return models.ErrRouteNotScheduled
		}
		key := models.TripKey{DriverID: driverID, RouteID: route.ID, Date: day.Format(models.DateLayout)}

		entry, opened, err := tx.OpenLedger(ctx, key, profile, ts)
		if err != nil {
			return err
		}

		trip, err := tx.FindOrCreateTrip(ctx, e.newTrip(key, entry, profile, route, ts))
		if err != nil {
			return err
		}
		if trip.Status.IsTerminal() {
			return models.ErrTripClosed
		}
		previous = trip.Status

		load := req.Load()
		if _, err := tx.ReserveLedger(ctx, key, load, ts); err != nil {
			if errors.Is(err, models.ErrCapacityExceeded) && !opened {
				return models.ErrTripFull
			}
			return err
		}
		trip, err = tx.ReserveTrip(ctx, trip.ID, load, ts)
		if err != nil {
			if errors.Is(err, models.ErrCapacityExceeded) && !opened {
				return models.ErrTripFull
			}
			return err
		}

		if err := tx.BindDelivery(ctx, req.ID, trip.ID, ts); err != nil {
			return err
		}

		collection, dropoff := newLegs(trip.ID, req, ts)
		if err := tx.CreateLegs(ctx, collection, dropoff); err != nil {
			return err
		}

		if err := e.refreshTrip(ctx, tx, trip, ts); err != nil {
			return err
		}

		req.TripID = &trip.ID
		req.Status = models.DeliveryStatusDriverAccepted
		req.AcceptedAt = &ts
		req.UpdatedAt = ts
		bound = &models.BoundRequest{
			Request:    *req,
			Trip:       *trip,
			Collection: *collection,
			Dropoff:    *dropoff,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("✅ delivery request accepted",
		zap.String("request_id", requestID),
		zap.String("driver_id", driverID),
		zap.String("trip_id", bound.Trip.ID),
		zap.Int("accepted_packages", bound.Trip.AcceptedPackages),
		zap.Stringer("accepted_weight_kg", bound.Trip.AcceptedWeight),
	)
	e.emit(ctx, models.Event{
		Type:       models.EventDeliveryAccepted,
		TripID:     bound.Trip.ID,
		RequestID:  requestID,
		DriverID:   driverID,
		CompanyID:  bound.Request.CompanyID,
		Status:     string(bound.Request.Status),
		OccurredAt: ts,
	})
	e.emitTripChange(ctx, &bound.Trip, previous, ts)
	return bound, nil
}

// Unbind returns a bound request to awaiting_driver while its collection is still pending.
func (e *Engine) Unbind(ctx context.Context, requestID string) error {
	return e.release(ctx, requestID, "")
}

// Release is Unbind on behalf of the driver who owns the request's trip.
func (e *Engine) Release(ctx context.Context, requestID, driverID string) error {
	return e.release(ctx, requestID, driverID)
}

func (e *Engine) release(ctx context.Context, requestID, driverID string) error {
	ts := e.now().Unix()
	var trip *models.Trip
	var companyID string
	var previous models.TripStatus

	err := e.store.WithTx(ctx, func(tx Tx) error {
		req, err := tx.GetDeliveryForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.TripID == nil {
			return models.ErrNotBound
		}
		companyID = req.CompanyID

		t, err := tx.GetTrip(ctx, *req.TripID)
		if err != nil {
			return err
		}
		if driverID != "" && t.DriverID != driverID {
			return models.ErrForbidden
		}
		previous = t.Status

		trip, err = e.unbindLocked(ctx, tx, req, ts)
		return err
	})
	if err != nil {
		return err
	}

	e.logger.Info("↩️ delivery request released",
		zap.String("request_id", requestID),
		zap.String("trip_id", trip.ID),
		zap.Int("accepted_packages", trip.AcceptedPackages),
	)
	e.emit(ctx, models.Event{
		Type:       models.EventDeliveryReleased,
		TripID:     trip.ID,
		RequestID:  requestID,
		DriverID:   trip.DriverID,
		CompanyID:  companyID,
		Status:     string(models.DeliveryStatusAwaitingDriver),
		OccurredAt: ts,
	})
	e.emitTripChange(ctx, trip, previous, ts)
	return nil
}

// unbindLocked undoes an acceptance. The caller must hold the request row lock.
func (e *Engine) unbindLocked(ctx context.Context, tx Tx, req *models.DeliveryRequest, ts int64) (*models.Trip, error) {
	collection, err := tx.GetCollectionLegByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if collection.Status != models.CollectionPending {
		return nil, models.ErrAlreadyInProgress
	}

	trip, err := tx.GetTripForUpdate(ctx, *req.TripID)
	if err != nil {
		return nil, err
	}
	key := models.TripKey{DriverID: trip.DriverID, RouteID: trip.RouteID, Date: trip.ServiceDate}
	load := req.Load()

	if _, err := tx.ReleaseLedger(ctx, key, load, ts); err != nil {
		return nil, err
	}
	trip, err = tx.ReleaseTrip(ctx, trip.ID, load, ts)
	if err != nil {
		return nil, err
	}
	if err := tx.DeleteLegs(ctx, req.ID); err != nil {
		return nil, err
	}
	if err := tx.UnbindDelivery(ctx, req.ID, ts); err != nil {
		return nil, err
	}
	if err := e.refreshTrip(ctx, tx, trip, ts); err != nil {
		return nil, err
	}
	return trip, nil
}

// Cancel cancels a company's request. A bound request is unbound first; once
// collection has started the request can no longer be cancelled.
// An empty companyID skips the ownership check.
func (e *Engine) Cancel(ctx context.Context, requestID, companyID, reason string) (*models.DeliveryRequest, error) {
	ts := e.now().Unix()
	var out *models.DeliveryRequest
	var trip *models.Trip
	var previous models.TripStatus

	err := e.store.WithTx(ctx, func(tx Tx) error {
		req, err := tx.GetDeliveryForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if companyID != "" && req.CompanyID != companyID {
			return models.ErrForbidden
		}
		if req.Status.IsTerminal() {
			return models.ErrRequestClosed
		}

		if req.TripID != nil {
			t, err := tx.GetTrip(ctx, *req.TripID)
			if err != nil {
				return err
			}
			previous = t.Status
			trip, err = e.unbindLocked(ctx, tx, req, ts)
			if errors.Is(err, models.ErrAlreadyInProgress) {
				return models.ErrCancellationWindowClosed
			}
			if err != nil {
				return err
			}
		}

		var why *string
		if r := strings.TrimSpace(reason); r != "" {
			why = &r
		}
		if err := tx.SetDeliveryStatus(ctx, req.ID, models.DeliveryStatusCancelled, why, ts); err != nil {
			return err
		}
		req.TripID = nil
		req.Status = models.DeliveryStatusCancelled
		req.CancelReason = why
		req.CancelledAt = &ts
		req.UpdatedAt = ts
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("🚫 delivery request cancelled", zap.String("request_id", requestID))
	ev := models.Event{
		Type:       models.EventDeliveryCancelled,
		RequestID:  requestID,
		CompanyID:  out.CompanyID,
		Status:     string(out.Status),
		OccurredAt: ts,
	}
	if trip != nil {
		ev.TripID = trip.ID
		ev.DriverID = trip.DriverID
	}
	e.emit(ctx, ev)
	if trip != nil {
		e.emitTripChange(ctx, trip, previous, ts)
	}
	return out, nil
}

// AdvanceCollection moves a collection leg one step forward. An empty driverID skips the ownership check.
func (e *Engine) AdvanceCollection(ctx context.Context, legID, driverID string, next models.CollectionStatus, meta models.LegMetadata) (*models.AdvanceResult, error) {
	ts := e.now().Unix()
	var result *models.AdvanceResult
	var trip *models.Trip
	var companyID string

	err := e.store.WithTx(ctx, func(tx Tx) error {
		leg, err := tx.GetCollectionLeg(ctx, legID)
		if err != nil {
			return err
		}
		req, err := tx.GetDeliveryForUpdate(ctx, leg.DeliveryRequestID)
		if err != nil {
			return err
		}
		companyID = req.CompanyID
		// Re-read now that the request lock serialises writers of this leg.
		leg, err = tx.GetCollectionLeg(ctx, legID)
		if err != nil {
			return err
		}

		trip, err = tx.GetTripForUpdate(ctx, leg.TripID)
		if err != nil {
			return err
		}
		if driverID != "" && trip.DriverID != driverID {
			return models.ErrForbidden
		}
		if trip.Status.IsTerminal() {
			return models.ErrTripClosed
		}
		if err := ValidateCollectionTransition(leg.Status, next, meta); err != nil {
			return err
		}

		wasPending := leg.Status == models.CollectionPending
		ApplyCollection(leg, next, meta, ts)
		if err := tx.UpdateCollectionLeg(ctx, leg); err != nil {
			return err
		}

		switch {
		case next == models.CollectionFailed:
			if err := tx.SetDeliveryStatus(ctx, req.ID, models.DeliveryStatusFailed, leg.FailureReason, ts); err != nil {
				return err
			}
		case wasPending:
			if err := tx.SetDeliveryStatus(ctx, req.ID, models.DeliveryStatusInProgress, nil, ts); err != nil {
				return err
			}
		}

		previous := trip.Status
		if err := e.refreshTrip(ctx, tx, trip, ts); err != nil {
			return err
		}
		result = &models.AdvanceResult{
			TripID:         trip.ID,
			TripStatus:     trip.Status,
			PreviousStatus: previous,
			LegStatus:      string(leg.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("📍 collection leg advanced",
		zap.String("leg_id", legID),
		zap.String("status", result.LegStatus),
		zap.String("trip_status", string(result.TripStatus)),
	)
	e.emit(ctx, models.Event{
		Type:       models.EventLegAdvanced,
		TripID:     trip.ID,
		DriverID:   trip.DriverID,
		CompanyID:  companyID,
		Status:     result.LegStatus,
		OccurredAt: ts,
	})
	e.emitTripChange(ctx, trip, result.PreviousStatus, ts)
	return result, nil
}

// AdvanceDropoff moves a dropoff leg one step forward. The paired collection
// must be collected before the dropoff can leave pending.
func (e *Engine) AdvanceDropoff(ctx context.Context, legID, driverID string, next models.DropoffStatus, meta models.LegMetadata) (*models.AdvanceResult, error) {
	ts := e.now().Unix()
	var result *models.AdvanceResult
	var trip *models.Trip
	var companyID string

	err := e.store.WithTx(ctx, func(tx Tx) error {
		leg, err := tx.GetDropoffLeg(ctx, legID)
		if err != nil {
			return err
		}
		req, err := tx.GetDeliveryForUpdate(ctx, leg.DeliveryRequestID)
		if err != nil {
			return err
		}
		companyID = req.CompanyID
		leg, err = tx.GetDropoffLeg(ctx, legID)
		if err != nil {
			return err
		}

		trip, err = tx.GetTripForUpdate(ctx, leg.TripID)
		if err != nil {
			return err
		}
		if driverID != "" && trip.DriverID != driverID {
			return models.ErrForbidden
		}
		if trip.Status.IsTerminal() {
			return models.ErrTripClosed
		}
		if err := ValidateDropoffTransition(leg.Status, next, meta); err != nil {
			return err
		}
		if leg.Status == models.DropoffPending {
			collection, err := tx.GetCollectionLeg(ctx, leg.CollectionLegID)
			if err != nil {
				return err
			}
			if collection.Status != models.CollectionCollected {
				return fmt.Errorf("%w: collection is %s", models.ErrInvalidTransition, collection.Status)
			}
		}

		ApplyDropoff(leg, next, meta, ts)
		if err := tx.UpdateDropoffLeg(ctx, leg); err != nil {
			return err
		}

		switch {
		case next == models.DropoffDelivered:
			if err := tx.SetDeliveryStatus(ctx, req.ID, models.DeliveryStatusDelivered, nil, ts); err != nil {
				return err
			}
		case IsDropoffFailure(next):
			if err := tx.SetDeliveryStatus(ctx, req.ID, models.DeliveryStatusFailed, leg.FailureReason, ts); err != nil {
				return err
			}
		}

		previous := trip.Status
		if err := e.refreshTrip(ctx, tx, trip, ts); err != nil {
			return err
		}
		result = &models.AdvanceResult{
			TripID:         trip.ID,
			TripStatus:     trip.Status,
			PreviousStatus: previous,
			LegStatus:      string(leg.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("📍 dropoff leg advanced",
		zap.String("leg_id", legID),
		zap.String("status", result.LegStatus),
		zap.String("trip_status", string(result.TripStatus)),
	)
	e.emit(ctx, models.Event{
		Type:       models.EventLegAdvanced,
		TripID:     trip.ID,
		DriverID:   trip.DriverID,
		CompanyID:  companyID,
		Status:     result.LegStatus,
		OccurredAt: ts,
	})
	e.emitTripChange(ctx, trip, result.PreviousStatus, ts)
	return result, nil
}

// CancelTrip cancels a trip. Requests whose collection has not started are
// unbound and go back to awaiting a driver; the rest stay with the trip.
// An empty driverID skips the ownership check.
func (e *Engine) CancelTrip(ctx context.Context, tripID, driverID, reason string) (*models.Trip, error) {
	ts := e.now().Unix()
	var trip *models.Trip
	var previous models.TripStatus
	var released []models.DeliveryRequest

	err := e.store.WithTx(ctx, func(tx Tx) error {
		t, err := tx.GetTrip(ctx, tripID)
		if err != nil {
			return err
		}
		if driverID != "" && t.DriverID != driverID {
			return models.ErrForbidden
		}

		bound, err := tx.ListTripDeliveries(ctx, tripID)
		if err != nil {
			return err
		}
		var locked []*models.DeliveryRequest
		for _, b := range bound {
			req, err := tx.GetDeliveryForUpdate(ctx, b.ID)
			if err != nil {
				return err
			}
			if req.TripID != nil && *req.TripID == tripID {
				locked = append(locked, req)
			}
		}

		trip, err = tx.GetTripForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		if trip.Status.IsTerminal() {
			return models.ErrTripClosed
		}
		previous = trip.Status

		for _, req := range locked {
			t, err := e.unbindLocked(ctx, tx, req, ts)
			if errors.Is(err, models.ErrAlreadyInProgress) {
				continue
			}
			if err != nil {
				return err
			}
			trip = t
			released = append(released, *req)
		}

		trip.Status = models.TripStatusCancelled
		trip.CancelledAt = &ts
		if r := strings.TrimSpace(reason); r != "" {
			trip.CancelReason = &r
		}
		trip.UpdatedAt = ts
		return tx.UpdateTripStatus(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Warn("🛑 trip cancelled",
		zap.String("trip_id", tripID),
		zap.Int("released_requests", len(released)),
	)
	for _, req := range released {
		e.emit(ctx, models.Event{
			Type:       models.EventDeliveryReleased,
			TripID:     trip.ID,
			RequestID:  req.ID,
			DriverID:   trip.DriverID,
			CompanyID:  req.CompanyID,
			Status:     string(models.DeliveryStatusAwaitingDriver),
			OccurredAt: ts,
		})
	}
	e.emitTripChange(ctx, trip, previous, ts)
	return trip, nil
}

// CancelStale cancels unbound requests that waited longer than the configured
// auto-cancel timeout. It returns the cancelled requests.
func (e *Engine) CancelStale(ctx context.Context, batch int) ([]models.DeliveryRequest, error) {
	now := e.now()
	ts := now.Unix()
	var cancelled []models.DeliveryRequest

	err := e.store.WithTx(ctx, func(tx Tx) error {
		timeout, err := autoCancelTimeout(ctx, tx)
		if err != nil {
			return err
		}
		cutoff := now.Add(-timeout).Unix()

		stale, err := tx.LockStaleDeliveries(ctx, cutoff, batch)
		if err != nil {
			return err
		}
		reason := fmt.Sprintf("auto-cancelled: no driver accepted within %d minutes", int(timeout.Minutes()))
		for _, req := range stale {
			if err := tx.SetDeliveryStatus(ctx, req.ID, models.DeliveryStatusCancelled, &reason, ts); err != nil {
				return err
			}
			req.Status = models.DeliveryStatusCancelled
			req.CancelReason = &reason
			req.CancelledAt = &ts
			cancelled = append(cancelled, req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, req := range cancelled {
		e.emit(ctx, models.Event{
			Type:       models.EventDeliveryCancelled,
			RequestID:  req.ID,
			CompanyID:  req.CompanyID,
			Status:     string(models.DeliveryStatusCancelled),
			OccurredAt: ts,
		})
	}
	return cancelled, nil
}

// Quote prices a delivery without storing anything.
func (e *Engine) Quote(ctx context.Context, routeID, priceTierID string) (*models.Fare, error) {
	var fare models.Fare
	err := e.store.WithTx(ctx, func(tx Tx) error {
		route, err := tx.GetRoute(ctx, routeID)
		if err != nil {
			return err
		}
		if !route.Active {
			return models.ErrRouteInactive
		}
		tier, err := tx.GetPriceTier(ctx, priceTierID)
		if err != nil {
			return err
		}
		fare = QuoteFare(route, tier)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &fare, nil
}

// refreshTrip recomputes the trip status from its current legs and persists it
// when it moved forward. The caller must hold the trip row lock.
func (e *Engine) refreshTrip(ctx context.Context, tx Tx, trip *models.Trip, ts int64) error {
	legs, err := tx.ListTripLegs(ctx, trip.ID)
	if err != nil {
		return err
	}
	next := NextStatus(trip.Status, legs)
	if next == trip.Status {
		return nil
	}

	trip.Status = next
	trip.UpdatedAt = ts
	if next.Progress() >= models.TripStatusInTransit.Progress() && trip.ActualDepartureAt == nil {
		trip.ActualDepartureAt = &ts
	}
	if next.Progress() >= models.TripStatusDelivering.Progress() && trip.ActualArrivalAt == nil {
		trip.ActualArrivalAt = &ts
	}
	return tx.UpdateTripStatus(ctx, trip)
}

func (e *Engine) newTrip(key models.TripKey, entry *models.CapacityLedgerEntry, profile *models.DriverRouteProfile, route *models.Route, ts int64) *models.Trip {
	trip := &models.Trip{
		ID:               uuid.New().String(),
		DriverID:         key.DriverID,
		RouteID:          key.RouteID,
		ServiceDate:      key.Date,
		Status:           models.TripStatusScheduled,
		CapacityPackages: entry.TotalCapacityPackages,
		CapacityWeight:   entry.TotalCapacityWeight,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}

	departure, err := e.clockOn(key.Date, profile.DepartureTime)
	if err != nil {
		e.logger.Warn("invalid profile departure time",
			zap.String("profile_id", profile.ID),
			zap.String("departure_time", profile.DepartureTime),
		)
		return trip
	}
	dep := departure.Unix()
	trip.PlannedDepartureAt = &dep

	arr := departure.Add(time.Duration(route.AvgDurationMinutes) * time.Minute).Unix()
	if profile.ArrivalTime != nil {
		if arrival, err := e.clockOn(key.Date, *profile.ArrivalTime); err == nil && arrival.After(departure) {
			arr = arrival.Unix()
		}
	}
	trip.PlannedArrivalAt = &arr
	return trip
}

// serviceDay is the calendar day of t in the engine's timezone, as midnight UTC.
func (e *Engine) serviceDay(t time.Time) time.Time {
	y, m, d := t.In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *Engine) clockOn(day, hhmm string) (time.Time, error) {
	return time.ParseInLocation(models.DateLayout+" 15:04", day+" "+hhmm, e.loc)
}

func (e *Engine) emit(ctx context.Context, ev models.Event) {
	e.notifier.Notify(ctx, ev)
}

func (e *Engine) emitTripChange(ctx context.Context, trip *models.Trip, previous models.TripStatus, ts int64) {
	if trip == nil || trip.Status == previous {
		return
	}
	e.emit(ctx, models.Event{
		Type:       models.EventTripStatusChanged,
		TripID:     trip.ID,
		DriverID:   trip.DriverID,
		Status:     string(trip.Status),
		OccurredAt: ts,
	})
}

func newLegs(tripID string, req *models.DeliveryRequest, ts int64) (*models.CollectionLeg, *models.DropoffLeg) {
	collection := &models.CollectionLeg{
		ID:                uuid.New().String(),
		TripID:            tripID,
		DeliveryRequestID: req.ID,
		Address:           req.PickupAddress,
		Lat:               req.PickupLat,
		Lng:               req.PickupLng,
		Contact:           req.PickupContact,
		Status:            models.CollectionPending,
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}
	dropoff := &models.DropoffLeg{
		ID:                uuid.New().String(),
		TripID:            tripID,
		DeliveryRequestID: req.ID,
		CollectionLegID:   collection.ID,
		Address:           req.DropoffAddress,
		Lat:               req.DropoffLat,
		Lng:               req.DropoffLng,
		RecipientName:     req.RecipientName,
		RecipientPhone:    req.RecipientPhone,
		Status:            models.DropoffPending,
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}
	return collection, dropoff
}

// weekdayNumber maps a date to 1 = Sunday through 7 = Saturday.
func weekdayNumber(day time.Time) int {
	return int(day.Weekday()) + 1
}

func orderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("INT-%s-%s", t.Format("20060102"), suffix)
}
