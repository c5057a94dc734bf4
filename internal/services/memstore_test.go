package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fretus-backend/internal/models"
)

// memStore is an in-memory Store. Transactions are serialised by a mutex and
// roll back to a snapshot when fn fails, which mirrors what the engine relies
// on from PostgreSQL row locks.
type memStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	routes      map[string]models.Route
	tiers       map[string]models.PriceTier
	profiles    map[string]models.DriverRouteProfile
	settings    map[string]string
	deliveries  map[string]models.DeliveryRequest
	ledger      map[models.TripKey]models.CapacityLedgerEntry
	trips       map[string]models.Trip
	collections map[string]models.CollectionLeg
	dropoffs    map[string]models.DropoffLeg
	seq         int
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		routes:      map[string]models.Route{},
		tiers:       map[string]models.PriceTier{},
		profiles:    map[string]models.DriverRouteProfile{},
		settings:    map[string]string{},
		deliveries:  map[string]models.DeliveryRequest{},
		ledger:      map[models.TripKey]models.CapacityLedgerEntry{},
		trips:       map[string]models.Trip{},
		collections: map[string]models.CollectionLeg{},
		dropoffs:    map[string]models.DropoffLeg{},
	}}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	return &memState{
		routes:      cloneMap(s.routes),
		tiers:       cloneMap(s.tiers),
		profiles:    cloneMap(s.profiles),
		settings:    cloneMap(s.settings),
		deliveries:  cloneMap(s.deliveries),
		ledger:      cloneMap(s.ledger),
		trips:       cloneMap(s.trips),
		collections: cloneMap(s.collections),
		dropoffs:    cloneMap(s.dropoffs),
		seq:         s.seq,
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&memTx{s: m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// read runs fn against committed state.
func (m *memStore) read(fn func(s *memState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.state)
}

type memTx struct {
	s *memState
}

var _ Tx = (*memTx)(nil)

func (t *memTx) nextID(prefix string) string {
	t.s.seq++
	return fmt.Sprintf("%s-%d", prefix, t.s.seq)
}

func (t *memTx) GetRoute(ctx context.Context, id string) (*models.Route, error) {
	r, ok := t.s.routes[id]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", id, models.ErrNotFound)
	}
	return &r, nil
}

func (t *memTx) GetPriceTier(ctx context.Context, id string) (*models.PriceTier, error) {
	p, ok := t.s.tiers[id]
	if !ok {
		return nil, fmt.Errorf("price tier %s: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (t *memTx) GetActiveProfile(ctx context.Context, driverID, routeID string) (*models.DriverRouteProfile, error) {
	for _, p := range t.s.profiles {
		if p.DriverID == driverID && p.RouteID == routeID && p.Active {
			return &p, nil
		}
	}
	return nil, models.ErrNotFound
}

func (t *memTx) GetSetting(ctx context.Context, key string) (string, error) {
	v, ok := t.s.settings[key]
	if !ok {
		return "", models.ErrNotFound
	}
	return v, nil
}

func (t *memTx) CreateDelivery(ctx context.Context, d *models.DeliveryRequest) error {
	if _, ok := t.s.deliveries[d.ID]; ok {
		return models.ErrConflict
	}
	t.s.deliveries[d.ID] = *d
	return nil
}

func (t *memTx) GetDeliveryForUpdate(ctx context.Context, id string) (*models.DeliveryRequest, error) {
	d, ok := t.s.deliveries[id]
	if !ok {
		return nil, fmt.Errorf("delivery request %s: %w", id, models.ErrNotFound)
	}
	return &d, nil
}

func (t *memTx) BindDelivery(ctx context.Context, requestID, tripID string, now int64) error {
	d, ok := t.s.deliveries[requestID]
	if !ok || d.TripID != nil || d.Status != models.DeliveryStatusAwaitingDriver {
		return models.ErrAlreadyBound
	}
	d.TripID = &tripID
	d.Status = models.DeliveryStatusDriverAccepted
	d.AcceptedAt = &now
	d.UpdatedAt = now
	t.s.deliveries[requestID] = d
	return nil
}

func (t *memTx) UnbindDelivery(ctx context.Context, requestID string, now int64) error {
	d := t.s.deliveries[requestID]
	d.TripID = nil
	d.Status = models.DeliveryStatusAwaitingDriver
	d.AcceptedAt = nil
	d.UpdatedAt = now
	t.s.deliveries[requestID] = d
	return nil
}

func (t *memTx) SetDeliveryStatus(ctx context.Context, requestID string, status models.DeliveryStatus, reason *string, now int64) error {
	d, ok := t.s.deliveries[requestID]
	if !ok {
		return models.ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = now
	if status == models.DeliveryStatusCancelled {
		d.CancelReason = reason
		d.CancelledAt = &now
	}
	t.s.deliveries[requestID] = d
	return nil
}

func (t *memTx) ListTripDeliveries(ctx context.Context, tripID string) ([]models.DeliveryRequest, error) {
	var out []models.DeliveryRequest
	for _, d := range t.s.deliveries {
		if d.TripID != nil && *d.TripID == tripID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) LockStaleDeliveries(ctx context.Context, cutoff int64, limit int) ([]models.DeliveryRequest, error) {
	var out []models.DeliveryRequest
	for _, d := range t.s.deliveries {
		if d.TripID == nil && d.Status == models.DeliveryStatusAwaitingDriver && d.CreatedAt < cutoff {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) OpenLedger(ctx context.Context, key models.TripKey, profile *models.DriverRouteProfile, now int64) (*models.CapacityLedgerEntry, bool, error) {
	if e, ok := t.s.ledger[key]; ok {
		return &e, false, nil
	}
	e := models.CapacityLedgerEntry{
		ID:                    t.nextID("ledger"),
		DriverID:              key.DriverID,
		RouteID:               key.RouteID,
		ServiceDate:           key.Date,
		TotalCapacityPackages: profile.CapacityPackages,
		TotalCapacityWeight:   profile.CapacityWeight,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	t.s.ledger[key] = e
	return &e, true, nil
}

func (t *memTx) ReserveLedger(ctx context.Context, key models.TripKey, load models.Load, now int64) (*models.CapacityLedgerEntry, error) {
	e, ok := t.s.ledger[key]
	if !ok || !e.Fits(load) {
		return nil, models.ErrCapacityExceeded
	}
	e.AcceptedPackages += load.Packages
	e.AcceptedWeight += load.Weight
	e.AcceptedVolume += load.Volume
	e.AcceptedDeliveryCount++
	e.UpdatedAt = now
	t.s.ledger[key] = e
	return &e, nil
}

func (t *memTx) ReleaseLedger(ctx context.Context, key models.TripKey, load models.Load, now int64) (*models.CapacityLedgerEntry, error) {
	e, ok := t.s.ledger[key]
	if !ok || e.AcceptedPackages < load.Packages || e.AcceptedWeight < load.Weight ||
		e.AcceptedVolume < load.Volume || e.AcceptedDeliveryCount == 0 {
		return nil, fmt.Errorf("ledger release for %s/%s/%s would go negative", key.DriverID, key.RouteID, key.Date)
	}
	e.AcceptedPackages -= load.Packages
	e.AcceptedWeight -= load.Weight
	e.AcceptedVolume -= load.Volume
	e.AcceptedDeliveryCount--
	e.UpdatedAt = now
	t.s.ledger[key] = e
	return &e, nil
}

func (t *memTx) FindOrCreateTrip(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	for _, existing := range t.s.trips {
		if existing.DriverID == trip.DriverID && existing.RouteID == trip.RouteID && existing.ServiceDate == trip.ServiceDate {
			return &existing, nil
		}
	}
	created := *trip
	t.s.trips[created.ID] = created
	return &created, nil
}

func (t *memTx) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	trip, ok := t.s.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", id, models.ErrNotFound)
	}
	return &trip, nil
}

func (t *memTx) GetTripForUpdate(ctx context.Context, id string) (*models.Trip, error) {
	return t.GetTrip(ctx, id)
}

func (t *memTx) ReserveTrip(ctx context.Context, tripID string, load models.Load, now int64) (*models.Trip, error) {
	trip, ok := t.s.trips[tripID]
	if !ok ||
		trip.AcceptedPackages+load.Packages > trip.CapacityPackages ||
		trip.AcceptedWeight+load.Weight > trip.CapacityWeight {
		return nil, models.ErrCapacityExceeded
	}
	trip.AcceptedPackages += load.Packages
	trip.AcceptedWeight += load.Weight
	trip.AcceptedVolume += load.Volume
	trip.DeliveryCount++
	trip.UpdatedAt = now
	t.s.trips[tripID] = trip
	return &trip, nil
}

func (t *memTx) ReleaseTrip(ctx context.Context, tripID string, load models.Load, now int64) (*models.Trip, error) {
	trip, ok := t.s.trips[tripID]
	if !ok || trip.AcceptedPackages < load.Packages || trip.AcceptedWeight < load.Weight ||
		trip.AcceptedVolume < load.Volume || trip.DeliveryCount == 0 {
		return nil, fmt.Errorf("trip %s release would go negative", tripID)
	}
	trip.AcceptedPackages -= load.Packages
	trip.AcceptedWeight -= load.Weight
	trip.AcceptedVolume -= load.Volume
	trip.DeliveryCount--
	trip.UpdatedAt = now
	t.s.trips[tripID] = trip
	return &trip, nil
}

func (t *memTx) UpdateTripStatus(ctx context.Context, trip *models.Trip) error {
	stored, ok := t.s.trips[trip.ID]
	if !ok {
		return models.ErrNotFound
	}
	stored.Status = trip.Status
	stored.ActualDepartureAt = trip.ActualDepartureAt
	stored.ActualArrivalAt = trip.ActualArrivalAt
	stored.CancelledAt = trip.CancelledAt
	stored.CancelReason = trip.CancelReason
	stored.UpdatedAt = trip.UpdatedAt
	t.s.trips[trip.ID] = stored
	return nil
}

func (t *memTx) CreateLegs(ctx context.Context, collection *models.CollectionLeg, dropoff *models.DropoffLeg) error {
	maxSeq := 0
	for _, c := range t.s.collections {
		if c.TripID == collection.TripID && c.Sequence > maxSeq {
			maxSeq = c.Sequence
		}
	}
	collection.Sequence = maxSeq + 1
	t.s.collections[collection.ID] = *collection

	maxSeq = 0
	for _, d := range t.s.dropoffs {
		if d.TripID == dropoff.TripID && d.Sequence > maxSeq {
			maxSeq = d.Sequence
		}
	}
	dropoff.Sequence = maxSeq + 1
	t.s.dropoffs[dropoff.ID] = *dropoff
	return nil
}

func (t *memTx) DeleteLegs(ctx context.Context, requestID string) error {
	for id, d := range t.s.dropoffs {
		if d.DeliveryRequestID == requestID {
			delete(t.s.dropoffs, id)
		}
	}
	for id, c := range t.s.collections {
		if c.DeliveryRequestID == requestID {
			delete(t.s.collections, id)
		}
	}
	return nil
}

func (t *memTx) GetCollectionLeg(ctx context.Context, id string) (*models.CollectionLeg, error) {
	c, ok := t.s.collections[id]
	if !ok {
		return nil, fmt.Errorf("collection leg %s: %w", id, models.ErrNotFound)
	}
	return &c, nil
}

func (t *memTx) GetCollectionLegByRequest(ctx context.Context, requestID string) (*models.CollectionLeg, error) {
	for _, c := range t.s.collections {
		if c.DeliveryRequestID == requestID {
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (t *memTx) GetDropoffLeg(ctx context.Context, id string) (*models.DropoffLeg, error) {
	d, ok := t.s.dropoffs[id]
	if !ok {
		return nil, fmt.Errorf("dropoff leg %s: %w", id, models.ErrNotFound)
	}
	return &d, nil
}

func (t *memTx) UpdateCollectionLeg(ctx context.Context, leg *models.CollectionLeg) error {
	if _, ok := t.s.collections[leg.ID]; !ok {
		return models.ErrNotFound
	}
	t.s.collections[leg.ID] = *leg
	return nil
}

func (t *memTx) UpdateDropoffLeg(ctx context.Context, leg *models.DropoffLeg) error {
	if _, ok := t.s.dropoffs[leg.ID]; !ok {
		return models.ErrNotFound
	}
	t.s.dropoffs[leg.ID] = *leg
	return nil
}

func (t *memTx) ListTripLegs(ctx context.Context, tripID string) (models.LegSet, error) {
	var legs models.LegSet
	for _, c := range t.s.collections {
		if c.TripID == tripID {
			legs.Collections = append(legs.Collections, c)
		}
	}
	for _, d := range t.s.dropoffs {
		if d.TripID == tripID {
			legs.Dropoffs = append(legs.Dropoffs, d)
		}
	}
	sort.Slice(legs.Collections, func(i, j int) bool { return legs.Collections[i].Sequence < legs.Collections[j].Sequence })
	sort.Slice(legs.Dropoffs, func(i, j int) bool { return legs.Dropoffs[i].Sequence < legs.Dropoffs[j].Sequence })
	return legs, nil
}
