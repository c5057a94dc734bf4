package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fretus-backend/internal/models"
)

const tripColumns = `id, driver_id, route_id, to_char(service_date, 'YYYY-MM-DD') AS service_date, status,
	capacity_packages, capacity_weight_g, accepted_packages, accepted_weight_g, accepted_volume_cm3,
	delivery_count, planned_departure_at, planned_arrival_at, actual_departure_at, actual_arrival_at,
	cancelled_at, cancel_reason, created_at, updated_at`

// FindOrCreateTrip inserts the trip unless (driver, route, date) already has one.
// A conflicting insert means another transaction created it first, which is fine.
func (s *txStore) FindOrCreateTrip(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO trips (
			id, driver_id, route_id, service_date, status,
			capacity_packages, capacity_weight_g,
			planned_departure_at, planned_arrival_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (driver_id, route_id, service_date) DO NOTHING`,
		trip.ID, trip.DriverID, trip.RouteID, trip.ServiceDate, trip.Status,
		trip.CapacityPackages, trip.CapacityWeight,
		trip.PlannedDepartureAt, trip.PlannedArrivalAt,
		trip.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	var out models.Trip
	err = s.tx.GetContext(ctx, &out, `
		SELECT `+tripColumns+` FROM trips
		WHERE driver_id = $1 AND route_id = $2 AND service_date = $3::date
		FOR UPDATE`,
		trip.DriverID, trip.RouteID, trip.ServiceDate,
	)
	if err != nil {
		return nil, notFound(err, "trip")
	}
	return &out, nil
}

func (s *txStore) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	return getTrip(ctx, s.tx, id, false)
}

func (s *txStore) GetTripForUpdate(ctx context.Context, id string) (*models.Trip, error) {
	return getTrip(ctx, s.tx, id, true)
}

func getTrip(ctx context.Context, q Queryer, id string, lock bool) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var trip models.Trip
	if err := q.GetContext(ctx, &trip, query, id); err != nil {
		return nil, notFound(err, "trip "+id)
	}
	return &trip, nil
}

func (s *txStore) ReserveTrip(ctx context.Context, tripID string, load models.Load, now int64) (*models.Trip, error) {
	var trip models.Trip
	err := s.tx.GetContext(ctx, &trip, `
		UPDATE trips
		SET accepted_packages = accepted_packages + $2,
		    accepted_weight_g = accepted_weight_g + $3,
		    accepted_volume_cm3 = accepted_volume_cm3 + $4,
		    delivery_count = delivery_count + 1,
		    updated_at = $5
		WHERE id = $1
		  AND accepted_packages + $2 <= capacity_packages
		  AND accepted_weight_g + $3 <= capacity_weight_g
		RETURNING `+tripColumns,
		tripID, load.Packages, load.Weight, load.Volume, now,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrCapacityExceeded
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve trip capacity: %w", err)
	}
	return &trip, nil
}

func (s *txStore) ReleaseTrip(ctx context.Context, tripID string, load models.Load, now int64) (*models.Trip, error) {
	var trip models.Trip
	err := s.tx.GetContext(ctx, &trip, `
		UPDATE trips
		SET accepted_packages = accepted_packages - $2,
		    accepted_weight_g = accepted_weight_g - $3,
		    accepted_volume_cm3 = accepted_volume_cm3 - $4,
		    delivery_count = delivery_count - 1,
		    updated_at = $5
		WHERE id = $1
		  AND accepted_packages - $2 >= 0
		  AND accepted_weight_g - $3 >= 0
		  AND accepted_volume_cm3 - $4 >= 0
		  AND delivery_count > 0
		RETURNING `+tripColumns,
		tripID, load.Packages, load.Weight, load.Volume, now,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trip %s release would go negative", tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to release trip capacity: %w", err)
	}
	return &trip, nil
}

func (s *txStore) UpdateTripStatus(ctx context.Context, trip *models.Trip) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE trips
		SET status = $2,
		    actual_departure_at = $3,
		    actual_arrival_at = $4,
		    cancelled_at = $5,
		    cancel_reason = $6,
		    updated_at = $7
		WHERE id = $1`,
		trip.ID, trip.Status, trip.ActualDepartureAt, trip.ActualArrivalAt,
		trip.CancelledAt, trip.CancelReason, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update trip status: %w", err)
	}
	return expectOneRow(res, "trip "+trip.ID)
}

const tripSummarySelect = `
	SELECT t.id, t.driver_id, t.route_id, to_char(t.service_date, 'YYYY-MM-DD') AS service_date, t.status,
	       t.capacity_packages, t.capacity_weight_g, t.accepted_packages, t.accepted_weight_g,
	       t.accepted_volume_cm3, t.delivery_count, t.planned_departure_at, t.planned_arrival_at,
	       t.actual_departure_at, t.actual_arrival_at, t.cancelled_at, t.cancel_reason,
	       t.created_at, t.updated_at,
	       u.name AS driver_name, r.name AS route_name, r.origin_city, r.destination_city
	FROM trips t
	JOIN users u ON u.id = t.driver_id
	JOIN intermunicipal_routes r ON r.id = t.route_id`

// ListTrips returns trip summaries with occupancy, newest service date first.
func ListTrips(ctx context.Context, db Queryer, filter models.TripFilter) ([]models.TripSummary, error) {
	var where []string
	var args []interface{}
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		where = append(where, fmt.Sprintf("t.driver_id = $%d", len(args)))
	}
	if filter.RouteID != "" {
		args = append(args, filter.RouteID)
		where = append(where, fmt.Sprintf("t.route_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.Date != "" {
		args = append(args, filter.Date)
		where = append(where, fmt.Sprintf("t.service_date = $%d::date", len(args)))
	}

	query := tripSummarySelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.service_date DESC, t.created_at DESC"
	query += limitOffset(filter.Limit, filter.Offset, &args)

	trips := []models.TripSummary{}
	if err := db.SelectContext(ctx, &trips, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	for i := range trips {
		trips[i].Occupancy = trips[i].Trip.Occupancy()
	}
	return trips, nil
}

// GetTripDetail returns a trip with its bound requests and both leg lists.
func GetTripDetail(ctx context.Context, db Queryer, id string) (*models.TripDetail, error) {
	var summary models.TripSummary
	if err := db.GetContext(ctx, &summary, tripSummarySelect+" WHERE t.id = $1", id); err != nil {
		return nil, notFound(err, "trip "+id)
	}
	summary.Occupancy = summary.Trip.Occupancy()

	deliveries, err := listTripDeliveries(ctx, db, id)
	if err != nil {
		return nil, err
	}
	legs, err := listTripLegs(ctx, db, id)
	if err != nil {
		return nil, err
	}

	return &models.TripDetail{
		TripSummary: summary,
		Deliveries:  deliveries,
		Collections: legs.Collections,
		Dropoffs:    legs.Dropoffs,
	}, nil
}

func limitOffset(limit, offset int, args *[]interface{}) string {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	*args = append(*args, limit)
	clause := fmt.Sprintf(" LIMIT $%d", len(*args))
	if offset > 0 {
		*args = append(*args, offset)
		clause += fmt.Sprintf(" OFFSET $%d", len(*args))
	}
	return clause
}
