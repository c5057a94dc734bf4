package database

import (
	"context"
	"fmt"
	"strings"

	"fretus-backend/internal/models"
)

func (s *txStore) CreateDelivery(ctx context.Context, d *models.DeliveryRequest) error {
	_, err := s.tx.NamedExecContext(ctx, `
		INSERT INTO delivery_requests (
			id, order_number, company_id, route_id, price_tier_id,
			pickup_address, pickup_lat, pickup_lng, pickup_contact,
			dropoff_address, dropoff_lat, dropoff_lng,
			recipient_name, recipient_phone,
			package_count, weight_g, volume_cm3, description,
			base_fare, per_km_rate, distance_km, stop_fee, total_price,
			status, created_at, updated_at
		) VALUES (
			:id, :order_number, :company_id, :route_id, :price_tier_id,
			:pickup_address, :pickup_lat, :pickup_lng, :pickup_contact,
			:dropoff_address, :dropoff_lat, :dropoff_lng,
			:recipient_name, :recipient_phone,
			:package_count, :weight_g, :volume_cm3, :description,
			:base_fare, :per_km_rate, :distance_km, :stop_fee, :total_price,
			:status, :created_at, :updated_at
		)`, d)
	if err != nil {
		return uniqueViolation(fmt.Errorf("failed to create delivery request: %w", err), "order number")
	}
	return nil
}

func (s *txStore) GetDeliveryForUpdate(ctx context.Context, id string) (*models.DeliveryRequest, error) {
	var d models.DeliveryRequest
	if err := s.tx.GetContext(ctx, &d, `SELECT * FROM delivery_requests WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, notFound(err, "delivery request "+id)
	}
	return &d, nil
}

func (s *txStore) BindDelivery(ctx context.Context, requestID, tripID string, now int64) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE delivery_requests
		SET trip_id = $2, status = 'driver_accepted', accepted_at = $3, updated_at = $3
		WHERE id = $1 AND trip_id IS NULL AND status = 'awaiting_driver'`,
		requestID, tripID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to bind delivery request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrAlreadyBound
	}
	return nil
}

func (s *txStore) UnbindDelivery(ctx context.Context, requestID string, now int64) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE delivery_requests
		SET trip_id = NULL, status = 'awaiting_driver', accepted_at = NULL, updated_at = $2
		WHERE id = $1`,
		requestID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to unbind delivery request: %w", err)
	}
	return expectOneRow(res, "delivery request "+requestID)
}

func (s *txStore) SetDeliveryStatus(ctx context.Context, requestID string, status models.DeliveryStatus, reason *string, now int64) error {
	query := `UPDATE delivery_requests SET status = $2, updated_at = $3`
	args := []interface{}{requestID, status, now}
	if status == models.DeliveryStatusCancelled {
		query += `, cancel_reason = $4, cancelled_at = $3`
		args = append(args, reason)
	}
	query += ` WHERE id = $1`

	res, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	return expectOneRow(res, "delivery request "+requestID)
}

func (s *txStore) ListTripDeliveries(ctx context.Context, tripID string) ([]models.DeliveryRequest, error) {
	return listTripDeliveries(ctx, s.tx, tripID)
}

func (s *txStore) LockStaleDeliveries(ctx context.Context, cutoff int64, limit int) ([]models.DeliveryRequest, error) {
	stale := []models.DeliveryRequest{}
	err := s.tx.SelectContext(ctx, &stale, `
		SELECT * FROM delivery_requests
		WHERE status = 'awaiting_driver' AND trip_id IS NULL AND created_at < $1
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load stale delivery requests: %w", err)
	}
	return stale, nil
}

func listTripDeliveries(ctx context.Context, q Queryer, tripID string) ([]models.DeliveryRequest, error) {
	deliveries := []models.DeliveryRequest{}
	err := q.SelectContext(ctx, &deliveries,
		`SELECT * FROM delivery_requests WHERE trip_id = $1 ORDER BY accepted_at, id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip deliveries: %w", err)
	}
	return deliveries, nil
}

// GetDelivery reads a delivery request by id.
func GetDelivery(ctx context.Context, db Queryer, id string) (*models.DeliveryRequest, error) {
	var d models.DeliveryRequest
	if err := db.GetContext(ctx, &d, `SELECT * FROM delivery_requests WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "delivery request "+id)
	}
	return &d, nil
}

// ListDeliveries returns delivery requests matching filter, newest first.
func ListDeliveries(ctx context.Context, db Queryer, filter models.DeliveryFilter) ([]models.DeliveryRequest, error) {
	var where []string
	var args []interface{}
	if filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		where = append(where, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.RouteID != "" {
		args = append(args, filter.RouteID)
		where = append(where, fmt.Sprintf("route_id = $%d", len(args)))
	}
	if filter.TripID != "" {
		args = append(args, filter.TripID)
		where = append(where, fmt.Sprintf("trip_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT * FROM delivery_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	query += limitOffset(filter.Limit, filter.Offset, &args)

	deliveries := []models.DeliveryRequest{}
	if err := db.SelectContext(ctx, &deliveries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list delivery requests: %w", err)
	}
	return deliveries, nil
}

// ListAvailableDeliveries returns open requests on active routes the driver has an active profile for.
func ListAvailableDeliveries(ctx context.Context, db Queryer, driverID string) ([]models.DeliveryRequest, error) {
	deliveries := []models.DeliveryRequest{}
	err := db.SelectContext(ctx, &deliveries, `
		SELECT d.* FROM delivery_requests d
		JOIN intermunicipal_routes r ON r.id = d.route_id AND r.active
		JOIN driver_route_profiles p ON p.route_id = d.route_id AND p.driver_id = $1 AND p.active
		WHERE d.status = 'awaiting_driver' AND d.trip_id IS NULL
		ORDER BY d.created_at`,
		driverID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list available delivery requests: %w", err)
	}
	return deliveries, nil
}
