package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fretus-backend/internal/models"

	"github.com/google/uuid"
)

const ledgerColumns = `id, driver_id, route_id, to_char(service_date, 'YYYY-MM-DD') AS service_date,
	total_capacity_packages, total_capacity_weight_g,
	accepted_packages, accepted_weight_g, accepted_volume_cm3, accepted_delivery_count,
	created_at, updated_at`

func (s *txStore) OpenLedger(ctx context.Context, key models.TripKey, profile *models.DriverRouteProfile, now int64) (*models.CapacityLedgerEntry, bool, error) {
	var entry models.CapacityLedgerEntry
	err := s.tx.GetContext(ctx, &entry, `
		INSERT INTO capacity_ledger (
			id, driver_id, route_id, service_date,
			total_capacity_packages, total_capacity_weight_g,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4::date, $5, $6, $7, $7)
		ON CONFLICT (driver_id, route_id, service_date) DO NOTHING
		RETURNING `+ledgerColumns,
		uuid.New().String(), key.DriverID, key.RouteID, key.Date,
		profile.CapacityPackages, profile.CapacityWeight, now,
	)
	if err == nil {
		return &entry, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to open ledger entry: %w", err)
	}

	// Someone else opened the day first.
	err = s.tx.GetContext(ctx, &entry, `
		SELECT `+ledgerColumns+` FROM capacity_ledger
		WHERE driver_id = $1 AND route_id = $2 AND service_date = $3::date`,
		key.DriverID, key.RouteID, key.Date,
	)
	if err != nil {
		return nil, false, notFound(err, "ledger entry")
	}
	return &entry, false, nil
}

func (s *txStore) ReserveLedger(ctx context.Context, key models.TripKey, load models.Load, now int64) (*models.CapacityLedgerEntry, error) {
	var entry models.CapacityLedgerEntry
	err := s.tx.GetContext(ctx, &entry, `
		UPDATE capacity_ledger
		SET accepted_packages = accepted_packages + $4,
		    accepted_weight_g = accepted_weight_g + $5,
		    accepted_volume_cm3 = accepted_volume_cm3 + $6,
		    accepted_delivery_count = accepted_delivery_count + 1,
		    updated_at = $7
		WHERE driver_id = $1 AND route_id = $2 AND service_date = $3::date
		  AND accepted_packages + $4 <= total_capacity_packages
		  AND accepted_weight_g + $5 <= total_capacity_weight_g
		RETURNING `+ledgerColumns,
		key.DriverID, key.RouteID, key.Date, load.Packages, load.Weight, load.Volume, now,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrCapacityExceeded
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve ledger capacity: %w", err)
	}
	return &entry, nil
}

func (s *txStore) ReleaseLedger(ctx context.Context, key models.TripKey, load models.Load, now int64) (*models.CapacityLedgerEntry, error) {
	var entry models.CapacityLedgerEntry
	err := s.tx.GetContext(ctx, &entry, `
		UPDATE capacity_ledger
		SET accepted_packages = accepted_packages - $4,
		    accepted_weight_g = accepted_weight_g - $5,
		    accepted_volume_cm3 = accepted_volume_cm3 - $6,
		    accepted_delivery_count = accepted_delivery_count - 1,
		    updated_at = $7
		WHERE driver_id = $1 AND route_id = $2 AND service_date = $3::date
		  AND accepted_packages - $4 >= 0
		  AND accepted_weight_g - $5 >= 0
		  AND accepted_volume_cm3 - $6 >= 0
		  AND accepted_delivery_count > 0
		RETURNING `+ledgerColumns,
		key.DriverID, key.RouteID, key.Date, load.Packages, load.Weight, load.Volume, now,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger release for %s/%s/%s would go negative", key.DriverID, key.RouteID, key.Date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to release ledger capacity: %w", err)
	}
	return &entry, nil
}

// GetLedgerEntry reads the ledger row for key.
func GetLedgerEntry(ctx context.Context, db Queryer, key models.TripKey) (*models.CapacityLedgerEntry, error) {
	var entry models.CapacityLedgerEntry
	err := db.GetContext(ctx, &entry, `
		SELECT `+ledgerColumns+` FROM capacity_ledger
		WHERE driver_id = $1 AND route_id = $2 AND service_date = $3::date`,
		key.DriverID, key.RouteID, key.Date,
	)
	if err != nil {
		return nil, notFound(err, "ledger entry")
	}
	return &entry, nil
}
