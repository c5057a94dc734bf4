package database

import (
	"context"
	"fmt"

	"fretus-backend/internal/models"
)

func (s *txStore) GetRoute(ctx context.Context, id string) (*models.Route, error) {
	return GetRoute(ctx, s.tx, id)
}

func (s *txStore) GetPriceTier(ctx context.Context, id string) (*models.PriceTier, error) {
	return GetPriceTier(ctx, s.tx, id)
}

func (s *txStore) GetActiveProfile(ctx context.Context, driverID, routeID string) (*models.DriverRouteProfile, error) {
	var p models.DriverRouteProfile
	err := s.tx.GetContext(ctx, &p, `
		SELECT * FROM driver_route_profiles
		WHERE driver_id = $1 AND route_id = $2 AND active`,
		driverID, routeID,
	)
	if err != nil {
		return nil, notFound(err, "driver route profile")
	}
	return &p, nil
}

func (s *txStore) GetSetting(ctx context.Context, key string) (string, error) {
	return GetSetting(ctx, s.tx, key)
}

// GetRoute reads an intermunicipal route.
func GetRoute(ctx context.Context, db Queryer, id string) (*models.Route, error) {
	var r models.Route
	if err := db.GetContext(ctx, &r, `SELECT * FROM intermunicipal_routes WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "route "+id)
	}
	return &r, nil
}

func ListRoutes(ctx context.Context, db Queryer, activeOnly bool) ([]models.Route, error) {
	query := `SELECT * FROM intermunicipal_routes`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY origin_city, destination_city`

	routes := []models.Route{}
	if err := db.SelectContext(ctx, &routes, query); err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}

func CreateRoute(ctx context.Context, db Queryer, r *models.Route) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO intermunicipal_routes (
			id, name, origin_city, destination_city, distance_km, avg_duration_minutes, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		r.ID, r.Name, r.OriginCity, r.DestinationCity, r.DistanceKm, r.AvgDurationMinutes, r.Active, r.CreatedAt,
	)
	if err != nil {
		return uniqueViolation(fmt.Errorf("failed to create route: %w", err), "route")
	}
	return nil
}

// UpdateRoute saves route attributes. Trips already created keep their planned times.
func UpdateRoute(ctx context.Context, db Queryer, r *models.Route) error {
	res, err := db.ExecContext(ctx, `
		UPDATE intermunicipal_routes
		SET name = $2, origin_city = $3, destination_city = $4, distance_km = $5,
		    avg_duration_minutes = $6, active = $7, updated_at = $8
		WHERE id = $1`,
		r.ID, r.Name, r.OriginCity, r.DestinationCity, r.DistanceKm, r.AvgDurationMinutes, r.Active, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}
	return expectOneRow(res, "route "+r.ID)
}

// DeleteRoute removes a route; profiles, ledger rows, trips and legs cascade.
func DeleteRoute(ctx context.Context, db Queryer, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM intermunicipal_routes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	return expectOneRow(res, "route "+id)
}

func GetProfile(ctx context.Context, db Queryer, id string) (*models.DriverRouteProfile, error) {
	var p models.DriverRouteProfile
	if err := db.GetContext(ctx, &p, `SELECT * FROM driver_route_profiles WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "driver route profile "+id)
	}
	return &p, nil
}

func ListDriverProfiles(ctx context.Context, db Queryer, driverID string) ([]models.DriverRouteProfile, error) {
	profiles := []models.DriverRouteProfile{}
	err := db.SelectContext(ctx, &profiles,
		`SELECT * FROM driver_route_profiles WHERE driver_id = $1 ORDER BY created_at`, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list driver route profiles: %w", err)
	}
	return profiles, nil
}

// CreateProfile returns models.ErrConflict when the driver already has a profile for the route.
func CreateProfile(ctx context.Context, db Queryer, p *models.DriverRouteProfile) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO driver_route_profiles (
			id, driver_id, route_id, days_of_week, departure_time, arrival_time,
			capacity_packages, capacity_weight_g, capacity_volume_cm3,
			accepts_multiple_pickups, accepts_multiple_dropoffs, pickup_radius_km, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		p.ID, p.DriverID, p.RouteID, p.DaysOfWeek, p.DepartureTime, p.ArrivalTime,
		p.CapacityPackages, p.CapacityWeight, p.CapacityVolume,
		p.AcceptsMultiplePickups, p.AcceptsMultipleDropoffs, p.PickupRadiusKm, p.Active,
		p.CreatedAt,
	)
	if err != nil {
		return uniqueViolation(fmt.Errorf("failed to create driver route profile: %w", err), "driver route profile")
	}
	return nil
}

// UpdateProfile changes a profile. Ledger entries already opened keep their totals.
func UpdateProfile(ctx context.Context, db Queryer, p *models.DriverRouteProfile) error {
	res, err := db.ExecContext(ctx, `
		UPDATE driver_route_profiles
		SET days_of_week = $3, departure_time = $4, arrival_time = $5,
		    capacity_packages = $6, capacity_weight_g = $7, capacity_volume_cm3 = $8,
		    accepts_multiple_pickups = $9, accepts_multiple_dropoffs = $10,
		    pickup_radius_km = $11, active = $12, updated_at = $13
		WHERE id = $1 AND driver_id = $2`,
		p.ID, p.DriverID, p.DaysOfWeek, p.DepartureTime, p.ArrivalTime,
		p.CapacityPackages, p.CapacityWeight, p.CapacityVolume,
		p.AcceptsMultiplePickups, p.AcceptsMultipleDropoffs, p.PickupRadiusKm, p.Active,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update driver route profile: %w", err)
	}
	return expectOneRow(res, "driver route profile "+p.ID)
}

func DeleteProfile(ctx context.Context, db Queryer, id, driverID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM driver_route_profiles WHERE id = $1 AND driver_id = $2`, id, driverID)
	if err != nil {
		return fmt.Errorf("failed to delete driver route profile: %w", err)
	}
	return expectOneRow(res, "driver route profile "+id)
}

func GetPriceTier(ctx context.Context, db Queryer, id string) (*models.PriceTier, error) {
	var t models.PriceTier
	if err := db.GetContext(ctx, &t, `SELECT * FROM price_tiers WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "price tier "+id)
	}
	return &t, nil
}

func ListPriceTiers(ctx context.Context, db Queryer) ([]models.PriceTier, error) {
	tiers := []models.PriceTier{}
	if err := db.SelectContext(ctx, &tiers, `SELECT * FROM price_tiers ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list price tiers: %w", err)
	}
	return tiers, nil
}

func CreatePriceTier(ctx context.Context, db Queryer, t *models.PriceTier) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO price_tiers (id, name, base_fare, per_km_rate, stop_fee, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		t.ID, t.Name, t.BaseFare, t.PerKmRate, t.StopFee, t.Active, t.CreatedAt,
	)
	if err != nil {
		return uniqueViolation(fmt.Errorf("failed to create price tier: %w", err), "price tier")
	}
	return nil
}

func GetSetting(ctx context.Context, db Queryer, key string) (string, error) {
	var value string
	if err := db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, key); err != nil {
		return "", notFound(err, "setting "+key)
	}
	return value, nil
}

func SetSetting(ctx context.Context, db Queryer, key, value string, now int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}
