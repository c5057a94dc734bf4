package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func Connect(dbURL string, logger *zap.Logger) (*sqlx.DB, error) {
	logger.Info("🔌 database connection attempt",
		zap.Int("url_length", len(dbURL)),
		zap.String("url_prefix", dbURL[:min(30, len(dbURL))]+"..."),
	)

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Error("❌ database connection failed at sqlx.Connect()",
			zap.String("error_type", fmt.Sprintf("%T", err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		logger.Error("❌ database connection failed at Ping()", zap.Error(err))
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Info("✅ database connection successful")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			phone TEXT,
			role TEXT NOT NULL CHECK(role IN ('admin', 'driver', 'company')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS intermunicipal_routes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			origin_city TEXT NOT NULL,
			destination_city TEXT NOT NULL,
			distance_km DOUBLE PRECISION NOT NULL CHECK (distance_km > 0),
			avg_duration_minutes INT NOT NULL CHECK (avg_duration_minutes > 0),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			CHECK (origin_city <> destination_city)
		)`,

		`CREATE TABLE IF NOT EXISTS driver_route_profiles (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL,
			route_id TEXT NOT NULL,
			days_of_week INT[] NOT NULL,
			departure_time TEXT NOT NULL,
			arrival_time TEXT,
			capacity_packages INT NOT NULL CHECK (capacity_packages > 0),
			capacity_weight_g BIGINT NOT NULL CHECK (capacity_weight_g > 0),
			capacity_volume_cm3 BIGINT,
			accepts_multiple_pickups BOOLEAN NOT NULL DEFAULT TRUE,
			accepts_multiple_dropoffs BOOLEAN NOT NULL DEFAULT TRUE,
			pickup_radius_km DOUBLE PRECISION,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (driver_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (route_id) REFERENCES intermunicipal_routes(id) ON DELETE CASCADE,
			UNIQUE (driver_id, route_id)
		)`,

		`CREATE TABLE IF NOT EXISTS price_tiers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			base_fare DOUBLE PRECISION NOT NULL CHECK (base_fare >= 0),
			per_km_rate DOUBLE PRECISION NOT NULL CHECK (per_km_rate >= 0),
			stop_fee DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (stop_fee >= 0),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Ledger rows are never deleted by the application; the CHECKs back up the
		// conditional updates in ledger.go.
		`CREATE TABLE IF NOT EXISTS capacity_ledger (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL,
			route_id TEXT NOT NULL,
			service_date DATE NOT NULL,
			total_capacity_packages INT NOT NULL,
			total_capacity_weight_g BIGINT NOT NULL,
			accepted_packages INT NOT NULL DEFAULT 0,
			accepted_weight_g BIGINT NOT NULL DEFAULT 0,
			accepted_volume_cm3 BIGINT NOT NULL DEFAULT 0,
			accepted_delivery_count INT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (driver_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (route_id) REFERENCES intermunicipal_routes(id) ON DELETE CASCADE,
			UNIQUE (driver_id, route_id, service_date),
			CHECK (accepted_packages >= 0 AND accepted_packages <= total_capacity_packages),
			CHECK (accepted_weight_g >= 0 AND accepted_weight_g <= total_capacity_weight_g),
			CHECK (accepted_delivery_count >= 0)
		)`,

		`CREATE TABLE IF NOT EXISTS trips (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL,
			route_id TEXT NOT NULL,
			service_date DATE NOT NULL,
			status TEXT NOT NULL DEFAULT 'scheduled'
				CHECK (status IN ('scheduled', 'collecting', 'in_transit', 'delivering', 'completed', 'cancelled')),
			capacity_packages INT NOT NULL,
			capacity_weight_g BIGINT NOT NULL,
			accepted_packages INT NOT NULL DEFAULT 0,
			accepted_weight_g BIGINT NOT NULL DEFAULT 0,
			accepted_volume_cm3 BIGINT NOT NULL DEFAULT 0,
			delivery_count INT NOT NULL DEFAULT 0,
			planned_departure_at BIGINT,
			planned_arrival_at BIGINT,
			actual_departure_at BIGINT,
			actual_arrival_at BIGINT,
			cancelled_at BIGINT,
			cancel_reason TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (driver_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (route_id) REFERENCES intermunicipal_routes(id) ON DELETE CASCADE,
			UNIQUE (driver_id, route_id, service_date),
			CHECK (accepted_packages >= 0 AND accepted_packages <= capacity_packages),
			CHECK (accepted_weight_g >= 0 AND accepted_weight_g <= capacity_weight_g),
			CHECK (delivery_count >= 0)
		)`,

		`CREATE TABLE IF NOT EXISTS delivery_requests (
			id TEXT PRIMARY KEY,
			order_number TEXT NOT NULL UNIQUE,
			company_id TEXT NOT NULL,
			route_id TEXT NOT NULL,
			price_tier_id TEXT NOT NULL,
			trip_id TEXT,
			pickup_address TEXT NOT NULL,
			pickup_lat DOUBLE PRECISION,
			pickup_lng DOUBLE PRECISION,
			pickup_contact TEXT,
			dropoff_address TEXT NOT NULL,
			dropoff_lat DOUBLE PRECISION,
			dropoff_lng DOUBLE PRECISION,
			recipient_name TEXT NOT NULL,
			recipient_phone TEXT NOT NULL,
			package_count INT NOT NULL CHECK (package_count > 0),
			weight_g BIGINT NOT NULL CHECK (weight_g > 0),
			volume_cm3 BIGINT NOT NULL DEFAULT 0 CHECK (volume_cm3 >= 0),
			description TEXT,
			base_fare DOUBLE PRECISION NOT NULL,
			per_km_rate DOUBLE PRECISION NOT NULL,
			distance_km DOUBLE PRECISION NOT NULL,
			stop_fee DOUBLE PRECISION NOT NULL,
			total_price DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL DEFAULT 'awaiting_driver'
				CHECK (status IN ('awaiting_driver', 'driver_accepted', 'in_progress', 'delivered', 'failed', 'cancelled')),
			cancel_reason TEXT,
			accepted_at BIGINT,
			cancelled_at BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (company_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (route_id) REFERENCES intermunicipal_routes(id) ON DELETE CASCADE,
			FOREIGN KEY (price_tier_id) REFERENCES price_tiers(id),
			FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE SET NULL
		)`,

		`CREATE TABLE IF NOT EXISTS collection_legs (
			id TEXT PRIMARY KEY,
			trip_id TEXT NOT NULL,
			delivery_request_id TEXT NOT NULL UNIQUE,
			sequence INT NOT NULL,
			address TEXT NOT NULL,
			lat DOUBLE PRECISION,
			lng DOUBLE PRECISION,
			contact TEXT,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'en_route', 'arrived', 'collected', 'failed')),
			failure_reason TEXT,
			photo_url TEXT,
			notes TEXT,
			en_route_at BIGINT,
			arrived_at BIGINT,
			finished_at BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE,
			FOREIGN KEY (delivery_request_id) REFERENCES delivery_requests(id) ON DELETE CASCADE,
			CHECK (status <> 'failed' OR failure_reason IS NOT NULL)
		)`,

		`CREATE TABLE IF NOT EXISTS dropoff_legs (
			id TEXT PRIMARY KEY,
			trip_id TEXT NOT NULL,
			delivery_request_id TEXT NOT NULL UNIQUE,
			collection_leg_id TEXT NOT NULL,
			sequence INT NOT NULL,
			address TEXT NOT NULL,
			lat DOUBLE PRECISION,
			lng DOUBLE PRECISION,
			recipient_name TEXT NOT NULL,
			recipient_phone TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'en_route', 'arrived', 'delivered', 'refused', 'absent', 'returned')),
			failure_reason TEXT,
			receiver_name TEXT,
			receiver_document TEXT,
			photo_url TEXT,
			signature_url TEXT,
			rating INT CHECK (rating BETWEEN 1 AND 5),
			rating_comment TEXT,
			notes TEXT,
			en_route_at BIGINT,
			arrived_at BIGINT,
			finished_at BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE,
			FOREIGN KEY (delivery_request_id) REFERENCES delivery_requests(id) ON DELETE CASCADE,
			FOREIGN KEY (collection_leg_id) REFERENCES collection_legs(id) ON DELETE CASCADE,
			CHECK (status NOT IN ('refused', 'absent', 'returned') OR failure_reason IS NOT NULL)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_routes_active ON intermunicipal_routes(active)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_route ON driver_route_profiles(route_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_status ON trips(status)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_service_date ON trips(service_date)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_requests_company ON delivery_requests(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_requests_trip ON delivery_requests(trip_id)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_requests_status_created ON delivery_requests(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_collection_legs_trip ON collection_legs(trip_id, sequence)`,
		`CREATE INDEX IF NOT EXISTS idx_dropoff_legs_trip ON dropoff_legs(trip_id, sequence)`,

		`INSERT INTO settings (key, value) VALUES ('auto_cancel_timeout_minutes', '30')
			ON CONFLICT (key) DO NOTHING`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
