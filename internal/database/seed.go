package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SeedUsers creates one account per role on an empty users table.
func SeedUsers(db *sqlx.DB, logger *zap.Logger) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		logger.Info("✓ users already seeded, skipping")
		return nil
	}

	logger.Info("🌱 seeding test users")

	seed := []struct {
		email, password, name, role string
	}{
		{"admin@fretus.com.br", "admin123", "Admin Fretus", "admin"},
		{"motorista@fretus.com.br", "driver123", "João Motorista", "driver"},
		{"empresa@fretus.com.br", "company123", "Empresa Exemplo Ltda", "company"},
	}

	now := time.Now().Unix()
	for _, s := range seed {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := map[string]interface{}{
			"id":         uuid.New().String(),
			"email":      s.email,
			"password":   string(hash),
			"name":       s.name,
			"role":       s.role,
			"created_at": now,
		}
		query := `
			INSERT INTO users (id, email, password, name, role, created_at, updated_at)
			VALUES (:id, :email, :password, :name, :role, :created_at, :created_at)
		`
		if _, err := db.NamedExec(query, user); err != nil {
			return err
		}
		logger.Info("  ✓ created user", zap.String("email", s.email), zap.String("role", s.role))
	}

	return nil
}

// SeedCatalog creates demo routes and a default price tier when none exist.
func SeedCatalog(db *sqlx.DB, logger *zap.Logger) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM intermunicipal_routes"); err != nil {
		return err
	}
	if count > 0 {
		logger.Info("✓ routes already seeded, skipping")
		return nil
	}

	logger.Info("🌱 seeding intermunicipal routes and price tiers")

	now := time.Now().Unix()
	routes := []map[string]interface{}{
		{"name": "Campinas → São Paulo", "origin_city": "Campinas", "destination_city": "São Paulo", "distance_km": 95.0, "avg_duration_minutes": 90},
		{"name": "São Paulo → Santos", "origin_city": "São Paulo", "destination_city": "Santos", "distance_km": 72.0, "avg_duration_minutes": 75},
		{"name": "Sorocaba → Jundiaí", "origin_city": "Sorocaba", "destination_city": "Jundiaí", "distance_km": 80.0, "avg_duration_minutes": 80},
	}
	for _, r := range routes {
		r["id"] = uuid.New().String()
		r["created_at"] = now
		if _, err := db.NamedExec(`
			INSERT INTO intermunicipal_routes (
				id, name, origin_city, destination_city, distance_km, avg_duration_minutes, active, created_at, updated_at
			) VALUES (
				:id, :name, :origin_city, :destination_city, :distance_km, :avg_duration_minutes, TRUE, :created_at, :created_at
			)`, r); err != nil {
			return err
		}
		logger.Info("  ✓ created route", zap.Any("name", r["name"]))
	}

	if _, err := db.Exec(`
		INSERT INTO price_tiers (id, name, base_fare, per_km_rate, stop_fee, active, created_at, updated_at)
		VALUES ($1, 'Padrão', 25.00, 1.20, 5.00, TRUE, $2, $2)
		ON CONFLICT (name) DO NOTHING`,
		uuid.New().String(), now,
	); err != nil {
		return err
	}

	return nil
}
