package main

import (
	"fmt"

	"fretus-backend/internal/config"
	"fretus-backend/internal/database"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Applies the schema, seeds the default accounts and (with SEED_DEMO_DATA)
// the demo route catalog, then prints a table summary.
func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Migration completed successfully!")

	if err := database.SeedUsers(db, logger); err != nil {
		logger.Fatal("Failed to seed users", zap.Error(err))
	}
	if cfg.SeedDemoData {
		if err := database.SeedCatalog(db, logger); err != nil {
			logger.Fatal("Failed to seed catalog", zap.Error(err))
		}
	}

	var result struct {
		Users    int `db:"users"`
		Routes   int `db:"routes"`
		Tiers    int `db:"tiers"`
		Profiles int `db:"profiles"`
		Trips    int `db:"trips"`
		Requests int `db:"requests"`
	}
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM intermunicipal_routes) AS routes,
			(SELECT COUNT(*) FROM price_tiers) AS tiers,
			(SELECT COUNT(*) FROM driver_route_profiles) AS profiles,
			(SELECT COUNT(*) FROM trips) AS trips,
			(SELECT COUNT(*) FROM delivery_requests) AS requests
	`
	if err := db.Get(&result, query); err != nil {
		logger.Fatal("Failed to query summary", zap.Error(err))
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Users:              %d\n", result.Users)
	fmt.Printf("Routes:             %d\n", result.Routes)
	fmt.Printf("Price tiers:        %d\n", result.Tiers)
	fmt.Printf("Route profiles:     %d\n", result.Profiles)
	fmt.Printf("Trips:              %d\n", result.Trips)
	fmt.Printf("Delivery requests:  %d\n", result.Requests)
	fmt.Println("============================================================")
}
