package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fretus-backend/internal/config"
	"fretus-backend/internal/database"
	"fretus-backend/internal/events"
	"fretus-backend/internal/handlers"
	"fretus-backend/internal/middleware"
	"fretus-backend/internal/models"
	"fretus-backend/internal/services"
	"fretus-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("❌ FATAL ERROR: invalid configuration", zap.Error(err))
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	logger.Info("═══════════════════════════════════════════════════════════════════")
	logger.Info("🚀 FRETUS BACKEND SERVER STARTING", zap.String("env", cfg.Env), zap.String("timezone", cfg.Timezone))
	logger.Info("═══════════════════════════════════════════════════════════════════")
	if envErr != nil {
		logger.Warn("⚠️  .env file not found, using environment variables from system")
	}

	logger.Info("🔌 Connecting to database...")
	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("❌ FATAL ERROR: database connection failed", zap.Error(err))
	}
	defer db.Close()

	logger.Info("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		logger.Fatal("❌ FATAL ERROR: database migrations failed", zap.Error(err))
	}
	logger.Info("✅ Database migrations completed")

	if err := database.SeedUsers(db, logger); err != nil {
		logger.Fatal("❌ FATAL ERROR: user seeding failed", zap.Error(err))
	}
	if cfg.SeedDemoData {
		if err := database.SeedCatalog(db, logger); err != nil {
			logger.Fatal("❌ FATAL ERROR: catalog seeding failed", zap.Error(err))
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	rdb := connectRedis(ctx, cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("✅ WebSocket hub started")

	notifiers := services.MultiNotifier{wsHub}
	if fcm := connectFCM(cfg, db, logger); fcm != nil {
		notifiers = append(notifiers, fcm)
	}
	if cfg.AMQPURL != "" {
		publisher, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, 5, logger)
		if err != nil {
			logger.Warn("⚠️  RabbitMQ unavailable (event publishing disabled)", zap.Error(err))
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, publisher)
		}
	}

	engine := services.NewEngine(database.NewStore(db), notifiers, logger, cfg.Location())

	sweeper := services.NewAutoCancelSweeper(engine, rdb, cfg.AutoCancelInterval, logger)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, db, engine, wsHub, rdb, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("❌ FATAL ERROR: server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ forced shutdown", zap.Error(err))
	}

	// The hub and sweeper stop only after in-flight requests have finished.
	stop()
	logger.Info("✅ Server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsLocal() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

func connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Warn("⚠️  REDIS_URL not set (rate limiting disabled, sweeper runs unlocked)")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("⚠️  invalid REDIS_URL (rate limiting disabled)", zap.Error(err))
		return nil
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("⚠️  Redis unreachable (rate limiting disabled)", zap.Error(err))
		rdb.Close()
		return nil
	}
	logger.Info("✅ Redis connected")
	return rdb
}

// connectFCM prefers base64 credentials (cloud deployments) over a credentials file.
func connectFCM(cfg *config.Config, db *sqlx.DB, logger *zap.Logger) *services.FCMService {
	tokens := database.NewTokenStore(db)
	if cfg.FirebaseCredsBase64 != "" {
		fcm, err := services.NewFCMServiceFromBase64(cfg.FirebaseCredsBase64, tokens, logger)
		if err != nil {
			logger.Warn("⚠️  Failed to initialize FCM from base64 (push notifications disabled)", zap.Error(err))
			return nil
		}
		logger.Info("✅ Firebase Cloud Messaging initialized from base64 credentials")
		return fcm
	}

	if _, err := os.Stat(cfg.FirebaseCredsFile); err != nil {
		logger.Warn("⚠️  Firebase credentials not found (push notifications disabled)", zap.String("file", cfg.FirebaseCredsFile))
		return nil
	}
	fcm, err := services.NewFCMService(cfg.FirebaseCredsFile, tokens, logger)
	if err != nil {
		logger.Warn("⚠️  Failed to initialize FCM from file (push notifications disabled)", zap.Error(err))
		return nil
	}
	logger.Info("✅ Firebase Cloud Messaging initialized from file")
	return fcm
}

func newRouter(cfg *config.Config, db *sqlx.DB, engine *services.Engine, wsHub *websocket.Hub, rdb *redis.Client, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, cfg.JWTSecret))

	// Mounted after Auth so authenticated traffic is counted per user; login is counted per IP.
	limit := func(next http.Handler) http.Handler { return next }
	if rdb != nil {
		limit = middleware.RateLimit(rdb, cfg.RateLimitPerSecond, logger)
	}

	r.Route("/api", func(r chi.Router) {
		r.With(limit).Post("/auth/login", handlers.Login(db, cfg.JWTSecret, logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, logger))
			r.Use(limit)

			r.Route("/company", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleCompany))
				r.Post("/deliveries", handlers.CreateDelivery(engine, logger))
				r.Get("/deliveries", handlers.ListCompanyDeliveries(db, logger))
				r.Get("/deliveries/{id}", handlers.GetCompanyDelivery(db, logger))
				r.Post("/deliveries/{id}/cancel", handlers.CancelDelivery(engine, logger))
				r.Get("/routes", handlers.ListActiveRoutes(db, logger))
				r.Get("/quote", handlers.QuoteDelivery(engine, logger))
				r.Post("/fcm-token", handlers.RegisterFCMToken(db, logger))
			})

			r.Route("/driver", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleDriver))
				r.Get("/deliveries/available", handlers.ListAvailableDeliveries(db, logger))
				r.Post("/deliveries/{id}/accept", handlers.AcceptDelivery(engine, logger))
				r.Post("/deliveries/{id}/release", handlers.ReleaseDelivery(engine, logger))

				r.Get("/trips", handlers.ListDriverTrips(db, logger))
				r.Get("/trips/{id}", handlers.GetDriverTrip(db, logger))
				r.Post("/trips/{id}/cancel", handlers.CancelDriverTrip(engine, logger))

				r.Post("/collections/{id}/advance", handlers.AdvanceCollection(engine, logger))
				r.Post("/dropoffs/{id}/advance", handlers.AdvanceDropoff(engine, logger))

				r.Get("/routes", handlers.ListActiveRoutes(db, logger))
				r.Get("/route-profiles", handlers.ListRouteProfiles(db, logger))
				r.Post("/route-profiles", handlers.CreateRouteProfile(db, logger))
				r.Patch("/route-profiles/{id}", handlers.UpdateRouteProfile(db, logger))
				r.Delete("/route-profiles/{id}", handlers.DeleteRouteProfile(db, logger))

				r.Post("/fcm-token", handlers.RegisterFCMToken(db, logger))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/trips", handlers.ListTrips(db, logger))
				r.Get("/trips/{id}", handlers.GetTrip(db, logger))
				r.Post("/trips/{id}/cancel", handlers.CancelTrip(engine, logger))
				r.Get("/deliveries", handlers.ListAllDeliveries(db, logger))

				r.Get("/routes", handlers.ListRoutes(db, logger))
				r.Post("/routes", handlers.CreateRoute(db, logger))
				r.Patch("/routes/{id}", handlers.UpdateRoute(db, logger))
				r.Delete("/routes/{id}", handlers.DeleteRoute(db, logger))

				r.Get("/price-tiers", handlers.ListPriceTiers(db, logger))
				r.Post("/price-tiers", handlers.CreatePriceTier(db, logger))

				r.Get("/settings/auto-cancel", handlers.GetAutoCancelSetting(db, logger))
				r.Put("/settings/auto-cancel", handlers.UpdateAutoCancelSetting(db, logger))

				r.Get("/users", handlers.ListUsers(db, logger))
				r.Post("/users", handlers.CreateUser(db, logger))
			})
		})
	})

	return r
}
