package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"fretus-backend/internal/database"
	"fretus-backend/internal/models"
	"fretus-backend/internal/services"
	"fretus-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type RouteRequest struct {
	Name               string  `json:"name" validate:"required"`
	OriginCity         string  `json:"origin_city" validate:"required"`
	DestinationCity    string  `json:"destination_city" validate:"required,nefield=OriginCity"`
	DistanceKm         float64 `json:"distance_km" validate:"required,gt=0"`
	AvgDurationMinutes int     `json:"avg_duration_minutes" validate:"required,gt=0"`
	Active             *bool   `json:"active"`
}

// ListActiveRoutes is the company-facing route catalog.
func ListActiveRoutes(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return listRoutes(db, logger, true)
}

// ListRoutes returns every route, inactive ones included.
func ListRoutes(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return listRoutes(db, logger, false)
}

func listRoutes(db *sqlx.DB, logger *zap.Logger, activeOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routes, err := database.ListRoutes(r.Context(), db, activeOnly)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, routes)
	}
}

func CreateRoute(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RouteRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		now := time.Now().Unix()
		route := &models.Route{
			ID:                 uuid.New().String(),
			Name:               req.Name,
			OriginCity:         req.OriginCity,
			DestinationCity:    req.DestinationCity,
			DistanceKm:         req.DistanceKm,
			AvgDurationMinutes: req.AvgDurationMinutes,
			Active:             req.Active == nil || *req.Active,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := database.CreateRoute(r.Context(), db, route); err != nil {
			respondError(w, logger, err)
			return
		}

		logger.Info("🛣️ route created", zap.String("route_id", route.ID), zap.String("name", route.Name))
		utils.RespondSuccess(w, http.StatusCreated, route)
	}
}

// UpdateRoute replaces a route's attributes. Deactivating a route stops new
// requests and acceptances; trips already bound keep running.
func UpdateRoute(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		route, err := database.GetRoute(r.Context(), db, chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, logger, err)
			return
		}

		var req RouteRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		route.Name = req.Name
		route.OriginCity = req.OriginCity
		route.DestinationCity = req.DestinationCity
		route.DistanceKm = req.DistanceKm
		route.AvgDurationMinutes = req.AvgDurationMinutes
		if req.Active != nil {
			route.Active = *req.Active
		}
		route.UpdatedAt = time.Now().Unix()

		if err := database.UpdateRoute(r.Context(), db, route); err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, route)
	}
}

func DeleteRoute(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := database.DeleteRoute(r.Context(), db, id); err != nil {
			respondError(w, logger, err)
			return
		}
		logger.Warn("🗑️ route deleted", zap.String("route_id", id))
		utils.RespondSuccess(w, http.StatusOK, map[string]string{"id": id})
	}
}

type PriceTierRequest struct {
	Name      string  `json:"name" validate:"required"`
	BaseFare  float64 `json:"base_fare" validate:"gte=0"`
	PerKmRate float64 `json:"per_km_rate" validate:"gte=0"`
	StopFee   float64 `json:"stop_fee" validate:"gte=0"`
}

func ListPriceTiers(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tiers, err := database.ListPriceTiers(r.Context(), db)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, tiers)
	}
}

func CreatePriceTier(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PriceTierRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		now := time.Now().Unix()
		tier := &models.PriceTier{
			ID:        uuid.New().String(),
			Name:      req.Name,
			BaseFare:  req.BaseFare,
			PerKmRate: req.PerKmRate,
			StopFee:   req.StopFee,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := database.CreatePriceTier(r.Context(), db, tier); err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusCreated, tier)
	}
}

type AutoCancelSetting struct {
	TimeoutMinutes int `json:"timeout_minutes" validate:"required,gt=0,lte=10080"`
}

// GetAutoCancelSetting reports how long a request may wait for a driver.
func GetAutoCancelSetting(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		minutes := int(services.DefaultAutoCancelTimeout.Minutes())
		raw, err := database.GetSetting(r.Context(), db, models.SettingAutoCancelTimeout)
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			respondError(w, logger, err)
			return
		default:
			if v, convErr := strconv.Atoi(raw); convErr == nil && v > 0 {
				minutes = v
			}
		}
		utils.RespondSuccess(w, http.StatusOK, AutoCancelSetting{TimeoutMinutes: minutes})
	}
}

func UpdateAutoCancelSetting(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AutoCancelSetting
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		value := strconv.Itoa(req.TimeoutMinutes)
		if err := database.SetSetting(r.Context(), db, models.SettingAutoCancelTimeout, value, time.Now().Unix()); err != nil {
			respondError(w, logger, err)
			return
		}

		logger.Info("⚙️ auto-cancel timeout updated", zap.Int("minutes", req.TimeoutMinutes))
		utils.RespondSuccess(w, http.StatusOK, req)
	}
}
