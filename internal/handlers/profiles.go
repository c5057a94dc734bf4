package handlers

import (
	"net/http"
	"time"

	"fretus-backend/internal/database"
	"fretus-backend/internal/middleware"
	"fretus-backend/internal/models"
	"fretus-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// RouteProfileRequest declares when a driver runs a route and what fits in the vehicle.
// Days use 1 = Sunday through 7 = Saturday.
type RouteProfileRequest struct {
	RouteID                 string         `json:"route_id" validate:"required,uuid"`
	DaysOfWeek              []int64        `json:"days_of_week" validate:"required,min=1,max=7,unique,dive,min=1,max=7"`
	DepartureTime           string         `json:"departure_time" validate:"required,datetime=15:04"`
	ArrivalTime             *string        `json:"arrival_time" validate:"omitempty,datetime=15:04"`
	CapacityPackages        int            `json:"capacity_packages" validate:"required,gt=0"`
	CapacityWeight          models.Weight  `json:"capacity_weight_kg" validate:"required,gt=0"`
	CapacityVolume          *models.Volume `json:"capacity_volume_m3" validate:"omitempty,gt=0"`
	AcceptsMultiplePickups  *bool          `json:"accepts_multiple_pickups"`
	AcceptsMultipleDropoffs *bool          `json:"accepts_multiple_dropoffs"`
	PickupRadiusKm          *float64       `json:"pickup_radius_km" validate:"omitempty,gt=0"`
	Active                  *bool          `json:"active"`
}

func (req RouteProfileRequest) apply(p *models.DriverRouteProfile) {
	p.DaysOfWeek = pq.Int64Array(req.DaysOfWeek)
	p.DepartureTime = req.DepartureTime
	p.ArrivalTime = req.ArrivalTime
	p.CapacityPackages = req.CapacityPackages
	p.CapacityWeight = req.CapacityWeight
	p.CapacityVolume = req.CapacityVolume
	p.PickupRadiusKm = req.PickupRadiusKm
	if req.AcceptsMultiplePickups != nil {
		p.AcceptsMultiplePickups = *req.AcceptsMultiplePickups
	}
	if req.AcceptsMultipleDropoffs != nil {
		p.AcceptsMultipleDropoffs = *req.AcceptsMultipleDropoffs
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
}

func ListRouteProfiles(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)
		profiles, err := database.ListDriverProfiles(r.Context(), db, user.UserID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, profiles)
	}
}

// CreateRouteProfile registers the caller on a route. One profile per driver and route.
func CreateRouteProfile(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)

		var req RouteProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		if _, err := database.GetRoute(r.Context(), db, req.RouteID); err != nil {
			respondError(w, logger, err)
			return
		}

		now := time.Now().Unix()
		profile := &models.DriverRouteProfile{
			ID:                      uuid.New().String(),
			DriverID:                user.UserID,
			RouteID:                 req.RouteID,
			AcceptsMultiplePickups:  true,
			AcceptsMultipleDropoffs: true,
			Active:                  true,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		req.apply(profile)

		if err := database.CreateProfile(r.Context(), db, profile); err != nil {
			respondError(w, logger, err)
			return
		}

		logger.Info("🚚 route profile created",
			zap.String("driver_id", user.UserID),
			zap.String("route_id", profile.RouteID),
			zap.Int64s("days_of_week", profile.DaysOfWeek))
		utils.RespondSuccess(w, http.StatusCreated, profile)
	}
}

// UpdateRouteProfile changes schedule or capacity. Trips already opened for a
// day keep the capacity they were created with.
func UpdateRouteProfile(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)

		profile, err := database.GetProfile(r.Context(), db, chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		if profile.DriverID != user.UserID {
			respondError(w, logger, models.ErrForbidden)
			return
		}

		var req RouteProfileRequest
		req.RouteID = profile.RouteID
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}
		if req.RouteID != profile.RouteID {
			utils.RespondErrorCode(w, http.StatusBadRequest, "validation_failed", "route_id cannot be changed")
			return
		}

		req.apply(profile)
		profile.UpdatedAt = time.Now().Unix()

		if err := database.UpdateProfile(r.Context(), db, profile); err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, profile)
	}
}

func DeleteRouteProfile(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)
		id := chi.URLParam(r, "id")
		if err := database.DeleteProfile(r.Context(), db, id, user.UserID); err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, map[string]string{"id": id})
	}
}
