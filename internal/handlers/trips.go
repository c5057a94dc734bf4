package handlers

import (
	"net/http"

	"fretus-backend/internal/database"
	"fretus-backend/internal/middleware"
	"fretus-backend/internal/models"
	"fretus-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func tripFilter(r *http.Request) models.TripFilter {
	q := r.URL.Query()
	return models.TripFilter{
		DriverID: q.Get("driver_id"),
		RouteID:  q.Get("route_id"),
		Status:   q.Get("status"),
		Date:     q.Get("date"),
		Limit:    queryInt(r, "limit", 0),
		Offset:   queryInt(r, "offset", 0),
	}
}

// ListDriverTrips returns the calling driver's trips with occupancy.
func ListDriverTrips(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)
		filter := tripFilter(r)
		filter.DriverID = user.UserID

		trips, err := database.ListTrips(r.Context(), db, filter)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, trips)
	}
}

// GetDriverTrip returns a trip with its requests and legs if the caller drives it.
func GetDriverTrip(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)
		detail, err := database.GetTripDetail(r.Context(), db, chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		if detail.DriverID != user.UserID {
			respondError(w, logger, models.ErrForbidden)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, detail)
	}
}

// CancelDriverTrip cancels one of the caller's trips.
func CancelDriverTrip(engine Engine, logger *zap.Logger) http.HandlerFunc {
	return cancelTrip(engine, logger, true)
}

// ListTrips is the admin trip board: every trip with occupancy percentages.
func ListTrips(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trips, err := database.ListTrips(r.Context(), db, tripFilter(r))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, trips)
	}
}

func GetTrip(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := database.GetTripDetail(r.Context(), db, chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, detail)
	}
}

// CancelTrip cancels any trip on behalf of an admin.
func CancelTrip(engine Engine, logger *zap.Logger) http.HandlerFunc {
	return cancelTrip(engine, logger, false)
}

func cancelTrip(engine Engine, logger *zap.Logger, ownOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		driverID := ""
		if ownOnly {
			user, _ := middleware.GetUserFromContext(r)
			driverID = user.UserID
		}

		trip, err := engine.CancelTrip(r.Context(), chi.URLParam(r, "id"), driverID, req.Reason)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, trip)
	}
}
