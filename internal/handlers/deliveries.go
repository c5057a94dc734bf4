package handlers

import (
	"net/http"

	"fretus-backend/internal/database"
	"fretus-backend/internal/middleware"
	"fretus-backend/internal/models"
	"fretus-backend/internal/services"
	"fretus-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type CreateDeliveryRequest struct {
	RouteID        string        `json:"route_id" validate:"required,uuid"`
	PriceTierID    string        `json:"price_tier_id" validate:"required,uuid"`
	PickupAddress  string        `json:"pickup_address" validate:"required"`
	PickupLat      *float64      `json:"pickup_lat" validate:"omitempty,latitude"`
	PickupLng      *float64      `json:"pickup_lng" validate:"omitempty,longitude"`
	PickupContact  *string       `json:"pickup_contact"`
	DropoffAddress string        `json:"dropoff_address" validate:"required"`
	DropoffLat     *float64      `json:"dropoff_lat" validate:"omitempty,latitude"`
	DropoffLng     *float64      `json:"dropoff_lng" validate:"omitempty,longitude"`
	RecipientName  string        `json:"recipient_name" validate:"required"`
	RecipientPhone string        `json:"recipient_phone" validate:"required"`
	PackageCount   int           `json:"package_count" validate:"required,gt=0"`
	Weight         models.Weight `json:"weight_kg" validate:"required,gt=0"`
	Volume         models.Volume `json:"volume_m3" validate:"gte=0"`
	Description    *string       `json:"description"`
}

func (r CreateDeliveryRequest) input() services.DeliveryInput {
	return services.DeliveryInput{
		RouteID:        r.RouteID,
		PriceTierID:    r.PriceTierID,
		PickupAddress:  r.PickupAddress,
		PickupLat:      r.PickupLat,
		PickupLng:      r.PickupLng,
		PickupContact:  r.PickupContact,
		DropoffAddress: r.DropoffAddress,
		DropoffLat:     r.DropoffLat,
		DropoffLng:     r.DropoffLng,
		RecipientName:  r.RecipientName,
		RecipientPhone: r.RecipientPhone,
		PackageCount:   r.PackageCount,
		Weight:         r.Weight,
		Volume:         r.Volume,
		Description:    r.Description,
	}
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

// CreateDelivery stores a new request for the calling company.
func CreateDelivery(engine Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)

		var req CreateDeliveryRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		created, err := engine.CreateDelivery(r.Context(), user.UserID, req.input())
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusCreated, created)
	}
}

// ListCompanyDeliveries returns the calling company's requests, optionally filtered by ?status=.
func ListCompanyDeliveries(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)
		filter := models.DeliveryFilter{
			CompanyID: user.UserID,
			Status:    r.URL.Query().Get("status"),
			RouteID:   r.URL.Query().Get("route_id"),
			Limit:     queryInt(r, "limit", 0),
			Offset:    queryInt(r, "offset", 0),
		}
		deliveries, err := database.ListDeliveries(r.Context(), db, filter)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, deliveries)
	}
}

// GetCompanyDelivery returns one request owned by the calling company.
func GetCompanyDelivery(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)
		delivery, err := database.GetDelivery(r.Context(), db, chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		if delivery.CompanyID != user.UserID {
			respondError(w, logger, models.ErrForbidden)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, delivery)
	}
}

// CancelDelivery cancels a request while its collection has not started.
func CancelDelivery(engine Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)

		var req CancelRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		cancelled, err := engine.Cancel(r.Context(), chi.URLParam(r, "id"), user.UserID, req.Reason)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, cancelled)
	}
}

// QuoteDelivery prices ?route_id= with ?price_tier_id= without storing anything.
func QuoteDelivery(engine Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := r.URL.Query().Get("route_id")
		tierID := r.URL.Query().Get("price_tier_id")
		if routeID == "" || tierID == "" {
			utils.RespondErrorCode(w, http.StatusBadRequest, "validation_failed", "route_id and price_tier_id are required")
			return
		}
		fare, err := engine.Quote(r.Context(), routeID, tierID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, fare)
	}
}

// ListAllDeliveries is the admin view over every company's requests.
func ListAllDeliveries(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := models.DeliveryFilter{
			CompanyID: q.Get("company_id"),
			RouteID:   q.Get("route_id"),
			TripID:    q.Get("trip_id"),
			Status:    q.Get("status"),
			Limit:     queryInt(r, "limit", 0),
			Offset:    queryInt(r, "offset", 0),
		}
		deliveries, err := database.ListDeliveries(r.Context(), db, filter)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, deliveries)
	}
}
