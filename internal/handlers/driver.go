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

// ListAvailableDeliveries shows open requests on routes the driver runs.
func ListAvailableDeliveries(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)
		deliveries, err := database.ListAvailableDeliveries(r.Context(), db, user.UserID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, deliveries)
	}
}

// AcceptDelivery binds a request to the driver's trip for today.
func AcceptDelivery(engine Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)
		bound, err := engine.Accept(r.Context(), chi.URLParam(r, "id"), user.UserID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, bound)
	}
}

// ReleaseDelivery hands a request back to the pool before its collection starts.
func ReleaseDelivery(engine Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)
		if err := engine.Release(r.Context(), chi.URLParam(r, "id"), user.UserID); err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, map[string]string{
			"id":     chi.URLParam(r, "id"),
			"status": string(models.DeliveryStatusAwaitingDriver),
		})
	}
}

type AdvanceLegRequest struct {
	Status           string  `json:"status" validate:"required"`
	Reason           string  `json:"reason"`
	PhotoURL         *string `json:"photo_url" validate:"omitempty,url"`
	SignatureURL     *string `json:"signature_url" validate:"omitempty,url"`
	ReceiverName     *string `json:"receiver_name"`
	ReceiverDocument *string `json:"receiver_document"`
	Rating           *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	RatingComment    *string `json:"rating_comment"`
	Notes            *string `json:"notes"`
}

func (a AdvanceLegRequest) metadata() models.LegMetadata {
	return models.LegMetadata{
		Reason:           a.Reason,
		PhotoURL:         a.PhotoURL,
		SignatureURL:     a.SignatureURL,
		ReceiverName:     a.ReceiverName,
		ReceiverDocument: a.ReceiverDocument,
		Rating:           a.Rating,
		RatingComment:    a.RatingComment,
		Notes:            a.Notes,
	}
}

// AdvanceCollection moves a pickup leg forward.
func AdvanceCollection(engine Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)

		var req AdvanceLegRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		result, err := engine.AdvanceCollection(r.Context(), chi.URLParam(r, "id"), user.UserID,
			models.CollectionStatus(req.Status), req.metadata())
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, result)
	}
}

// AdvanceDropoff moves a delivery leg forward.
func AdvanceDropoff(engine Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)

		var req AdvanceLegRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		result, err := engine.AdvanceDropoff(r.Context(), chi.URLParam(r, "id"), user.UserID,
			models.DropoffStatus(req.Status), req.metadata())
		if err != nil {
			respondError(w, logger, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, result)
	}
}
