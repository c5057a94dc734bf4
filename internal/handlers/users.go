package handlers

import (
	"net/http"
	"strings"
	"time"

	"fretus-backend/internal/database"
	"fretus-backend/internal/middleware"
	"fretus-backend/internal/models"
	"fretus-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Name     string  `json:"name" validate:"required"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role" validate:"required,oneof=admin driver company"`
}

// CreateUser lets an admin register a company, driver or another admin.
func CreateUser(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		user := &models.User{
			ID:        uuid.New().String(),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Password:  string(hash),
			Name:      req.Name,
			Phone:     req.Phone,
			Role:      req.Role,
			CreatedAt: time.Now().Unix(),
		}
		user.UpdatedAt = user.CreatedAt

		if err := database.CreateUser(r.Context(), db, user); err != nil {
			respondError(w, logger, err)
			return
		}

		logger.Info("✅ user created", zap.String("user_id", user.ID), zap.String("role", user.Role))
		utils.RespondSuccess(w, http.StatusCreated, user.ToUserResponse())
	}
}

// ListUsers returns users of the role given in ?role=.
func ListUsers(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		if role == "" {
			role = models.RoleDriver
		}
		users, err := database.ListUsersByRole(r.Context(), db, role)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		resp := make([]models.UserResponse, 0, len(users))
		for i := range users {
			resp = append(resp, users[i].ToUserResponse())
		}
		utils.RespondSuccess(w, http.StatusOK, resp)
	}
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token" validate:"required"`
	DeviceType string `json:"device_type" validate:"required,oneof=ios android"`
}

// RegisterFCMToken stores the caller's push token.
func RegisterFCMToken(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)

		var req RegisterFCMTokenRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		if err := database.UpsertFCMToken(r.Context(), db, user.UserID, req.Token, req.DeviceType, time.Now().Unix()); err != nil {
			respondError(w, logger, err)
			return
		}

		logger.Info("📱 FCM token registered", zap.String("user_id", user.UserID), zap.String("device_type", req.DeviceType))
		utils.RespondSuccess(w, http.StatusOK, map[string]string{"message": "token registered"})
	}
}
