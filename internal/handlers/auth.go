package handlers

import (
	"errors"
	"net/http"
	"time"

	"fretus-backend/internal/database"
	"fretus-backend/internal/models"
	"fretus-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 7 * 24 * time.Hour

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string               `json:"token"`
	User  *models.UserResponse `json:"user"`
}

func Login(db *sqlx.DB, jwtSecret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}

		logger.Info("🔐 login attempt", zap.String("email", req.Email))

		user, err := database.GetUserByEmail(r.Context(), db, req.Email)
		if errors.Is(err, models.ErrNotFound) {
			logger.Info("❌ user not found", zap.String("email", req.Email))
			utils.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		if err != nil {
			respondError(w, logger, err)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			logger.Info("❌ invalid password", zap.String("email", req.Email))
			utils.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		tokenString, err := IssueToken(user, jwtSecret, time.Now())
		if err != nil {
			logger.Error("❌ failed to create token", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		userResponse := user.ToUserResponse()
		logger.Info("✅ login successful", zap.String("email", user.Email), zap.String("role", user.Role))

		utils.RespondSuccess(w, http.StatusOK, LoginResponse{
			Token: tokenString,
			User:  &userResponse,
		})
	}
}

// IssueToken signs an HS256 token carrying the user's id, email and role.
func IssueToken(user *models.User, secret string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(tokenTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}
