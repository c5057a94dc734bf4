package database

import (
	"context"
	"fmt"

	"fretus-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

func GetUserByEmail(ctx context.Context, db Queryer, email string) (*models.User, error) {
	var u models.User
	if err := db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, email); err != nil {
		return nil, notFound(err, "user "+email)
	}
	return &u, nil
}

func GetUser(ctx context.Context, db Queryer, id string) (*models.User, error) {
	var u models.User
	if err := db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "user "+id)
	}
	return &u, nil
}

// CreateUser returns models.ErrConflict when the email is taken.
func CreateUser(ctx context.Context, db Queryer, u *models.User) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, password, name, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		u.ID, u.Email, u.Password, u.Name, u.Phone, u.Role, u.CreatedAt,
	)
	if err != nil {
		return uniqueViolation(fmt.Errorf("failed to create user: %w", err), "user email")
	}
	return nil
}

func ListUsersByRole(ctx context.Context, db Queryer, role string) ([]models.User, error) {
	users := []models.User{}
	if err := db.SelectContext(ctx, &users, `SELECT * FROM users WHERE role = $1 ORDER BY name`, role); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpsertFCMToken registers a device token, moving it to userID if another user held it.
func UpsertFCMToken(ctx context.Context, db Queryer, userID, token, deviceType string, now int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, device_type = EXCLUDED.device_type, updated_at = EXCLUDED.updated_at`,
		userID, token, deviceType, now,
	)
	if err != nil {
		return fmt.Errorf("failed to register FCM token: %w", err)
	}
	return nil
}

// TokenStore serves push tokens to the FCM notifier.
type TokenStore struct {
	db *sqlx.DB
}

func NewTokenStore(db *sqlx.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) GetUserFCMTokens(ctx context.Context, userID string) ([]string, error) {
	tokens := []string{}
	if err := s.db.SelectContext(ctx, &tokens, `SELECT token FROM fcm_tokens WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("failed to load FCM tokens: %w", err)
	}
	return tokens, nil
}
