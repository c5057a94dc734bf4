package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"fretus-backend/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
	tokens TokenSource
	logger *zap.Logger
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string, tokens TokenSource, logger *zap.Logger) (*FCMService, error) {
	ctx := context.Background()

	// Initialize Firebase app
	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	// Get messaging client
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client, tokens: tokens, logger: logger}, nil
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments (Railway, Fly.io, Render) where you can't upload files easily
func NewFCMServiceFromBase64(credentialsBase64 string, tokens TokenSource, logger *zap.Logger) (*FCMService, error) {
	ctx := context.Background()

	// Decode base64 credentials
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}

	// Initialize Firebase app with JSON credentials
	opt := option.WithCredentialsJSON(credentialsJSON)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	// Get messaging client
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client, tokens: tokens, logger: logger}, nil
}

// TokenSource looks up the push tokens registered by a user.
type TokenSource interface {
	GetUserFCMTokens(ctx context.Context, userID string) ([]string, error)
}

// SendDeliveryNotification sends a single push about a delivery request or trip
func (s *FCMService) SendDeliveryNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	s.logger.Debug("✅ FCM notification sent", zap.String("message_id", response))
	return nil
}

// SendMulticast sends the same message to multiple tokens
func (s *FCMService) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	s.logger.Info("✅ multicast sent",
		zap.Int("success", response.SuccessCount),
		zap.Int("failures", response.FailureCount),
	)
	return nil
}

// Notify pushes the event to the company and driver it concerns.
func (s *FCMService) Notify(ctx context.Context, event models.Event) {
	title, body, ok := pushText(event)
	if !ok {
		return
	}

	data := map[string]string{
		"type":       string(event.Type),
		"trip_id":    event.TripID,
		"request_id": event.RequestID,
		"status":     event.Status,
	}

	for _, userID := range pushRecipients(event) {
		tokens, err := s.tokens.GetUserFCMTokens(ctx, userID)
		if err != nil {
			s.logger.Warn("⚠️ failed to load FCM tokens", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if len(tokens) == 0 {
			continue
		}
		if err := s.SendMulticast(ctx, tokens, title, body, data); err != nil {
			s.logger.Warn("⚠️ push notification failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

func pushRecipients(event models.Event) []string {
	switch event.Type {
	case models.EventDeliveryAccepted, models.EventLegAdvanced:
		return nonEmpty(event.CompanyID)
	case models.EventDeliveryReleased, models.EventDeliveryCancelled:
		return nonEmpty(event.CompanyID, event.DriverID)
	case models.EventTripStatusChanged:
		return nonEmpty(event.DriverID)
	}
	return nil
}

func pushText(event models.Event) (string, string, bool) {
	switch event.Type {
	case models.EventDeliveryAccepted:
		return "Delivery accepted", "A driver accepted your delivery request.", true
	case models.EventDeliveryReleased:
		return "Delivery released", "Your delivery request is waiting for a driver again.", true
	case models.EventDeliveryCancelled:
		return "Delivery cancelled", "A delivery request was cancelled.", true
	case models.EventLegAdvanced:
		return "Delivery update", fmt.Sprintf("Your delivery is now %s.", event.Status), true
	case models.EventTripStatusChanged:
		return "Trip update", fmt.Sprintf("Your trip status has been updated to: %s", event.Status), true
	}
	return "", "", false
}

func nonEmpty(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
