package services

import (
	"fmt"
	"strings"

	"fretus-backend/internal/models"
)

var collectionNext = map[models.CollectionStatus][]models.CollectionStatus{
	models.CollectionPending: {models.CollectionEnRoute},
	models.CollectionEnRoute: {models.CollectionArrived},
	models.CollectionArrived: {models.CollectionCollected, models.CollectionFailed},
}

var dropoffNext = map[models.DropoffStatus][]models.DropoffStatus{
	models.DropoffPending: {models.DropoffEnRoute},
	models.DropoffEnRoute: {models.DropoffArrived},
	models.DropoffArrived: {
		models.DropoffDelivered,
		models.DropoffRefused,
		models.DropoffAbsent,
		models.DropoffReturned,
	},
}

// ValidateCollectionTransition checks that next is exactly one step forward from current.
func ValidateCollectionTransition(current, next models.CollectionStatus, meta models.LegMetadata) error {
	if !containsStatus(collectionNext[current], next) {
		return fmt.Errorf("%w: collection %s -> %s", models.ErrInvalidTransition, current, next)
	}
	if next == models.CollectionFailed && strings.TrimSpace(meta.Reason) == "" {
		return models.ErrReasonRequired
	}
	return nil
}

// ValidateDropoffTransition checks that next is exactly one step forward from current.
func ValidateDropoffTransition(current, next models.DropoffStatus, meta models.LegMetadata) error {
	if !containsStatus(dropoffNext[current], next) {
		return fmt.Errorf("%w: dropoff %s -> %s", models.ErrInvalidTransition, current, next)
	}
	if IsDropoffFailure(next) && strings.TrimSpace(meta.Reason) == "" {
		return models.ErrReasonRequired
	}
	if meta.Rating != nil && (*meta.Rating < 1 || *meta.Rating > 5) {
		return models.ErrInvalidRating
	}
	return nil
}

// IsDropoffFailure reports whether status is one of the alternate dropoff terminals.
func IsDropoffFailure(status models.DropoffStatus) bool {
	return status == models.DropoffRefused || status == models.DropoffAbsent || status == models.DropoffReturned
}

// ApplyCollection moves the leg to next and stamps the transition time.
func ApplyCollection(leg *models.CollectionLeg, next models.CollectionStatus, meta models.LegMetadata, now int64) {
	leg.Status = next
	leg.UpdatedAt = now
	switch next {
	case models.CollectionEnRoute:
		leg.EnRouteAt = &now
	case models.CollectionArrived:
		leg.ArrivedAt = &now
	case models.CollectionCollected, models.CollectionFailed:
		leg.FinishedAt = &now
	}
	if next == models.CollectionFailed {
		reason := strings.TrimSpace(meta.Reason)
		leg.FailureReason = &reason
	}
	if meta.PhotoURL != nil {
		leg.PhotoURL = meta.PhotoURL
	}
	if meta.Notes != nil {
		leg.Notes = meta.Notes
	}
}

// ApplyDropoff moves the leg to next and records confirmation fields.
func ApplyDropoff(leg *models.DropoffLeg, next models.DropoffStatus, meta models.LegMetadata, now int64) {
	leg.Status = next
	leg.UpdatedAt = now
	switch next {
	case models.DropoffEnRoute:
		leg.EnRouteAt = &now
	case models.DropoffArrived:
		leg.ArrivedAt = &now
	default:
		leg.FinishedAt = &now
	}
	if IsDropoffFailure(next) {
		reason := strings.TrimSpace(meta.Reason)
		leg.FailureReason = &reason
	}
	if meta.PhotoURL != nil {
		leg.PhotoURL = meta.PhotoURL
	}
	if meta.SignatureURL != nil {
		leg.SignatureURL = meta.SignatureURL
	}
	if meta.ReceiverName != nil {
		leg.ReceiverName = meta.ReceiverName
	}
	if meta.ReceiverDocument != nil {
		leg.ReceiverDocument = meta.ReceiverDocument
	}
	if meta.Rating != nil {
		leg.Rating = meta.Rating
		leg.RatingComment = meta.RatingComment
	}
	if meta.Notes != nil {
		leg.Notes = meta.Notes
	}
}

func containsStatus[S comparable](allowed []S, s S) bool {
	for _, a := range allowed {
		if a == s {
			return true
		}
	}
	return false
}
