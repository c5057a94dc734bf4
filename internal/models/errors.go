package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("resource not found")
	ErrConflict  = errors.New("resource conflict")
	ErrForbidden = errors.New("forbidden")
)

// Engine errors. All of them leave persisted state untouched.
var (
	ErrCapacityExceeded         = errors.New("capacity exceeded")
	ErrTripFull                 = fmt.Errorf("trip full: %w", ErrCapacityExceeded)
	ErrAlreadyBound             = errors.New("delivery request already bound to a trip")
	ErrNotBound                 = errors.New("delivery request is not bound to a trip")
	ErrAlreadyInProgress        = errors.New("collection already in progress")
	ErrInvalidTransition        = errors.New("invalid leg status transition")
	ErrRouteInactive            = errors.New("route is inactive")
	ErrCancellationWindowClosed = errors.New("cancellation window closed, contact support")
	ErrReasonRequired           = errors.New("a reason is required for this status")
	ErrNoRouteProfile           = errors.New("driver has no active profile for this route")
	ErrRouteNotScheduled        = errors.New("driver does not run this route today")
	ErrTripClosed               = errors.New("trip is no longer active")
	ErrRequestClosed            = errors.New("delivery request is no longer open")
	ErrInvalidRating            = errors.New("rating must be between 1 and 5")
	ErrInvalidLoad              = errors.New("package count and weight must be positive")
)
