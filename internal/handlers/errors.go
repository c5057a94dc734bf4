package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fretus-backend/internal/models"
	"fretus-backend/pkg/utils"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: ErrTripFull wraps ErrCapacityExceeded.
var errorMappings = []errorMapping{
	{models.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrForbidden, http.StatusForbidden, "forbidden"},
	{models.ErrTripFull, http.StatusConflict, "trip_full"},
	{models.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{models.ErrAlreadyBound, http.StatusConflict, "already_bound"},
	{models.ErrNotBound, http.StatusConflict, "not_bound"},
	{models.ErrAlreadyInProgress, http.StatusConflict, "already_in_progress"},
	{models.ErrCancellationWindowClosed, http.StatusConflict, "cancellation_window_closed"},
	{models.ErrTripClosed, http.StatusConflict, "trip_closed"},
	{models.ErrRequestClosed, http.StatusConflict, "request_closed"},
	{models.ErrConflict, http.StatusConflict, "conflict"},
	{models.ErrRouteInactive, http.StatusUnprocessableEntity, "route_inactive"},
	{models.ErrNoRouteProfile, http.StatusUnprocessableEntity, "no_route_profile"},
	{models.ErrRouteNotScheduled, http.StatusUnprocessableEntity, "route_not_scheduled"},
	{models.ErrInvalidTransition, http.StatusUnprocessableEntity, "invalid_transition"},
	{models.ErrReasonRequired, http.StatusUnprocessableEntity, "reason_required"},
	{models.ErrInvalidRating, http.StatusUnprocessableEntity, "invalid_rating"},
	{models.ErrInvalidLoad, http.StatusUnprocessableEntity, "invalid_load"},
}

// StatusFor maps an error to its HTTP status and stable error code.
func StatusFor(err error) (int, string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, "validation_failed"
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes the mapped error. Unexpected errors are logged and hidden.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("❌ request failed", zap.Error(err))
		utils.RespondErrorCode(w, status, code, "Internal server error")
		return
	}
	utils.RespondErrorCode(w, status, code, errorMessage(err))
}

func errorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return "invalid request: " + strings.Join(fields, "; ")
}

// decodeJSON decodes the body into dst and validates its struct tags.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// decodeOptionalJSON is decodeJSON for bodies that may be empty.
func decodeOptionalJSON(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return validate.Struct(dst)
}

// respondDecodeError distinguishes malformed JSON from failed validation.
func respondDecodeError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		utils.RespondErrorCode(w, http.StatusBadRequest, "validation_failed", errorMessage(err))
		return
	}
	utils.RespondErrorCode(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
