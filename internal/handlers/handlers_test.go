package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fretus-backend/internal/middleware"
	"fretus-backend/internal/models"
	"fretus-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{models.ErrTripFull, http.StatusConflict, "trip_full"},
		{models.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
		{fmt.Errorf("reserve: %w", models.ErrCapacityExceeded), http.StatusConflict, "capacity_exceeded"},
		{models.ErrAlreadyBound, http.StatusConflict, "already_bound"},
		{models.ErrAlreadyInProgress, http.StatusConflict, "already_in_progress"},
		{models.ErrCancellationWindowClosed, http.StatusConflict, "cancellation_window_closed"},
		{models.ErrInvalidTransition, http.StatusUnprocessableEntity, "invalid_transition"},
		{fmt.Errorf("%w: pending -> collected", models.ErrInvalidTransition), http.StatusUnprocessableEntity, "invalid_transition"},
		{models.ErrRouteInactive, http.StatusUnprocessableEntity, "route_inactive"},
		{models.ErrReasonRequired, http.StatusUnprocessableEntity, "reason_required"},
		{models.ErrInvalidLoad, http.StatusUnprocessableEntity, "invalid_load"},
		{fmt.Errorf("trip abc: %w", models.ErrNotFound), http.StatusNotFound, "not_found"},
		{models.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		status, code := StatusFor(tt.err)
		if status != tt.status || code != tt.code {
			t.Errorf("StatusFor(%v) = %d %q, want %d %q", tt.err, status, code, tt.status, tt.code)
		}
	}
}

type fakeEngine struct {
	acceptErr   error
	created     services.DeliveryInput
	acceptedBy  string
	cancelledBy string
	advanceNext models.DropoffStatus
	advanceMeta models.LegMetadata
}

func (f *fakeEngine) CreateDelivery(ctx context.Context, companyID string, in services.DeliveryInput) (*models.DeliveryRequest, error) {
	f.created = in
	return &models.DeliveryRequest{ID: "req-1", CompanyID: companyID, RouteID: in.RouteID, Status: models.DeliveryStatusAwaitingDriver}, nil
}

func (f *fakeEngine) Accept(ctx context.Context, requestID, driverID string) (*models.BoundRequest, error) {
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	f.acceptedBy = driverID
	return &models.BoundRequest{Request: models.DeliveryRequest{ID: requestID}}, nil
}

func (f *fakeEngine) Release(ctx context.Context, requestID, driverID string) error { return nil }

func (f *fakeEngine) Cancel(ctx context.Context, requestID, companyID, reason string) (*models.DeliveryRequest, error) {
	f.cancelledBy = companyID
	return &models.DeliveryRequest{ID: requestID, Status: models.DeliveryStatusCancelled}, nil
}

func (f *fakeEngine) AdvanceCollection(ctx context.Context, legID, driverID string, next models.CollectionStatus, meta models.LegMetadata) (*models.AdvanceResult, error) {
	return &models.AdvanceResult{LegStatus: string(next)}, nil
}

func (f *fakeEngine) AdvanceDropoff(ctx context.Context, legID, driverID string, next models.DropoffStatus, meta models.LegMetadata) (*models.AdvanceResult, error) {
	f.advanceNext = next
	f.advanceMeta = meta
	return &models.AdvanceResult{LegStatus: string(next)}, nil
}

func (f *fakeEngine) CancelTrip(ctx context.Context, tripID, driverID, reason string) (*models.Trip, error) {
	return &models.Trip{ID: tripID, DriverID: driverID, Status: models.TripStatusCancelled}, nil
}

func (f *fakeEngine) Quote(ctx context.Context, routeID, priceTierID string) (*models.Fare, error) {
	return &models.Fare{Total: 144.0}, nil
}

func newRouter(engine Engine, role, userID string) http.Handler {
	logger := zap.NewNop()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUser(req.Context(), middleware.UserClaims{UserID: userID, Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/deliveries", CreateDelivery(engine, logger))
	r.Post("/deliveries/{id}/accept", AcceptDelivery(engine, logger))
	r.Post("/deliveries/{id}/cancel", CancelDelivery(engine, logger))
	r.Post("/dropoffs/{id}/advance", AdvanceDropoff(engine, logger))
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not json: %v (%s)", err, rec.Body.String())
	}
	return rec, env
}

func TestAcceptDeliveryMapsTripFull(t *testing.T) {
	engine := &fakeEngine{acceptErr: models.ErrTripFull}
	rec, env := do(t, newRouter(engine, models.RoleDriver, "driver-1"), http.MethodPost, "/deliveries/req-1/accept", "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if env.Success || env.Code != "trip_full" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestAcceptDeliveryUsesCallerAsDriver(t *testing.T) {
	engine := &fakeEngine{}
	rec, env := do(t, newRouter(engine, models.RoleDriver, "driver-7"), http.MethodPost, "/deliveries/req-1/accept", "")

	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if engine.acceptedBy != "driver-7" {
		t.Errorf("accepted by %q, want driver-7", engine.acceptedBy)
	}
}

func TestCreateDeliveryValidation(t *testing.T) {
	engine := &fakeEngine{}
	h := newRouter(engine, models.RoleCompany, "company-1")

	rec, env := do(t, h, http.MethodPost, "/deliveries", `{"route_id":"not-a-uuid","package_count":0}`)
	if rec.Code != http.StatusBadRequest || env.Code != "validation_failed" {
		t.Fatalf("status = %d, code = %q", rec.Code, env.Code)
	}

	body := `{
		"route_id": "4f9c1a52-1d1b-4c59-9a8a-0f3d5c2b7e10",
		"price_tier_id": "0b7f7c0e-6a0a-4a53-9d77-3c8f0f2f9d11",
		"pickup_address": "Rua A, 100, Campinas",
		"dropoff_address": "Av. Paulista, 1000, São Paulo",
		"recipient_name": "Maria",
		"recipient_phone": "+5511999999999",
		"package_count": 3,
		"weight_kg": 12.5
	}`
	rec, env = do(t, h, http.MethodPost, "/deliveries", body)
	if rec.Code != http.StatusCreated || !env.Success {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if engine.created.Weight != 12500*models.Gram {
		t.Errorf("weight = %d g, want 12500", engine.created.Weight)
	}

	rec, env = do(t, h, http.MethodPost, "/deliveries", strings.Replace(body, "12.5", "12.5005", 1))
	if rec.Code != http.StatusBadRequest || env.Code != "invalid_body" {
		t.Errorf("sub-gram weight: status = %d, code = %q", rec.Code, env.Code)
	}
}

func TestCancelDeliveryAcceptsEmptyBody(t *testing.T) {
	engine := &fakeEngine{}
	rec, _ := do(t, newRouter(engine, models.RoleCompany, "company-1"), http.MethodPost, "/deliveries/req-1/cancel", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if engine.cancelledBy != "company-1" {
		t.Errorf("cancelled by %q", engine.cancelledBy)
	}
}

func TestAdvanceDropoffPassesMetadata(t *testing.T) {
	engine := &fakeEngine{}
	h := newRouter(engine, models.RoleDriver, "driver-1")

	rec, env := do(t, h, http.MethodPost, "/dropoffs/leg-1/advance", `{"status":"delivered","receiver_name":"João","rating":9}`)
	if rec.Code != http.StatusBadRequest || env.Code != "validation_failed" {
		t.Fatalf("rating out of range: status = %d, code = %q", rec.Code, env.Code)
	}

	rec, _ = do(t, h, http.MethodPost, "/dropoffs/leg-1/advance", `{"status":"refused","reason":"recipient refused the package"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if engine.advanceNext != models.DropoffRefused || engine.advanceMeta.Reason != "recipient refused the package" {
		t.Errorf("engine got %q %+v", engine.advanceNext, engine.advanceMeta)
	}
}
