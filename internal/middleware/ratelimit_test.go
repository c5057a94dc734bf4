package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newLimited(t *testing.T, limit int) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h := RateLimit(rdb, limit, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return h, mr
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/company/routes", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	h, _ := newLimited(t, 3)

	for i := 0; i < 3; i++ {
		if rec := hit(h, "10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}

	rec := hit(h, "10.0.0.1:5000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	if rec := hit(h, "10.0.0.2:5000"); rec.Code != http.StatusOK {
		t.Errorf("other client: status = %d, want 200", rec.Code)
	}
}

func TestRateLimitWindowExpires(t *testing.T) {
	h, mr := newLimited(t, 1)

	hit(h, "10.0.0.1:5000")
	if rec := hit(h, "10.0.0.1:5000"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	mr.FastForward(rateLimitWindow * 2)
	if rec := hit(h, "10.0.0.1:5000"); rec.Code != http.StatusOK {
		t.Errorf("after window: status = %d, want 200", rec.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	h, mr := newLimited(t, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		if rec := hit(h, "10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200 while redis is down", i+1, rec.Code)
		}
	}
}

func TestRateLimitCountsAuthenticatedUsersSeparately(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Auth(testSecret, zap.NewNop())(RateLimit(rdb, 1, zap.NewNop())(ok))

	call := func(userID string) int {
		claims := validClaims()
		claims["user_id"] = userID
		req := httptest.NewRequest(http.MethodGet, "/api/driver/trips", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, claims))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call("driver-1"); code != http.StatusOK {
		t.Fatalf("driver-1 first call: %d", code)
	}
	if code := call("driver-2"); code != http.StatusOK {
		t.Fatalf("driver-2 behind the same IP: %d, want 200", code)
	}
	if code := call("driver-1"); code != http.StatusTooManyRequests {
		t.Errorf("driver-1 second call: %d, want 429", code)
	}
	if !mr.Exists(rateLimitKeyPrefix+"user:driver-1") || mr.Exists(rateLimitKeyPrefix+"ip:10.0.0.1") {
		t.Errorf("keys = %v, want per-user counters only", mr.Keys())
	}
}
