package middleware_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/dibyaarfianda/dokterdibya-realtime/internal/server/middleware"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func TestMetadataAndRequestLogger(t *testing.T) {
	var gotIP string
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := middleware.ReqMetadataFrom(r.Context())
			if !ok {
				t.Fatal("Request metadata missing from context")
			}
			gotIP = reqMeta.IP
		}),
		middleware.RequestMetadataMiddleware(),
		middleware.NewRequestLogger(newTestLogger()),
	)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "10.1.2.3:51555"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotIP != "10.1.2.3" {
		t.Errorf("Expected extracted IP 10.1.2.3, got %q", gotIP)
	}
}

func TestConnectionLimiterReject(t *testing.T) {
	cfg := config.ConnectionLimitConfig{MaxPerIP: 2, Mode: "reject"}
	active := 0
	reached := false
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }),
		middleware.RequestMetadataMiddleware(),
		middleware.NewConnectionLimiter(newTestLogger(), func(ip string) int { return active }, nil, cfg),
	)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "10.1.2.3:51555"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if !reached || rec.Code != http.StatusOK {
		t.Fatalf("Under the limit the request should pass, got %d", rec.Code)
	}

	active = 2
	reached = false
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if reached || rec.Code != http.StatusTooManyRequests {
		t.Errorf("At the limit reject mode should return 429, got %d (reached=%v)", rec.Code, reached)
	}
}

func TestConnectionLimiterCycle(t *testing.T) {
	cfg := config.ConnectionLimitConfig{MaxPerIP: 1, Mode: "cycle"}
	var cycledIP string
	reached := false
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }),
		middleware.RequestMetadataMiddleware(),
		middleware.NewConnectionLimiter(newTestLogger(), func(ip string) int { return 1 }, func(ip string) { cycledIP = ip }, cfg),
	)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "10.1.2.3:51555"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if cycledIP != "10.1.2.3" {
		t.Errorf("Cycle mode should evict the oldest connection for the IP, cycled %q", cycledIP)
	}
	if !reached {
		t.Error("Cycle mode should still admit the new connection")
	}
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "clinic-secret"
	var gotUserID, gotRole string
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
			gotUserID, gotRole = reqMeta.UserID, reqMeta.Role
		}),
		middleware.RequestMetadataMiddleware(),
		middleware.NewAuthMiddleware(newTestLogger(), secret),
	)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "10.1.2.3:51555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Missing cookie should be rejected, got %d", rec.Code)
	}

	claims := middleware.StaffClaims{
		Role: "doctor",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Signing test token failed: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: "session-token", Value: signed})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Valid token should pass, got %d", rec.Code)
	}
	if gotUserID != "u1" || gotRole != "doctor" {
		t.Errorf("Claims not propagated to metadata: userID=%q role=%q", gotUserID, gotRole)
	}
}

func TestAuthMiddlewareOpenWithoutSecret(t *testing.T) {
	reached := false
	handler := middleware.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }),
		middleware.RequestMetadataMiddleware(),
		middleware.NewAuthMiddleware(newTestLogger(), ""),
	)
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "10.1.2.3:51555"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !reached {
		t.Error("With no secret configured the gateway runs open")
	}
}
