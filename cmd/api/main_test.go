package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bingoclub/bingo-api/internal/config"
	"github.com/bingoclub/bingo-api/internal/domain/catalog"
	"github.com/bingoclub/bingo-api/internal/domain/coupon"
	"github.com/bingoclub/bingo-api/internal/domain/game"
	"github.com/bingoclub/bingo-api/internal/domain/giftcard"
	"github.com/bingoclub/bingo-api/internal/domain/ledger"
	"github.com/bingoclub/bingo-api/internal/domain/refund"
	"github.com/bingoclub/bingo-api/internal/middleware"
	"github.com/bingoclub/bingo-api/internal/pkg/jwt"
)

func testRouter(t *testing.T) (http.Handler, *jwt.Service) {
	t.Helper()
	jwtService := jwt.NewService("test-secret", time.Minute)
	h := &handlers{
		wallet:   ledger.NewHandler(nil),
		games:    game.NewHandler(nil),
		gifts:    giftcard.NewHandler(nil),
		refunds:  refund.NewHandler(nil),
		coupons:  coupon.NewHandler(nil),
		packages: catalog.NewHandler(nil),
	}
	cfg := &config.Config{AllowedOrigins: []string{"http://localhost:3000"}}
	passthrough := func(next http.Handler) http.Handler { return next }
	return newRouter(cfg, middleware.Auth(jwtService), passthrough, h), jwtService
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := testRouter(t)

	for _, path := range []string{"/health", "/metrics", "/api/v1/ping"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := testRouter(t)

	for _, path := range []string{"/api/v1/wallet/balance", "/api/v1/games/" + uuid.NewString(), "/api/admin/refunds/", "/api/admin/wallets/" + uuid.NewString() + "/audit"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rr.Code)
		}
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router, jwtService := testRouter(t)

	token, err := jwtService.GenerateAccessToken(uuid.New(), "player")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/refunds/"+uuid.NewString()+"/approve", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}
}
