package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/bingoclub/bingo-api/internal/config"
	"github.com/bingoclub/bingo-api/internal/domain/bingo"
	"github.com/bingoclub/bingo-api/internal/domain/catalog"
	"github.com/bingoclub/bingo-api/internal/domain/coupon"
	"github.com/bingoclub/bingo-api/internal/domain/game"
	"github.com/bingoclub/bingo-api/internal/domain/giftcard"
	"github.com/bingoclub/bingo-api/internal/domain/ledger"
	"github.com/bingoclub/bingo-api/internal/domain/notification"
	"github.com/bingoclub/bingo-api/internal/domain/refund"
	"github.com/bingoclub/bingo-api/internal/middleware"
	"github.com/bingoclub/bingo-api/internal/pkg/database"
	"github.com/bingoclub/bingo-api/internal/pkg/jwt"
	"github.com/bingoclub/bingo-api/internal/pkg/logger"
	"github.com/bingoclub/bingo-api/internal/pkg/metrics"
	pkgresponse "github.com/bingoclub/bingo-api/internal/pkg/response"
	"github.com/bingoclub/bingo-api/internal/pkg/scheduler"
)

// handlers groups everything the router mounts.
type handlers struct {
	wallet   *ledger.Handler
	games    *game.Handler
	gifts    *giftcard.Handler
	refunds  *refund.Handler
	coupons  *coupon.Handler
	packages *catalog.Handler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Bingo API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	// Notifications degrade to log-only when Redis is unavailable.
	var publisher notification.RealtimePublisher
	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, notifications will only be logged")
	} else {
		defer database.CloseRedis(redis)
		publisher = notification.NewRedisPublisher(redis)
	}

	runner := database.NewTxRunner(db, cfg.DBLockTimeout)
	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Services ----------
	notifier := notification.NewService(publisher)
	ledgerSvc := ledger.NewService(ledger.NewRepository(db), runner)
	gameSvc := game.NewService(game.NewRepository(runner), ledgerSvc, notifier, bingo.RandomPicker{}, cfg.AutoDrawDefaultSeconds)
	giftSvc := giftcard.NewService(giftcard.NewRepository(db), runner, ledgerSvc, notifier)
	refundSvc := refund.NewService(refund.NewRepository(db), runner, ledgerSvc, notifier)
	couponSvc := coupon.NewService(coupon.NewRepository(db), db)
	catalogSvc := catalog.NewService(catalog.NewRepository(db), runner, ledgerSvc, couponSvc, notifier)

	// ---------- Jobs ----------
	jobs := scheduler.New()
	gameSvc.SetScheduler(game.NewAutoDrawScheduler(jobs, gameSvc))
	if n, err := gameSvc.RestoreSchedules(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to restore auto-draw schedules")
	} else {
		log.Info().Int("games", n).Msg("Auto-draw schedules restored")
	}
	if _, err := giftcard.NewWorker(giftSvc).Register(jobs, cfg.GiftCardExpiryCron); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.GiftCardExpiryCron).Msg("Invalid gift card expiry schedule")
	}
	jobs.Start()

	// ---------- Router ----------
	h := &handlers{
		wallet:   ledger.NewHandler(ledgerSvc),
		games:    game.NewHandler(gameSvc),
		gifts:    giftcard.NewHandler(giftSvc),
		refunds:  refund.NewHandler(refundSvc),
		coupons:  coupon.NewHandler(couponSvc),
		packages: catalog.NewHandler(catalogSvc),
	}
	redeemLimiter := middleware.NewRateLimiter(cfg.RedeemRatePerMinute, cfg.RedeemRateBurst)
	r := newRouter(cfg, middleware.Auth(jwtService), redeemLimiter.Handler, h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	scheduler.Stop(jobs)

	log.Info().Msg("Server exited properly")
}

func newRouter(cfg *config.Config, authMiddleware, redeemLimiter func(http.Handler) http.Handler, h *handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/wallet", h.wallet.Routes(authMiddleware))
		r.Mount("/games", h.games.Routes(authMiddleware))
		r.Mount("/gift-cards", h.gifts.Routes(authMiddleware, redeemLimiter))
		r.Mount("/refunds", h.refunds.Routes(authMiddleware))
		r.Mount("/coupons", h.coupons.Routes(authMiddleware))
		r.Mount("/packages", h.packages.Routes(authMiddleware))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin())

		r.Mount("/wallets", h.wallet.AdminRoutes())
		r.Mount("/gift-cards", h.gifts.AdminRoutes())
		r.Mount("/refunds", h.refunds.AdminRoutes())
		r.Mount("/coupons", h.coupons.AdminRoutes())
		r.Mount("/packages", h.packages.AdminRoutes())
	})

	return r
}
