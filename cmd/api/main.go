package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/kzclabs/kzc-wallet/internal/config"
	"github.com/kzclabs/kzc-wallet/internal/handler"
	"github.com/kzclabs/kzc-wallet/internal/logging"
	"github.com/kzclabs/kzc-wallet/internal/middleware"
	"github.com/kzclabs/kzc-wallet/internal/repository"
	"github.com/kzclabs/kzc-wallet/internal/service/mining"
	"github.com/kzclabs/kzc-wallet/internal/service/price"
	"github.com/kzclabs/kzc-wallet/internal/service/referral"
	"github.com/kzclabs/kzc-wallet/internal/service/swap"
	walletsvc "github.com/kzclabs/kzc-wallet/internal/service/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("kzc-api", cfg.LogLevel, cfg.AppEnv)

	ctx := context.Background()
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	users := repository.NewUserRepository(db)
	accounts := repository.NewAccountRepository(db)
	transactions := repository.NewTransactionRepository(db)
	sessions := repository.NewMiningRepository(db)
	phases := repository.NewPriceRepository(db)
	swaps := repository.NewSwapRepository(db)
	referrals := repository.NewReferralRepository(db)
	settings := repository.NewSettingsRepository(db)

	priceSim := price.NewSimulator(phases)
	walletSvc := walletsvc.NewService(users, accounts, transactions, settings, db)
	miningSvc := mining.NewService(users, accounts, transactions, sessions, settings, db)
	swapSvc := swap.NewService(users, accounts, transactions, swaps, settings, priceSim, db)
	referralSvc := referral.NewService(users, accounts, transactions, referrals, settings, db)

	healthHandler := handler.NewHealthHandler(db)
	walletHandler := handler.NewWalletHandler(walletSvc)
	miningHandler := handler.NewMiningHandler(miningSvc)
	swapHandler := handler.NewSwapHandler(swapSvc)
	priceHandler := handler.NewPriceHandler(priceSim)
	referralHandler := handler.NewReferralHandler(referralSvc)
	adminHandler := handler.NewAdminHandler(walletSvc, priceSim)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("GET /api/v1/price", priceHandler.Current)

	authed := middleware.Auth(cfg.JWTSecret)
	user := func(h http.HandlerFunc) http.Handler { return authed(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authed(middleware.Admin(h)) }

	mux.Handle("GET /api/v1/wallet/balances", user(walletHandler.Balances))
	mux.Handle("GET /api/v1/wallet/transactions", user(walletHandler.Transactions))
	mux.Handle("PUT /api/v1/wallet/pin", user(walletHandler.SetPIN))
	mux.Handle("POST /api/v1/wallet/send", user(walletHandler.Send))

	mux.Handle("POST /api/v1/mining/start", user(miningHandler.Start))
	mux.Handle("GET /api/v1/mining/status", user(miningHandler.Status))
	mux.Handle("POST /api/v1/mining/claim", user(miningHandler.Claim))
	mux.Handle("GET /api/v1/mining/history", user(miningHandler.History))

	mux.Handle("GET /api/v1/swap/rate", user(swapHandler.Quote))
	mux.Handle("POST /api/v1/swap", user(swapHandler.Execute))
	mux.Handle("GET /api/v1/swap/history", user(swapHandler.History))

	mux.Handle("GET /api/v1/referrals", user(referralHandler.Stats))

	mux.Handle("POST /api/v1/admin/distribute", admin(adminHandler.Distribute))
	mux.Handle("POST /api/v1/admin/transactions/{id}/hold", admin(adminHandler.Hold))
	mux.Handle("POST /api/v1/admin/transactions/{id}/reverse", admin(adminHandler.Reverse))
	mux.Handle("POST /api/v1/admin/price/phase", admin(adminHandler.SetPhase))

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
