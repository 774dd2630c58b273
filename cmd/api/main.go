package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wishfund/internal/adapter/memory"
	"wishfund/internal/adapter/repo"
	"wishfund/internal/http/handlers"
	httpapi "wishfund/internal/http/httpapi"
	"wishfund/internal/infra"
	"wishfund/internal/infra/geoip"
	"wishfund/internal/ledger"
)

func main() {
	// .env is optional outside development.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}

	deps := handlers.Deps{
		Ledger: ledger.Config{
			Mode:       ledger.FundingMode(cfg.FundingMode),
			FeePercent: cfg.FeePercent(),
		},
		Location: loc,
		Logger:   logger,
	}

	ctx := context.Background()
	switch cfg.StorageDriver {
	case infra.StorageDriverMemory:
		store := memory.New()
		deps.Users = store.Users()
		deps.Wishlists = store.Wishlists()
		deps.Donations = store.Donations()
		deps.Tx = store.TxManager()
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
	default:
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()

		runner := infra.NewSQLRunner(dbpool, logger)
		deps.Users = repo.NewUserRepository(runner)
		deps.Wishlists = repo.NewWishlistRepository(runner)
		deps.Donations = repo.NewDonationRepository(runner)
		deps.Tx = runner
		deps.Ready = dbpool.Ping
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	app := handlers.NewApp(deps)
	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.Lookup(),
		Logger:          logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("storage", cfg.StorageDriver).
			Str("funding_mode", cfg.FundingMode).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
