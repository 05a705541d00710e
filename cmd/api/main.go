package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"free_cabins/internal/adapters/cai"
	"free_cabins/internal/adapters/geo"
	server "free_cabins/internal/adapters/http_server"
	"free_cabins/internal/adapters/memcache"
	"free_cabins/internal/adapters/observability"
	redisad "free_cabins/internal/adapters/redis"
	"free_cabins/internal/adapters/session"
	"free_cabins/internal/app"
	"free_cabins/internal/domain"
	"free_cabins/internal/shared"
	mysqlrepo "free_cabins/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")
	if err := cfg.CheckAuth(); err != nil {
		log.Fatal().Err(err).Str("env", cfg.AppEnv).Msg("refusing to start")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MySQLMaxConns)
	db.SetMaxIdleConns(cfg.MySQLMaxConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	repo := mysqlrepo.New(db)
	if err := repo.EnsureSchema(ctx, cfg.AdminUsername); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	// optional read cache
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, list cache disabled")
		} else {
			cache = rc
		}
	}

	// deps
	enricher := geo.NewEnricher(
		geo.NewNominatim(cfg.NominatimBase, cfg.GeoUserAgent, cfg.GeoRPS),
		geo.NewElevation(cfg.ElevationBase),
	)
	cabins := app.NewCabinService(repo, enricher, cache, cfg.CacheTTL)
	importer := app.NewImportService(cai.New(cfg.CAIBase, cfg.CAIPageDelay), repo, cache)
	admins := app.NewAdminService(repo, memcache.NewTTL[string, bool]("admin", cfg.AdminCacheTTL))
	sessions, err := session.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("session manager")
	}

	// http
	srv := server.New(cfg.CORSOrigins)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Cabins:   cabins,
		Importer: importer,
		Admins:   admins,
		Sessions: sessions,
		Auth: server.Credentials{
			Username:     cfg.AdminUsername,
			Password:     cfg.AdminPassword,
			PasswordHash: cfg.AdminPasswordHash,
		},
		Dev:            cfg.Dev(),
		LoginRateLimit: cfg.LoginRateLimit,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
