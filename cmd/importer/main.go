package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"free_cabins/internal/adapters/cai"
	"free_cabins/internal/adapters/geo"
	"free_cabins/internal/adapters/observability"
	redisad "free_cabins/internal/adapters/redis"
	"free_cabins/internal/app"
	"free_cabins/internal/domain"
	"free_cabins/internal/shared"
	mysqlrepo "free_cabins/internal/storage/mysql"
)

func main() {
	source := flag.String("source", "", "external directory to import (cai)")
	bulk := flag.String("bulk", "", "path to a JSON array of cabins to create or merge")
	flag.Parse()

	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "importer")

	if (*source == "") == (*bulk == "") {
		log.Fatal().Msg("exactly one of -source or -bulk is required")
	}
	if *source != "" && *source != "cai" {
		log.Fatal().Str("source", *source).Msg("unknown source")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MySQLMaxConns)
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	if err := repo.EnsureSchema(ctx, cfg.AdminUsername); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}

	if *source == "cai" {
		log.Info().Str("base", cfg.CAIBase).Dur("page_delay", cfg.CAIPageDelay).Msg("cai import starting")
		svc := app.NewImportService(cai.New(cfg.CAIBase, cfg.CAIPageDelay), repo, cache)
		n, err := svc.ImportCAI(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("cai import failed")
		}
		log.Info().Int("count", n).Msg("cai import completed")
		return
	}

	raw, err := os.ReadFile(*bulk)
	if err != nil {
		log.Fatal().Err(err).Str("file", *bulk).Msg("read bulk file")
	}
	var drafts []domain.CabinDraft
	if err := json.Unmarshal(raw, &drafts); err != nil {
		log.Fatal().Err(err).Str("file", *bulk).Msg("parse bulk file")
	}

	enricher := geo.NewEnricher(
		geo.NewNominatim(cfg.NominatimBase, cfg.GeoUserAgent, cfg.GeoRPS),
		geo.NewElevation(cfg.ElevationBase),
	)
	svc := app.NewCabinService(repo, enricher, cache, cfg.CacheTTL)
	n, err := svc.BulkImport(ctx, drafts)
	if err != nil {
		log.Fatal().Err(err).Int("processed", n).Msg("bulk import aborted")
	}
	log.Info().Int("count", n).Msg("bulk import completed")
}
