package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"lodging/internal/adapters/feed"
	"lodging/internal/adapters/observability"
	redisad "lodging/internal/adapters/redis"
	"lodging/internal/app"
	"lodging/internal/shared"
	mysqlrepo "lodging/internal/storage/mysql"
)

func main() {
	refsFlag := flag.String("refs", "", "comma separated feed references; empty imports the whole feed")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()
	runID := uuid.NewString()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel).With().Str("run_id", runID).Logger()

	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	log.Info().
		Str("base", cfg.FeedBase).
		Int("workers", cfg.ImportWorkers).
		Int("reviews", cfg.ImportReviews).
		Msg("importer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := feed.New(cfg.FeedBase, cfg.FeedKey, cfg.FeedRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize feed client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	imp := app.NewImportService(client, repo, cache)

	refs := splitRefs(*refsFlag)
	if len(refs) == 0 {
		if refs, err = client.ListLodgingRefs(ctx); err != nil {
			log.Fatal().Err(err).Msg("list feed lodgings failed")
		}
	}
	log.Info().Int("count", len(refs)).Msg("refs resolved")

	sem := semaphore.NewWeighted(int64(cfg.ImportWorkers))
	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)

	for _, ref := range refs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("import interrupted")
			break
		}

		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := imp.ImportLodging(ctx, ref, cfg.ImportReviews); err != nil {
				failed.Add(1)
				log.Warn().Str("ref", ref).Err(err).Msg("import failed")
				return
			}
			log.Info().Str("ref", ref).Msg("import ok")
		}(ref)
	}

	wg.Wait()
	log.Info().Int("total", len(refs)).Int64("failed", failed.Load()).Msg("import completed")
	if failed.Load() > 0 {
		os.Exit(1)
	}
}

func splitRefs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
