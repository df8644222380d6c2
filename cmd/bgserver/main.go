// Command bgserver runs the backgammon tutor API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/bgtutor/internal/config"
	"github.com/yourusername/bgtutor/internal/logging"
	"github.com/yourusername/bgtutor/internal/met"
	"github.com/yourusername/bgtutor/internal/pool"
	"github.com/yourusername/bgtutor/internal/store"
	"github.com/yourusername/bgtutor/pkg/api"
	"github.com/yourusername/bgtutor/pkg/coach"
	"github.com/yourusername/bgtutor/pkg/evaluator"
	"github.com/yourusername/bgtutor/pkg/game"
)

const version = "0.2.0"

func main() {
	configFile := flag.String("config", "", "Path to a config file (YAML, JSON or TOML)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("bgserver v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	table := met.Default()
	if cfg.Engine.METFile != "" {
		t, err := met.LoadXML(cfg.Engine.METFile)
		if err != nil {
			return err
		}
		table = t
		logger.Info("match equity table loaded", zap.String("file", cfg.Engine.METFile))
	}

	stores, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	eval := evaluator.New(cfg.Evaluator, logger)
	deps := api.Deps{
		Evaluator:   eval,
		Health:      eval,
		Stats:       stores.stats,
		Preferences: stores.prefs,
		Archive:     stores.archive,
		Pool:        pool.New(cfg.Pool),
		MET:         table,
		Logger:      logger,
		Base:        baseConfig(cfg),
	}
	if cfg.Coach.URL != "" {
		deps.Coach = coach.New(cfg.Coach.Config, logger)
	} else {
		logger.Info("no coach configured, coaching disabled")
	}

	server := api.NewServer(api.ServerConfig{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
		SessionTTL:   cfg.Server.SessionTTL,
	}, deps, version)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.ListenAndServe(ctx) })
	g.Go(func() error { return server.ExpireSessions(ctx, time.Minute) })
	return g.Wait()
}

func baseConfig(cfg *config.Config) game.Config {
	base := game.DefaultConfig()
	base.CoachThreshold = cfg.Coach.Threshold
	base.Summaries = cfg.Coach.Summaries
	base.AutoRoll = cfg.Engine.AutoRoll
	base.StrictInvariants = cfg.Engine.StrictInvariants
	base.Heuristic = cfg.Engine.Heuristic
	if cfg.Coach.Timeout > base.AnnotateTimeout {
		base.AnnotateTimeout = cfg.Coach.Timeout
	}
	return base
}

type storeSet struct {
	stats   store.StatsStore
	prefs   store.PreferenceStore
	archive store.Archive
}

// openStores connects the configured databases. Anything not configured is
// kept in memory for the life of the process.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storeSet, func(), error) {
	mem := store.NewMemory()
	set := storeSet{stats: mem, prefs: mem, archive: mem}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Postgres.DSN != "" {
		pg, err := store.OpenPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return set, closeAll, err
		}
		closers = append(closers, pg.Close)
		set.stats = pg
		logger.Info("statistics in postgres")
	}
	if cfg.Redis.Addr != "" {
		rd, err := store.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			closeAll()
			return set, func() {}, err
		}
		closers = append(closers, func() { rd.Close() })
		set.prefs = rd
		logger.Info("preferences in redis", zap.String("addr", cfg.Redis.Addr))
	}
	if cfg.Mongo.URI != "" {
		mg, err := store.OpenMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			closeAll()
			return set, func() {}, err
		}
		closers = append(closers, func() { mg.Close(context.Background()) })
		set.archive = mg
		logger.Info("game archive in mongo", zap.String("database", cfg.Mongo.Database))
	}
	return set, closeAll, nil
}
