package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"testyourself-core/internal/app"
	"testyourself-core/internal/config"
	"testyourself-core/internal/infra/memory"
	mongostore "testyourself-core/internal/infra/mongo"
	pgstore "testyourself-core/internal/infra/postgres"
	redisinfra "testyourself-core/internal/infra/redis"
	"testyourself-core/internal/security"
)

// services holds the wired application components and their cleanup hooks.
type services struct {
	logger      *log.Logger
	docs        app.DocumentStore
	writer      *app.BatchWriter
	registry    *app.RegistryStore
	sync        *app.RegistrySync
	catalog     *app.CatalogService
	leaderboard *app.LeaderboardService
	admin       *app.AdminService
	auth        *security.JWTAuthorizer
	closers     []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "testyourself",
	})
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	svc := &services{logger: newLogger(cfg.Log.Level)}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, svc.logger); err != nil {
			return nil, err
		}
	}

	docs, err := svc.openStore(ctx, cfg)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.docs = docs

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		svc.closers = append(svc.closers, func() { _ = redisClient.Close() })
	}
	cacheTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var profiles app.ProfileLookup = memory.NewStaticProfiles(nil)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("connect profile pool: %w", err)
		}
		svc.closers = append(svc.closers, pool.Close)
		profiles = pgstore.NewProfileLoader(pool)
	}

	var ranking app.RankingIndex
	if redisClient != nil {
		profiles = redisinfra.NewProfileCache(redisClient, profiles, cacheTTL)
		ranking = redisinfra.NewRankingIndex(redisClient)
	} else {
		profiles = memory.NewProfileCache(profiles, cacheTTL)
		ranking = memory.NewRankingIndex()
	}

	svc.auth = security.NewJWTAuthorizer([]byte(cfg.Auth.JWTSecret))
	svc.writer = app.NewBatchWriter(docs, svc.logger)
	svc.registry = app.NewRegistryStore(docs, svc.writer, cfg.Registry.ChunkBytes, svc.logger)
	svc.sync = app.NewRegistrySync(svc.registry, svc.writer, svc.logger)
	svc.catalog = app.NewCatalogService(docs, svc.logger)
	svc.leaderboard = app.NewLeaderboardService(docs, svc.writer, profiles, ranking, app.NewStandingsFeed(), svc.logger).
		WithDepth(cfg.Leaderboard.FeedDepth)
	svc.admin = app.NewAdminService(svc.auth, svc.catalog, svc.sync)
	return svc, nil
}

func (s *services) openStore(ctx context.Context, cfg config.Config) (app.DocumentStore, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		s.logger.Warn("using in-memory document store; data is lost on exit")
		return memory.NewDocumentStore(), nil
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("postgres url not configured")
		}
		db := pgstore.OpenDB(cfg.Postgres.URL)
		s.closers = append(s.closers, func() { _ = db.Close() })
		return pgstore.NewDocumentStore(db), nil
	case "mongo":
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("mongo uri not configured")
		}
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = client.Disconnect(context.Background()) })
		return mongostore.NewDocumentStore(client, cfg.Mongo.Database), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
