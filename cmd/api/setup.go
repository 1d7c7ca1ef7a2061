package main

import (
	"context"
	"database/sql"
	"math"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/dental-assistant/cmd/mainconfig"
	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/internal/archive"
	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	httpmiddleware "github.com/wolfman30/dental-assistant/internal/http/middleware"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

const (
	rateLimitWindow   = time.Second
	bucketEvictEvery  = 5 * time.Minute
)

func loadAWS(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*aws.Config, error) {
	if !mainconfig.NeedsAWS(cfg) {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		return nil, err
	}
	return &awsCfg, nil
}

// storage is the appointment backend: Postgres when DATABASE_URL is set,
// process memory otherwise.
type storage struct {
	Store    appointments.Store
	Reporter appointments.Reporter
	pool     *pgxpool.Pool
	db       *sql.DB
}

func (s *storage) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func setupStorage(ctx context.Context, databaseURL string, logger *logging.Logger) (*storage, error) {
	pool, err := connectPostgresPool(ctx, databaseURL, logger)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		logger.Warn("DATABASE_URL not set; appointments are kept in memory")
		mem := appointments.NewMemoryStore()
		return &storage{Store: mem, Reporter: mem}, nil
	}
	db := stdlib.OpenDBFromPool(pool)
	return &storage{
		Store:    appointments.NewPostgresStore(pool),
		Reporter: appointments.NewReportRepository(db),
		pool:     pool,
		db:       db,
	}, nil
}

func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		logger.Error("postgres not reachable", "error", err)
		return nil, err
	}
	return pool, nil
}

func setupMetrics() (*prometheus.Registry, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func setupArchive(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *archive.Store {
	if cfg.ExportBucket == "" || awsCfg == nil {
		return archive.NewStore(nil, "", logger)
	}
	logger.Info("archive enabled", "bucket", cfg.ExportBucket)
	return archive.NewStore(s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	}), cfg.ExportBucket, logger)
}

func transcriptArchiver(store *archive.Store, logger *logging.Logger) *archive.TranscriptArchiver {
	return archive.NewTranscriptArchiver(store, logger)
}

// setupRateLimiter shares counters through Redis when available so
// replicas enforce one limit.
func setupRateLimiter(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) httpmiddleware.Limiter {
	if cfg.RateLimitRPS <= 0 {
		logger.Info("rate limiting disabled")
		return nil
	}
	if redisClient != nil {
		limit := int(math.Ceil(cfg.RateLimitRPS * rateLimitWindow.Seconds()))
		if cfg.RateLimitBurst > limit {
			limit = cfg.RateLimitBurst
		}
		return httpmiddleware.NewRedisWindow(redisClient, limit, rateLimitWindow)
	}
	bucket := httpmiddleware.NewTokenBucket(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go bucket.RunEviction(ctx, bucketEvictEvery)
	return bucket
}
