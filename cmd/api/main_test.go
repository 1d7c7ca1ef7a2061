package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	httpmiddleware "github.com/wolfman30/dental-assistant/internal/http/middleware"
	"github.com/wolfman30/dental-assistant/internal/observability/metrics"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

func TestSetupMetricsExposesDialogMetrics(t *testing.T) {
	reg, handler := setupMetrics()
	m := metrics.NewDialogMetrics(reg)
	m.ObserveBooking("booked")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "dental_"), "expected dental metrics to be exported")
	assert.True(t, strings.Contains(body, "go_goroutines"), "expected runtime collector")
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	pool, err := connectPostgresPool(context.Background(), "", logging.Discard())
	require.NoError(t, err)
	assert.Nil(t, pool)
}

func TestSetupStorageFallsBackToMemory(t *testing.T) {
	backend, err := setupStorage(context.Background(), "", logging.Discard())
	require.NoError(t, err)
	defer backend.Close()

	assert.IsType(t, &appointments.MemoryStore{}, backend.Store)
	assert.IsType(t, &appointments.MemoryStore{}, backend.Reporter)
}

func TestSetupArchiveDisabledWithoutBucket(t *testing.T) {
	store := setupArchive(&appconfig.Config{}, nil, logging.Discard())
	assert.False(t, store.Enabled())
	assert.Nil(t, transcriptArchiver(store, logging.Discard()))
}

func TestLoadAWSSkippedWhenUnused(t *testing.T) {
	awsCfg, err := loadAWS(context.Background(), &appconfig.Config{EmailProvider: "stub"}, logging.Discard())
	require.NoError(t, err)
	assert.Nil(t, awsCfg)
}

func TestSetupRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := logging.Discard()

	assert.Nil(t, setupRateLimiter(ctx, &appconfig.Config{}, nil, logger))

	cfg := &appconfig.Config{RateLimitRPS: 2, RateLimitBurst: 5}
	assert.IsType(t, &httpmiddleware.TokenBucket{}, setupRateLimiter(ctx, cfg, nil, logger))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := setupRateLimiter(ctx, cfg, client, logger)
	require.IsType(t, &httpmiddleware.RedisWindow{}, limiter)

	// Burst raises the per-window limit above the per-second rate.
	for i := 0; i < cfg.RateLimitBurst; i++ {
		ok, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
}
