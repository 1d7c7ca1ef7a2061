package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/dental-assistant/internal/availability"
	"github.com/wolfman30/dental-assistant/internal/clinic"
	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	"github.com/wolfman30/dental-assistant/internal/conversation"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildHours maps the clinic schedule settings onto availability hours.
func BuildHours(cfg *appconfig.Config) availability.Hours {
	return availability.Hours{
		OpenHour:       cfg.OpenHour,
		CloseHour:      cfg.CloseHour,
		ShortCloseHour: cfg.ShortCloseHour,
		ShortWeekday:   cfg.ShortWeekday,
		ClosedWeekday:  cfg.ClosedWeekday,
	}
}

// BuildSessionStore prefers Redis and falls back to process memory.
func BuildSessionStore(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) conversation.SessionStore {
	if redisClient == nil {
		logger.Warn("redis not configured; chat sessions are kept in memory")
		return conversation.NewMemorySessionStore(cfg.SessionTTL)
	}
	return conversation.NewRedisSessionStore(redisClient, cfg.SessionTTL)
}

// BuildProfileStore returns the clinic profile store. Without Redis the
// profile from config is served and admin edits last until restart.
func BuildProfileStore(redisClient *redis.Client, cfg *appconfig.Config) (clinic.ProfileStore, *clinic.Profile) {
	profile := clinic.DefaultProfile(cfg.ClinicName, cfg.ClinicPhone, cfg.ClinicTimezone, BuildHours(cfg))
	if redisClient == nil {
		return clinic.NewStaticStore(profile), profile
	}
	return clinic.NewStore(redisClient, profile), profile
}
