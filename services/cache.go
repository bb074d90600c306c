package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"parkspot-api/config"
)

// Cache keys and TTLs. The keys are load-bearing: the estimator's damping
// state is read back across refreshes, so renaming one silently resets it.
const (
	KeyLiveParkingData  = "live_parking_data"
	KeyPrevAvailability = "prev_availability"
	KeyPrevTotals       = "prev_totals"
	KeyRefreshCounter   = "refresh_counter"
	KeySignPlates       = "signplates:v1"
	KeySegments         = "segments:v1"
	KeyPredictions      = "predictions:v1"

	// ChannelLive carries each fresh live payload to websocket subscribers.
	ChannelLive = "parkspot:live"
)

const (
	LiveParkingTTL      = 60 * time.Second
	PrevAvailabilityTTL = time.Hour
	PrevTotalsTTL       = 24 * time.Hour
	RefreshCounterTTL   = 24 * time.Hour
	SignPlatesTTL       = 30 * time.Minute
	SegmentsTTL         = time.Hour
	PredictionsTTL      = 60 * time.Second
)

// Store is the slice of the cache layer the pipeline services depend on.
// Implementations must treat an unavailable backend as "no prior state":
// misses on Get, silent no-ops on Set/Publish.
type Store interface {
	// Get unmarshals the value under key into dest, reporting whether the
	// key was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Publish(ctx context.Context, channel string, message any) error
}

// CacheService wraps the Redis cache with JSON (de)serialization. A nil
// client degrades every operation to the no-prior-state behavior so a Redis
// outage never takes the pipeline down with it.
type CacheService struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewCacheService(cfg config.RedisConfig, log zerolog.Logger) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	svc := &CacheService{client: client, log: log.With().Str("component", "cache").Logger()}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return svc, fmt.Errorf("redis ping failed: %w", err)
	}
	return svc, nil
}

func (s *CacheService) Client() *redis.Client { return s.client }

func (s *CacheService) Available() bool { return s.client != nil }

func (s *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		// Treat a flaky backend like a miss; the caller falls back to
		// defaults rather than aborting the run.
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false, nil
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (s *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Publish(ctx context.Context, channel string, message any) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if s.client == nil {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

func (s *CacheService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
