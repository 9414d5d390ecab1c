package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ridebook/internal/domain"
)

// DefaultStatusTTL bounds how stale a snapshot can get if an invalidation is lost.
const DefaultStatusTTL = 30 * time.Second

const (
	statusCachePrefix = "cache:ride-status:"
	generationSuffix  = ":gen"

	// generationTTL must outlive any snapshot TTL.
	generationTTL = 24 * time.Hour
)

// CachedRideStatus is the actor-independent part of a ride status report.
// Balances are not cached; they change with other rides.
type CachedRideStatus struct {
	Ride              *domain.Ride      `json:"ride"`
	LatestEvent       *domain.RideEvent `json:"latest_event,omitempty"`
	EventCount        int               `json:"event_count"`
	HistoryConsistent bool              `json:"history_consistent"`
}

// StatusCache caches ride status snapshots in Redis.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusCache creates a new StatusCache. A non-positive ttl uses DefaultStatusTTL.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &StatusCache{client: client, ttl: ttl}
}

// Generation returns the invalidation counter of a ride. Read it before
// loading a snapshot from the database and pass it to Set.
func (s *StatusCache) Generation(ctx context.Context, rideID string) (int64, error) {
	gen, err := s.client.Get(ctx, statusCachePrefix+rideID+generationSuffix).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get retrieves a snapshot. A cache miss returns nil, nil.
func (s *StatusCache) Get(ctx context.Context, rideID string) (*CachedRideStatus, error) {
	data, err := s.client.Get(ctx, statusCachePrefix+rideID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var status CachedRideStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// setIfGeneration writes the snapshot only while the counter still holds the
// generation it was loaded under.
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// Set stores a snapshot loaded under generation. It reports false, without
// error, when an invalidation happened since; the snapshot may be outdated.
func (s *StatusCache) Set(ctx context.Context, status *CachedRideStatus, generation int64) (bool, error) {
	data, err := json.Marshal(status)
	if err != nil {
		return false, err
	}
	key := statusCachePrefix + status.Ride.ID
	stored, err := setIfGeneration.Run(ctx, s.client,
		[]string{key, key + generationSuffix},
		data, strconv.FormatInt(generation, 10), s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Invalidate removes the snapshot of a ride and bumps its generation so that a
// read already in flight cannot store what it loaded.
func (s *StatusCache) Invalidate(ctx context.Context, rideID string) error {
	key := statusCachePrefix + rideID
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key+generationSuffix)
		pipe.Expire(ctx, key+generationSuffix, generationTTL)
		pipe.Del(ctx, key)
		return nil
	})
	return err
}
