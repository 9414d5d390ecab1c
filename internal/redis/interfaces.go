package redis

import "context"

// StatusCacheInterface defines the ride status snapshot cache.
type StatusCacheInterface interface {
	Get(ctx context.Context, rideID string) (*CachedRideStatus, error)
	Generation(ctx context.Context, rideID string) (int64, error)
	Set(ctx context.Context, status *CachedRideStatus, generation int64) (bool, error)
	Invalidate(ctx context.Context, rideID string) error
}

// Ensure concrete types implement interfaces.
var _ StatusCacheInterface = (*StatusCache)(nil)
