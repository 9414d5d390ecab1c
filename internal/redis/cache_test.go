package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridebook/internal/domain"
)

func TestNewStatusCache_DefaultTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	assert.Equal(t, DefaultStatusTTL, NewStatusCache(client, 0).ttl)
	assert.Equal(t, time.Minute, NewStatusCache(client, time.Minute).ttl)
}

func TestCachedRideStatus_KeepsExactAmounts(t *testing.T) {
	in := CachedRideStatus{
		Ride: &domain.Ride{
			ID:            "r1",
			Status:        domain.RideStatusCompleted,
			Price:         decimal.RequireFromString("321.45"),
			TotalDistance: decimal.RequireFromString("4.10"),
		},
		EventCount:        5,
		HistoryConsistent: true,
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out CachedRideStatus
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.Ride.Price.Equal(in.Ride.Price))
	assert.Equal(t, domain.RideStatusCompleted, out.Ride.Status)
	assert.Nil(t, out.LatestEvent)
}
