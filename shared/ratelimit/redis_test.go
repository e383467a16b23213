package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiter_FirstHitStartsWindow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRedisLimiter(db, "rl", 3, time.Minute)

	mock.ExpectIncr("rl:client").SetVal(1)
	mock.ExpectExpire("rl:client", time.Minute).SetVal(true)

	allowed, remaining, retryAfter, err := limiter.Allow(context.Background(), "client")

	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2, remaining)
	assert.Zero(t, retryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLimiter_WithinWindow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRedisLimiter(db, "rl", 3, time.Minute)

	mock.ExpectIncr("rl:client").SetVal(3)

	allowed, remaining, _, err := limiter.Allow(context.Background(), "client")

	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLimiter_Blocked(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRedisLimiter(db, "rl", 3, time.Minute)

	mock.ExpectIncr("rl:client").SetVal(4)
	mock.ExpectTTL("rl:client").SetVal(42 * time.Second)

	allowed, remaining, retryAfter, err := limiter.Allow(context.Background(), "client")

	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 42*time.Second, retryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLimiter_MissingExpiryIsReset(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRedisLimiter(db, "rl", 3, time.Minute)

	mock.ExpectIncr("rl:client").SetVal(10)
	mock.ExpectTTL("rl:client").SetVal(-1)
	mock.ExpectExpire("rl:client", time.Minute).SetVal(true)

	allowed, _, retryAfter, err := limiter.Allow(context.Background(), "client")

	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLimiter_RedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRedisLimiter(db, "rl", 3, time.Minute)

	mock.ExpectIncr("rl:client").SetErr(errors.New("connection refused"))

	_, _, _, err := limiter.Allow(context.Background(), "client")

	assert.Error(t, err)
}
