//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"petcare/internal/ratelimit/store"
	"petcare/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestAllowUntilLimit() {
	ctx := context.Background()
	for i := range 2 {
		res, err := s.store.Allow(ctx, "auth:ip:10.0.0.1", 2, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(1-i, res.Remaining)
	}

	res, err := s.store.Allow(ctx, "auth:ip:10.0.0.1", 2, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Positive(res.RetryAfter)
}

func (s *RedisStoreSuite) TestKeyExpiresWithWindow() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "auth:ip:10.0.0.1", 5, 30*time.Second)
	s.Require().NoError(err)

	keys, err := s.redis.Keys(ctx, "petcare:ratelimit:*")
	s.Require().NoError(err)
	s.Equal([]string{"petcare:ratelimit:auth:ip:10.0.0.1"}, keys)

	ttl, err := s.redis.Client.PTTL(ctx, keys[0]).Result()
	s.Require().NoError(err)
	s.LessOrEqual(ttl, 30*time.Second)
	s.Positive(ttl)
}

func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "k", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(ctx, "k"))

	res, err := s.store.Allow(ctx, "k", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
