//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agora/internal/cache"
	"agora/pkg/platform/sentinel"
	"agora/pkg/testutil/containers"
)

type RedisBackendSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	backend *cache.RedisBackend
}

func TestRedisBackendSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBackendSuite))
}

func (s *RedisBackendSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.backend = cache.NewRedisBackend(s.redis.Client)
}

func (s *RedisBackendSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBackendSuite) TestRoundTrip() {
	ctx := context.Background()

	_, err := s.backend.Get(ctx, "agora:entity:requests:missing")
	s.ErrorIs(err, sentinel.ErrNotFound)

	payload := []byte(`{"snapshot":{},"resolved_at":"2026-03-03T16:00:00Z"}`)
	s.Require().NoError(s.backend.Set(ctx, "agora:entity:requests:aa01", payload, time.Minute))

	val, err := s.backend.Get(ctx, "agora:entity:requests:aa01")
	s.Require().NoError(err)
	s.Equal(payload, val)

	s.Require().NoError(s.backend.Delete(ctx, "agora:entity:requests:aa01"))
	_, err = s.backend.Get(ctx, "agora:entity:requests:aa01")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisBackendSuite) TestServerSideExpiry() {
	ctx := context.Background()

	s.Require().NoError(s.backend.Set(ctx, "agora:entity:offers:bb02", []byte("v"), 100*time.Millisecond))

	_, err := s.backend.Get(ctx, "agora:entity:offers:bb02")
	s.Require().NoError(err)

	time.Sleep(150 * time.Millisecond)
	_, err = s.backend.Get(ctx, "agora:entity:offers:bb02")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisBackendSuite) TestEntriesSurviveReconnect() {
	ctx := context.Background()

	s.Require().NoError(s.backend.Set(ctx, "agora:entity:users:cc03", []byte("v"), time.Minute))

	fresh := cache.NewRedisBackend(s.redis.Client)
	val, err := fresh.Get(ctx, "agora:entity:users:cc03")
	s.Require().NoError(err)
	s.Equal([]byte("v"), val)
}
