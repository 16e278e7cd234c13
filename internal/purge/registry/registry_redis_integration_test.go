//go:build integration

package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"omnigest/internal/purge/registry"
	"omnigest/pkg/testutil/containers"
)

type RedisRegistrySuite struct {
	suite.Suite
	redis *containers.RedisContainer
	reg   *registry.RedisRegistry
}

func TestRedisRegistrySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := new(RedisRegistrySuite)
	s.redis = containers.NewRedisContainer(t)
	suite.Run(t, s)
}

func (s *RedisRegistrySuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.reg = registry.NewRedisRegistry(s.redis.Client)
}

func (s *RedisRegistrySuite) TestMarkAndCheck() {
	ctx := context.Background()
	s.Require().NoError(s.reg.MarkPurged(ctx, "a1b2c3d4****", time.Hour))

	purged, err := s.reg.IsPurged(ctx, "a1b2c3d4****")
	s.Require().NoError(err)
	s.True(purged)

	purged, err = s.reg.IsPurged(ctx, "ffffffff****")
	s.Require().NoError(err)
	s.False(purged)
}

func (s *RedisRegistrySuite) TestMarkerExpires() {
	ctx := context.Background()
	s.Require().NoError(s.reg.MarkPurged(ctx, "a1b2c3d4****", 500*time.Millisecond))

	purged, err := s.reg.IsPurged(ctx, "a1b2c3d4****")
	s.Require().NoError(err)
	s.True(purged)

	time.Sleep(time.Second)

	purged, err = s.reg.IsPurged(ctx, "a1b2c3d4****")
	s.Require().NoError(err)
	s.False(purged)
}

func (s *RedisRegistrySuite) TestMarkersSurviveReconnect() {
	ctx := context.Background()
	s.Require().NoError(s.reg.MarkPurged(ctx, "a1b2c3d4****", time.Hour))

	// A fresh registry over the same backend sees the marker, which is
	// what keeps purges absorbing across process restarts.
	fresh := registry.NewRedisRegistry(s.redis.Client)
	purged, err := fresh.IsPurged(ctx, "a1b2c3d4****")
	s.Require().NoError(err)
	s.True(purged)
}
