//go:build integration

package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/application/inventory"
	"github.com/jhoicas/suministros-api/internal/infrastructure/cache"
)

type RedisCacheSuite struct {
	suite.Suite
	ctx       context.Context
	container testcontainers.Container
	cache     *cache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.ctx = context.Background()
	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(s.ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(s.ctx, "6379")
	s.Require().NoError(err)

	s.cache = cache.NewRedisCache(fmt.Sprintf("redis://%s:%s", host, port.Port()), "", 0)
	s.Require().NoError(s.cache.Ping(s.ctx))
}

func (s *RedisCacheSuite) TearDownSuite() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RedisCacheSuite) TestGetSetDelete() {
	var out dto.StatisticsResponse
	hit, err := s.cache.Get(s.ctx, inventory.CacheKeyStatistics, &out)
	s.Require().NoError(err)
	s.False(hit)

	in := dto.StatisticsResponse{TotalItems: 3, TotalLocations: 2, LowStockCount: 1}
	s.Require().NoError(s.cache.Set(s.ctx, inventory.CacheKeyStatistics, in, time.Minute))

	hit, err = s.cache.Get(s.ctx, inventory.CacheKeyStatistics, &out)
	s.Require().NoError(err)
	s.True(hit)
	s.Equal(3, out.TotalItems)
	s.Equal(1, out.LowStockCount)

	s.Require().NoError(s.cache.Delete(s.ctx, inventory.CacheKeyStatistics, inventory.CacheKeyLowStock))
	hit, err = s.cache.Get(s.ctx, inventory.CacheKeyStatistics, &out)
	s.Require().NoError(err)
	s.False(hit)
}

func (s *RedisCacheSuite) TestSet_ExpiraConTTL() {
	s.Require().NoError(s.cache.Set(s.ctx, "ttl", map[string]int{"a": 1}, 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)
	var out map[string]int
	hit, err := s.cache.Get(s.ctx, "ttl", &out)
	s.Require().NoError(err)
	s.False(hit)
}
