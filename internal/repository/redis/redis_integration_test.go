//go:build integration

package redis_test

import (
	"context"
	"errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/repository/redis"
)

type StoreSuite struct {
	suite.Suite
	container testcontainers.Container
	client    *goredis.Client
	store     *redis.Store
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	url, err := container.ConnectionString(ctx)
	s.Require().NoError(err)

	opts, err := goredis.ParseURL(url)
	s.Require().NoError(err)
	s.client = goredis.NewClient(opts)
	s.Require().NoError(s.client.Ping(ctx).Err())

	s.store = redis.New(s.client)
}

func (s *StoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *StoreSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func (s *StoreSuite) TestSetGet() {
	ctx := context.Background()

	s.Require().NoError(s.store.Set(ctx, "favorites_42", `[{"code":"JPN"}]`))

	got, err := s.store.Get(ctx, "favorites_42")
	s.Require().NoError(err)
	s.Equal(`[{"code":"JPN"}]`, got)
}

func (s *StoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "favorites_none")
	s.True(errors.Is(err, apperror.ErrNotFound))
}

func (s *StoreSuite) TestDelete() {
	ctx := context.Background()

	s.Require().NoError(s.store.Set(ctx, "auth_token", "tok"))
	s.Require().NoError(s.store.Delete(ctx, "auth_token"))

	_, err := s.store.Get(ctx, "auth_token")
	s.True(errors.Is(err, apperror.ErrNotFound))

	// Deleting again is a no-op.
	s.NoError(s.store.Delete(ctx, "auth_token"))
}

func (s *StoreSuite) TestKeysArePrefixed() {
	ctx := context.Background()

	s.Require().NoError(s.store.Set(ctx, "favorites_7", "[]"))

	raw, err := s.client.Get(ctx, "country-explorer:favorites_7").Result()
	s.Require().NoError(err)
	s.Equal("[]", raw)
}
