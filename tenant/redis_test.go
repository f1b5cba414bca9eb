package tenant

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/catering-erp/config"
	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/repositories"
	"go.uber.org/zap"
)

// setupRedisDirectoryTest starts miniredis and wraps dir with a RedisDirectory
func setupRedisDirectoryTest(t *testing.T, dir Directory) (*RedisDirectory, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedisClient(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisDirectory(client, dir, time.Minute, zap.NewNop()), mr
}

func TestNewRedisClient(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		_, err := NewRedisClient(context.Background(), config.RedisConfig{URL: "invalid://url"})
		assert.Error(t, err)
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		_, err = NewRedisClient(context.Background(), config.RedisConfig{URL: "redis://" + addr})
		assert.Error(t, err)
	})
}

func TestRedisDirectory_ReadThrough(t *testing.T) {
	ctx := context.Background()
	acme := models.NewTenant(3, "ACME", "Acme", "acme_db")

	dir := new(MockDirectory)
	dir.On("GetByUniqueCode", mock.Anything, "ACME").Return(acme, nil).Once()

	rd, mr := setupRedisDirectoryTest(t, dir)

	got, err := rd.GetByUniqueCode(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, "acme_db", got.DataStore)

	assert.True(t, mr.Exists("tenant:code:ACME"))
	assert.True(t, mr.Exists("tenant:id:3"))
	assert.Equal(t, time.Minute, mr.TTL("tenant:code:ACME"))

	// both keys served from redis now
	got, err = rd.GetByUniqueCode(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)

	got, err = rd.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "ACME", got.UniqueCode)

	dir.AssertExpectations(t)
	dir.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRedisDirectory_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()

	dir := new(MockDirectory)
	dir.On("GetByUniqueCode", mock.Anything, "NOPE").Return(nil, fmt.Errorf("code NOPE: %w", repositories.ErrNotFound)).Twice()

	rd, mr := setupRedisDirectoryTest(t, dir)

	for i := 0; i < 2; i++ {
		_, err := rd.GetByUniqueCode(ctx, "NOPE")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	}
	assert.False(t, mr.Exists("tenant:code:NOPE"))
	dir.AssertExpectations(t)
}

func TestRedisDirectory_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	acme := models.NewTenant(3, "ACME", "Acme", "acme_db")

	dir := new(MockDirectory)
	dir.On("GetByID", mock.Anything, int64(3)).Return(acme, nil).Once()

	rd, mr := setupRedisDirectoryTest(t, dir)
	require.NoError(t, mr.Set("tenant:id:3", "{not json"))

	got, err := rd.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "ACME", got.UniqueCode)
	dir.AssertExpectations(t)
}

func TestRedisDirectory_FallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	acme := models.NewTenant(3, "ACME", "Acme", "acme_db")

	dir := new(MockDirectory)
	dir.On("GetByID", mock.Anything, int64(3)).Return(acme, nil).Once()

	rd, mr := setupRedisDirectoryTest(t, dir)
	mr.Close()

	got, err := rd.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "ACME", got.UniqueCode)
	assert.Error(t, rd.Ping(ctx))
}
