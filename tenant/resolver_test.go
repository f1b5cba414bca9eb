package tenant

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/repositories"
	"go.uber.org/zap"
)

// MockDirectory is a mock implementation of Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetByUniqueCode(ctx context.Context, code string) (*models.Tenant, error) {
	args := m.Called(ctx, code)
	if t := args.Get(0); t != nil {
		return t.(*models.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*models.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestContext(t *testing.T) {
	t.Run("defaults to control plane", func(t *testing.T) {
		c := FromContext(context.Background())
		assert.Equal(t, ControlPlane, c)
		assert.True(t, c.IsControlPlane())
	})

	t.Run("roundtrip", func(t *testing.T) {
		acme := models.NewTenant(3, "ACME", "Acme", "acme_db")
		ctx := WithContext(context.Background(), ContextFor(acme))

		c := FromContext(ctx)
		assert.Equal(t, int64(3), c.TenantID)
		assert.Equal(t, "ACME", c.UniqueCode)
		assert.Equal(t, "acme_db", c.DataStore)
		assert.False(t, c.IsControlPlane())
	})

	t.Run("reset to control plane", func(t *testing.T) {
		acme := models.NewTenant(3, "ACME", "Acme", "acme_db")
		ctx := WithContext(context.Background(), ContextFor(acme))
		ctx = WithContext(ctx, ControlPlane)

		assert.True(t, FromContext(ctx).IsControlPlane())
	})
}

func TestResolver_ByCode(t *testing.T) {
	ctx := context.Background()
	acme := models.NewTenant(3, "ACME", "Acme", "acme_db")

	t.Run("caches lookups", func(t *testing.T) {
		dir := new(MockDirectory)
		dir.On("GetByUniqueCode", ctx, "ACME").Return(acme, nil).Once()

		r := NewResolver(dir, ResolverConfig{Size: 8, TTL: time.Minute}, zap.NewNop())

		for i := 0; i < 3; i++ {
			got, err := r.ByCode(ctx, "ACME")
			require.NoError(t, err)
			assert.Equal(t, acme, got)
		}

		hits, misses := r.Stats()
		assert.Equal(t, uint64(2), hits)
		assert.Equal(t, uint64(1), misses)
		dir.AssertExpectations(t)
	})

	t.Run("code lookup warms id cache", func(t *testing.T) {
		dir := new(MockDirectory)
		dir.On("GetByUniqueCode", ctx, "ACME").Return(acme, nil).Once()

		r := NewResolver(dir, ResolverConfig{}, zap.NewNop())
		_, err := r.ByCode(ctx, " ACME ")
		require.NoError(t, err)

		got, err := r.ByID(ctx, 3)
		require.NoError(t, err)
		assert.True(t, got.Active)
		dir.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown code", func(t *testing.T) {
		dir := new(MockDirectory)
		dir.On("GetByUniqueCode", ctx, "NOPE").Return(nil, fmt.Errorf("code NOPE: %w", repositories.ErrNotFound))

		r := NewResolver(dir, ResolverConfig{}, zap.NewNop())
		_, err := r.ByCode(ctx, "NOPE")
		assert.ErrorIs(t, err, ErrUnresolvable)
	})

	t.Run("empty code never reaches directory", func(t *testing.T) {
		dir := new(MockDirectory)

		r := NewResolver(dir, ResolverConfig{}, zap.NewNop())
		_, err := r.ByCode(ctx, "  ")
		assert.ErrorIs(t, err, ErrUnresolvable)
		dir.AssertNotCalled(t, "GetByUniqueCode", mock.Anything, mock.Anything)
	})

	t.Run("directory failure is not unresolvable", func(t *testing.T) {
		dir := new(MockDirectory)
		dir.On("GetByUniqueCode", ctx, "ACME").Return(nil, errors.New("connection refused"))

		r := NewResolver(dir, ResolverConfig{}, zap.NewNop())
		_, err := r.ByCode(ctx, "ACME")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnresolvable)
	})
}

func TestResolver_ByID(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive tenant", func(t *testing.T) {
		dormant := models.NewTenant(5, "DORM", "Dormant", "dorm_db")
		dormant.Active = false

		dir := new(MockDirectory)
		dir.On("GetByID", ctx, int64(5)).Return(dormant, nil).Once()

		r := NewResolver(dir, ResolverConfig{}, zap.NewNop())
		got, err := r.ByID(ctx, 5)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	t.Run("invalid id", func(t *testing.T) {
		r := NewResolver(new(MockDirectory), ResolverConfig{}, zap.NewNop())
		_, err := r.ByID(ctx, 0)
		assert.ErrorIs(t, err, ErrUnresolvable)
	})

	t.Run("entries expire", func(t *testing.T) {
		acme := models.NewTenant(3, "ACME", "Acme", "acme_db")
		dir := new(MockDirectory)
		dir.On("GetByID", ctx, int64(3)).Return(acme, nil).Twice()

		r := NewResolver(dir, ResolverConfig{Size: 4, TTL: 20 * time.Millisecond}, zap.NewNop())
		_, err := r.ByID(ctx, 3)
		require.NoError(t, err)

		time.Sleep(60 * time.Millisecond)

		_, err = r.ByID(ctx, 3)
		require.NoError(t, err)
		dir.AssertExpectations(t)
	})
}
