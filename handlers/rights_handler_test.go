package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/catering-erp/files"
	"github.com/upb/catering-erp/middleware"
	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/services/rights"
	"go.uber.org/zap"
)

// MockRightsService is a mock implementation of RightsService
type MockRightsService struct {
	mock.Mock
}

func (m *MockRightsService) Menus(ctx context.Context, userID int64, sidebarOnly bool) ([]rights.MenuNode, error) {
	args := m.Called(ctx, userID, sidebarOnly)
	if n := args.Get(0); n != nil {
		return n.([]rights.MenuNode), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRightsService) Check(ctx context.Context, userID int64, req rights.Requirement) (bool, error) {
	args := m.Called(ctx, userID, req)
	return args.Bool(0), args.Error(1)
}

// MockLoginHistory is a mock implementation of LoginHistory
type MockLoginHistory struct {
	mock.Mock
}

func (m *MockLoginHistory) Recent(ctx context.Context, username string, limit int) ([]*models.LoginAttempt, error) {
	args := m.Called(ctx, username, limit)
	if a := args.Get(0); a != nil {
		return a.([]*models.LoginAttempt), args.Error(1)
	}
	return nil, args.Error(1)
}

func authed(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithPrincipal(r.Context(), &middleware.Principal{
		User: &models.User{
			ID:         7,
			Username:   "chef",
			Names:      map[string]string{"en": "Head Chef"},
			AvatarPath: "avatars/chef.png",
			Roles:      []string{"ADMIN"},
		},
		TenantID:   1,
		TenantCode: "ACME",
	}))
}

func TestRightsHandler_Menus(t *testing.T) {
	tree := []rights.MenuNode{{
		ID:  1,
		Key: "kitchen",
		Children: []rights.MenuNode{
			{ID: 2, Key: "kitchen.recipes"},
		},
	}}

	t.Run("menus", func(t *testing.T) {
		svc := new(MockRightsService)
		svc.On("Menus", mock.Anything, int64(7), false).Return(tree, nil)
		h := NewRightsHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleMenus(w, authed(httptest.NewRequest(http.MethodGet, "/api/v1/rights/menus", nil)))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeEnvelope(t, w).Body.([]interface{})
		require.Len(t, body, 1)
		node := body[0].(map[string]interface{})
		assert.Equal(t, "kitchen", node["key"])
		assert.Len(t, node["children"], 1)
	})

	t.Run("sidebar", func(t *testing.T) {
		svc := new(MockRightsService)
		svc.On("Menus", mock.Anything, int64(7), true).Return([]rights.MenuNode{}, nil)
		h := NewRightsHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleSidebar(w, authed(httptest.NewRequest(http.MethodGet, "/api/v1/rights/sidebar", nil)))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("anonymous", func(t *testing.T) {
		h := NewRightsHandler(new(MockRightsService), zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleMenus(w, httptest.NewRequest(http.MethodGet, "/api/v1/rights/menus", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("failure", func(t *testing.T) {
		svc := new(MockRightsService)
		svc.On("Menus", mock.Anything, int64(7), false).Return(nil, errors.New("db down"))
		h := NewRightsHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleMenus(w, authed(httptest.NewRequest(http.MethodGet, "/api/v1/rights/menus", nil)))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRightsHandler_Check(t *testing.T) {
	t.Run("parses requirement", func(t *testing.T) {
		svc := new(MockRightsService)
		want := rights.Requirement{
			Capabilities:  []string{"orders", "invoices"},
			Modes:         []rights.Mode{rights.ModeAdd, rights.ModeEdit},
			MatchAllModes: false,
			CheckAll:      true,
		}
		svc.On("Check", mock.Anything, int64(7), want).Return(true, nil)
		h := NewRightsHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCheck(w, authed(httptest.NewRequest(http.MethodGet,
			"/api/v1/rights/check?capability=orders,invoices&modes=add,edit&matchAll=false&checkAll=true", nil)))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeEnvelope(t, w).Body.(map[string]interface{})
		assert.Equal(t, true, body["allowed"])
		svc.AssertExpectations(t)
	})

	t.Run("defaults", func(t *testing.T) {
		svc := new(MockRightsService)
		want := rights.Requirement{Capabilities: []string{"orders"}, MatchAllModes: true}
		svc.On("Check", mock.Anything, int64(7), want).Return(false, nil)
		h := NewRightsHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCheck(w, authed(httptest.NewRequest(http.MethodGet, "/api/v1/rights/check?capability=orders", nil)))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeEnvelope(t, w).Body.(map[string]interface{})
		assert.Equal(t, false, body["allowed"])
	})

	t.Run("bad input", func(t *testing.T) {
		h := NewRightsHandler(new(MockRightsService), zap.NewNop())

		for _, target := range []string{
			"/api/v1/rights/check",
			"/api/v1/rights/check?capability=orders&modes=fly",
			"/api/v1/rights/check?capability=orders&matchAll=maybe",
		} {
			w := httptest.NewRecorder()
			h.HandleCheck(w, authed(httptest.NewRequest(http.MethodGet, target, nil)))
			assert.Equal(t, http.StatusBadRequest, w.Code, target)
		}
	})
}

func TestUserHandler(t *testing.T) {
	locator, err := files.NewURLLocator("https://files.test/media")
	require.NoError(t, err)

	t.Run("me", func(t *testing.T) {
		h := NewUserHandler(new(MockLoginHistory), locator, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleMe(w, authed(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeEnvelope(t, w).Body.(map[string]interface{})
		assert.Equal(t, "chef", body["username"])
		assert.Equal(t, "ACME", body["uniqueCode"])
		assert.Equal(t, "https://files.test/media/avatars/chef.png", body["avatarUrl"])
	})

	t.Run("login attempts", func(t *testing.T) {
		history := new(MockLoginHistory)
		uid := int64(7)
		history.On("Recent", mock.Anything, "chef", 5).Return([]*models.LoginAttempt{
			{Username: "chef", UserID: &uid, Success: true, Timestamp: time.Now()},
		}, nil)
		h := NewUserHandler(history, locator, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleLoginAttempts(w, authed(httptest.NewRequest(http.MethodGet, "/api/v1/me/login-attempts?limit=5", nil)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeEnvelope(t, w).Body, 1)
		history.AssertExpectations(t)
	})

	t.Run("bad limit", func(t *testing.T) {
		h := NewUserHandler(new(MockLoginHistory), locator, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleLoginAttempts(w, authed(httptest.NewRequest(http.MethodGet, "/api/v1/me/login-attempts?limit=-1", nil)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		h := NewUserHandler(new(MockLoginHistory), locator, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleMe(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
