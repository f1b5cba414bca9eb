package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecoverer(t *testing.T) {
	t.Run("panic becomes an error envelope", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		handler := chimw.RequestID(Recoverer(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("menu index out of range")
		})))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rights/menus", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		env := decodeEnvelope(t, w)
		assert.True(t, env.IsError)
		assert.Equal(t, http.StatusInternalServerError, env.Status)
		assert.Equal(t, "internal server error", env.Message)

		require.Equal(t, 1, logs.Len())
		fields := logs.All()[0].ContextMap()
		assert.Equal(t, "menu index out of range", fields["panic"])
		assert.Equal(t, "/api/v1/rights/menus", fields["path"])
		assert.NotEmpty(t, fields["request_id"])
		assert.NotEmpty(t, fields["stack"])
	})

	t.Run("no panic passes through", func(t *testing.T) {
		handler := Recoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusTeapot, w.Code)
	})

	t.Run("abort handler is re-raised", func(t *testing.T) {
		handler := Recoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		})
	})
}
