package middleware

import (
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/dashboard-sync/internal/infrastructure/logging"
)

func TestRequestID(t *testing.T) {
	t.Run("generates an id and exposes it to logging", func(t *testing.T) {
		var seen string
		handler := RequestID(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			seen = logging.GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(stdhttp.MethodGet, "/health", nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		require.NotEmpty(t, seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.Equal(t, seen, recorder.Header().Get(RequestIDHeader))
	})

	t.Run("honors an inbound header", func(t *testing.T) {
		var seen string
		handler := RequestID(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			seen = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(stdhttp.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "upstream-123")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, "upstream-123", seen)
		assert.Equal(t, "upstream-123", recorder.Header().Get(RequestIDHeader))
	})
}
