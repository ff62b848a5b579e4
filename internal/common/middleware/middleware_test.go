package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhouse/streamhouse/internal/common/httpx"
)

func TestRequestLoggerCapturesStatus(t *testing.T) {
	var seen int
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww, ok := w.(*httpx.ResponseWriter)
		require.True(t, ok, "handler should receive the wrapping writer")
		w.WriteHeader(http.StatusTeapot)
		seen = ww.Status()
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/databases", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, http.StatusTeapot, seen)
	assert.NotEmpty(t, rec.Header().Get("X-Streamhouse-Request-ID"))
}

func TestRequestLoggerDefaultsStatusOK(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("ok"))
		require.NoError(t, err)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPanicHandlerReturnsServerError(t *testing.T) {
	h := PanicHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tables", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
