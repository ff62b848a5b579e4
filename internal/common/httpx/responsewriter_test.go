package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseWriterTracksStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	assert.False(t, rw.Written())
	assert.Equal(t, http.StatusOK, rw.Status())

	rw.WriteHeader(http.StatusConflict)
	assert.True(t, rw.Written())
	assert.Equal(t, http.StatusConflict, rw.Status())

	// A later WriteHeader must not override the first.
	rw.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusConflict, rw.Status())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResponseWriterImplicitOK(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	_, err := rw.Write([]byte("body"))
	assert.NoError(t, err)
	assert.True(t, rw.Written())
	assert.Equal(t, http.StatusOK, rw.Status())
}
