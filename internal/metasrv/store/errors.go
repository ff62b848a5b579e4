package store

import (
	"net/http"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
)

var (
	ErrStore            apperrors.Error = apperrors.New("catalog store error").SetStatusCode(http.StatusInternalServerError)
	ErrStoreUnavailable apperrors.Error = ErrStore.New("catalog store unavailable").SetExpandError(true).SetStatusCode(http.StatusServiceUnavailable)
	ErrStoreClosed      apperrors.Error = ErrStore.New("catalog store closed").SetStatusCode(http.StatusServiceUnavailable)
	ErrCorruptedKey     apperrors.Error = ErrStore.New("corrupted store key").SetStatusCode(http.StatusInternalServerError)
	ErrCorruptedValue   apperrors.Error = ErrStore.New("corrupted store value").SetExpandError(true).SetStatusCode(http.StatusInternalServerError)
)
