package catalogmanager

import (
	"net/http"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
)

var (
	ErrCatalog             apperrors.Error = apperrors.New("error in processing catalog").SetStatusCode(http.StatusInternalServerError)
	ErrNameConflict        apperrors.Error = ErrCatalog.New("name already in use").SetStatusCode(http.StatusConflict)
	ErrDependencyViolation apperrors.Error = ErrCatalog.New("relation has live dependents").SetExpandError(true).SetStatusCode(http.StatusConflict)
	ErrVersionConflict     apperrors.Error = ErrCatalog.New("stale table version").SetStatusCode(http.StatusConflict)
	ErrNotFound            apperrors.Error = ErrCatalog.New("object not found").SetStatusCode(http.StatusNotFound)
	ErrStoreUnavailable    apperrors.Error = ErrCatalog.New("catalog store commit failed").SetExpandError(true).SetStatusCode(http.StatusServiceUnavailable)
	ErrInconsistent        apperrors.Error = ErrCatalog.New("catalog invariant violation").SetExpandError(true).SetStatusCode(http.StatusInternalServerError)
	ErrInvalidArgument     apperrors.Error = ErrCatalog.New("invalid request").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrNotEmpty            apperrors.Error = ErrCatalog.New("namespace is not empty").SetStatusCode(http.StatusConflict)
)
