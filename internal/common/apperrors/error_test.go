package apperrors

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	ErrBase := New("base error")
	assert.Equal(t, "base error", ErrBase.Error())
	assert.ErrorIs(t, ErrBase, ErrBase)

	ErrChild := ErrBase.New("child error")
	assert.Equal(t, "child error", ErrChild.Error())
	assert.ErrorIs(t, ErrChild, ErrBase)

	ErrOther := New("other error")
	wrapped := ErrChild.Err(ErrOther)
	assert.Equal(t, "child error", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrBase)
	assert.ErrorIs(t, wrapped, ErrChild)
	assert.ErrorIs(t, wrapped, ErrOther)

	cause := errors.New("io failure")
	wrapped = ErrChild.MsgErr("commit failed", cause)
	assert.Equal(t, "commit failed", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrChild)
	assert.ErrorIs(t, wrapped, cause)
}

func TestErrorDerivationDoesNotMutateSentinel(t *testing.T) {
	ErrBase := New("base error").SetStatusCode(http.StatusConflict)
	derived := ErrBase.Msg("table t1 already exists")
	assert.Equal(t, "base error", ErrBase.Error())
	assert.Equal(t, "table t1 already exists", derived.Error())
	assert.Equal(t, http.StatusConflict, derived.StatusCode())
	assert.ErrorIs(t, derived, ErrBase)
}

func TestErrorAll(t *testing.T) {
	ErrBase := New("store error").SetExpandError(true)
	err := ErrBase.Err(errors.New("disk full"), errors.New("wal sync failed"))
	assert.Equal(t, "store error: disk full; wal sync failed", err.ErrorAll())
	assert.Equal(t, "store error", err.Error())
}
