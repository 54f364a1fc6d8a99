package helper

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	t.Run("Wrap error with trace", func(t *testing.T) {
		err := NewError("scan", errors.New("boom"))
		assert.EqualError(t, err, "scan: boom")
	})

	t.Run("Nil error stays nil", func(t *testing.T) {
		assert.NoError(t, NewError("scan", nil))
	})

	t.Run("Wrapped error is matched by errors.Is", func(t *testing.T) {
		err := NewError("select article", NewError("scan", sql.ErrNoRows))
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Equal(t, "select article: scan: sql: no rows in result set", err.Error())
	})

	t.Run("Wrapped error is matched by errors.As", func(t *testing.T) {
		err := NewError("outer", errors.New("inner"))
		var wrapped *Error
		assert.True(t, errors.As(err, &wrapped))
		assert.Equal(t, "outer", wrapped.Trace)
	})
}
