package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/LarsVonQualen/quick-api/internal/errs"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"no rows", sql.ErrNoRows, errs.IsNotFound},
		{"deadline", context.DeadlineExceeded, errs.IsIOFailure},
		{
			"invalid json text",
			&gomysql.MySQLError{Number: 3140, Message: "Invalid JSON text"},
			errs.IsMalformedData,
		},
		{
			"access denied",
			&gomysql.MySQLError{Number: 1045, Message: "Access denied"},
			errs.IsIOFailure,
		},
		{
			"other server error",
			&gomysql.MySQLError{Number: 1064, Message: "syntax error"},
			errs.IsIOFailure,
		},
		{"plain error", errors.New("boom"), errs.IsIOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapError(tt.err, "op failed")
			assert.True(t, tt.pred(mapped), "got %v", mapped)
			assert.ErrorIs(t, mapped, tt.err)
		})
	}

	assert.Nil(t, mapError(nil, "x"))
}
