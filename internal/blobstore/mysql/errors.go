package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/LarsVonQualen/quick-api/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errAccessDenied    = 1045
	errUnknownDatabase = 1049
	errInvalidJSONText = 3140
)

// mapError converts a MySQL driver error into a *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindIOFailure, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errInvalidJSONText:
			// The JSON column rejected the contents
			return errs.Wrap(errs.ErrKindMalformedData,
				fmt.Sprintf("%s: %s", msg, mysqlErr.Message), err)
		case errAccessDenied, errUnknownDatabase:
			return errs.Wrap(errs.ErrKindIOFailure,
				fmt.Sprintf("%s: connection error: %s", msg, mysqlErr.Message), err)
		}
		return errs.Wrap(errs.ErrKindIOFailure,
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindIOFailure, msg, err)
}
