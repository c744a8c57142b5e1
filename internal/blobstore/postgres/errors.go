package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/LarsVonQualen/quick-api/internal/errs"
)

// PostgreSQL SQLSTATE class prefixes
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassDataException = "22" // data exceptions, including invalid JSON text
)

// mapError translates pgx / pgconn native errors into a *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline exceeded
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindIOFailure, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindIOFailure
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == pgClassDataException {
			// jsonb rejected the contents
			kind = errs.ErrKindMalformedData
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindIOFailure, msg, err)
}
