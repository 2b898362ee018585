package postgres

import (
	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// Classify tags a driver error with an apperr kind: no rows is NotFound,
// timeouts and errors that never reached the server are Transient.
func Classify(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperr.Wrap(apperr.ErrNotFound, err, op)
	case pgconn.Timeout(err) || pgconn.SafeToRetry(err):
		return apperr.Wrap(apperr.ErrTransient, errors.WithStack(err), op)
	}
	return apperr.Classify(errors.WithStack(err), op)
}
