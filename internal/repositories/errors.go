package repositories

import (
	"database/sql"
	"database/sql/driver"
	"net"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"chatroom-service/internal/apperr"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqConnectionClass     = "08"
	pqAdminShutdown       = "57P01"
)

// mapError translates driver errors into apperr kinds and adds op context.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(apperr.ErrNotFound, op)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == pqUniqueViolation:
			return errors.Wrapf(apperr.ErrConflict, "%s: %s", op, pqErr.Constraint)
		case pqErr.Code == pqForeignKeyViolation:
			return errors.Wrapf(apperr.ErrNotFound, "%s: %s", op, pqErr.Constraint)
		case pqErr.Code.Class() == pqConnectionClass, pqErr.Code == pqAdminShutdown:
			return errors.Wrapf(apperr.ErrUnavailable, "%s: %v", op, err)
		}
		return errors.Wrap(err, op)
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return errors.Wrapf(apperr.ErrUnavailable, "%s: %v", op, err)
	}
	return errors.Wrap(err, op)
}
