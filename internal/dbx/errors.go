package dbx

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/imagevault/internal/common"
)

// WrapErr classifies a driver error for the repositories. Connectivity
// failures become common.ErrStoreUnavailable, which the session reports to
// the client as retryable; everything else stays an opaque internal db
// error.
func WrapErr(err error) error {
	if isTransient(err) {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("db error: %w", err)
}

// isTransient reports whether err looks like the store being unreachable
// rather than the query being wrong.
func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
