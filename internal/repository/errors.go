// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between different failure
// scenarios. For example, ErrForbidden indicates that the current user
// is not authorized to operate on a resource owned by someone else,
// while ErrBookingNotFound maps to an HTTP 404.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrBusNotFound indicates that a bus lookup yielded no rows.
var ErrBusNotFound = errors.New("bus not found")

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrBookingNotFound indicates that a booking lookup yielded no rows.
var ErrBookingNotFound = errors.New("booking not found")

// ErrNoChange indicates an UPDATE attempted to set fields equal to
// current values.
var ErrNoChange = errors.New("no change")

// ErrEmailExists is returned when registering with an email that is
// already taken. Handlers translate it into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrRefreshInvalid covers every way a refresh token can fail
// validation: unknown, revoked, or expired. Handlers respond 401
// without distinguishing the cases.
var ErrRefreshInvalid = errors.New("invalid refresh token")

// IsDuplicateKey reports whether err is a MySQL duplicate-entry error
// (code 1062), raised when an insert collides with a unique index.
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
