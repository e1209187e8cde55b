// Package repository holds errors shared by the Postgres repositories.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrMissingColumn is returned when the database schema lags behind the
// code: the table exists but a referenced column does not.
var ErrMissingColumn = errors.New("database schema is missing a column")

// undefinedColumn is the SQLSTATE for "column does not exist".
const undefinedColumn = "42703"

// MapError converts driver errors that callers branch on into sentinel
// errors. op prefixes the message, other errors are only wrapped.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if IsMissingColumn(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrMissingColumn, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// IsMissingColumn reports whether err is an undefined-column error, either
// from Postgres directly or relayed by PostgREST as PGRST204.
func IsMissingColumn(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == undefinedColumn
	}

	return strings.Contains(err.Error(), "PGRST204")
}
