package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/formulary/internal/errors"
)

// storageErr wraps a driver error as a STORAGE error. Unique constraint
// violations are tagged in Details; the driver message names the column.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	appErr := errors.NewStorage(err)
	if isUniqueConstraintError(err) {
		appErr.Details = map[string]any{"constraint": "unique"}
	}
	return appErr
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// stamp returns t as unix milliseconds, using the current time when t is zero.
func stamp(t time.Time) (time.Time, int64) {
	if t.IsZero() {
		t = time.Now()
	}
	t = t.UTC().Truncate(time.Millisecond)
	return t, t.UnixMilli()
}

// fromMillis converts a stored timestamp back to UTC time.
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
