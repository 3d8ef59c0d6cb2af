package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a referenced resource does not exist.
var ErrNotFound = errors.New("resource not found")

// IsUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
