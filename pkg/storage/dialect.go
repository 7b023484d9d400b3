package storage

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// Dialect selects the DDL variant used by Migrate. Queries use $n
// placeholders in ascending order, which both drivers accept.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// DriverName returns the database/sql driver name for d
func (d Dialect) DriverName() string {
	return string(d)
}

// ForUpdate returns the row locking suffix for a SELECT inside a
// transaction. SQLite locks the whole database on write and has none.
func (d Dialect) ForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint error
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err came from a unique constraint
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
