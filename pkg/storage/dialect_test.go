package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"postgres unique", &pq.Error{Code: "23505"}, true},
		{"wrapped postgres unique", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"postgres other", &pq.Error{Code: "23503"}, false},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.username"), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestDialect_DriverName(t *testing.T) {
	assert.Equal(t, "postgres", Postgres.DriverName())
	assert.Equal(t, "sqlite3", SQLite.DriverName())
}

func TestDialect_ForUpdate(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", Postgres.ForUpdate())
	assert.Empty(t, SQLite.ForUpdate())
}
