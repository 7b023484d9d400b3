package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/noticias/pkg/rbac"
	"github.com/platinummonkey/noticias/pkg/storage"
)

// Store persists users in the users table
type Store struct {
	db      *sql.DB
	dialect storage.Dialect
}

// NewStore creates a user store on db
func NewStore(db *sql.DB, dialect storage.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

const userColumns = `id, username, name, email, role, created_at`

func scanUser(row interface{ Scan(...interface{}) error }, withHash bool) (*User, error) {
	u := &User{}
	dest := []interface{}{&u.ID, &u.Username, &u.Name, &u.Email, &u.Role, &u.CreatedAt}
	if withHash {
		dest = append(dest, &u.PasswordHash)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts u and fills its ID and CreatedAt
func (s *Store) Create(ctx context.Context, u *User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, name, email, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.Name, u.Email, u.Role,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Exists reports whether username is taken
func (s *Store) Exists(ctx context.Context, username string) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	return true, nil
}

// GetByUsername returns the user including its password hash
func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE username = $1`, username)
	u, err := scanUser(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByID returns the user with id
func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// List returns every user, newest first
func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return out, nil
}

// UpdateRole sets the role of user id
func (s *Store) UpdateRole(ctx context.Context, id int64, role string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes user id. Removing the only remaining superadmin fails
// with ErrLastSuperadmin. The superadmin rows stay locked from the count
// until commit, so concurrent deletes cannot both pass the check.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var role string
	err = tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if role == string(rbac.RoleSuperAdmin) {
		total, err := s.lockRole(ctx, tx, rbac.RoleSuperAdmin)
		if err != nil {
			return err
		}
		if total <= 1 {
			return ErrLastSuperadmin
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return tx.Commit()
}

// lockRole locks every user holding role and returns how many there are
func (s *Store) lockRole(ctx context.Context, tx *sql.Tx, role rbac.Role) (int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM users WHERE role = $1`+s.dialect.ForUpdate(), string(role))
	if err != nil {
		return 0, fmt.Errorf("failed to lock %s users: %w", role, err)
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		total++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to count %s users: %w", role, err)
	}
	return total, nil
}
