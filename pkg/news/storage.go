package news

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Store persists articles in the news table. Reads join users so the
// author's display name comes back with each article.
type Store struct {
	db *sql.DB
}

// NewStore creates an article store on db
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectArticle = `
	SELECT n.id, n.title, n.body, n.author,
	       COALESCE(NULLIF(u.name, ''), n.author) AS nombre_autor,
	       n.kind, n.image_url, n.priority, n.event_date, n.created_at
	FROM news n
	LEFT JOIN users u ON n.author = u.username`

func scanArticle(row interface{ Scan(...interface{}) error }) (*Article, error) {
	a := &Article{}
	err := row.Scan(&a.ID, &a.Title, &a.Body, &a.Author, &a.AuthorName,
		&a.Kind, &a.ImageURL, &a.Priority, &a.EventDate, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List returns a page of articles, newest first
func (s *Store) List(ctx context.Context, limit, offset int) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx,
		selectArticle+` ORDER BY n.created_at DESC, n.id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	defer rows.Close()

	out := []Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate news: %w", err)
	}
	return out, nil
}

// Get returns article id
func (s *Store) Get(ctx context.Context, id int64) (*Article, error) {
	a, err := scanArticle(s.db.QueryRowContext(ctx, selectArticle+` WHERE n.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return a, nil
}

// Create inserts a and returns its id
func (s *Store) Create(ctx context.Context, a *Article) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO news (title, body, author, kind, image_url, priority, event_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		a.Title, a.Body, a.Author, string(a.Kind), a.ImageURL, a.Priority, a.EventDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create article: %w", err)
	}
	return id, nil
}

// Update applies the non-nil fields of req to article id
func (s *Store) Update(ctx context.Context, id int64, req UpdateRequest) error {
	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("title", req.Title)
	add("body", req.Body)
	add("image_url", req.ImageURL)

	if len(sets) == 0 {
		return ErrEmptyUpdate
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE news SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes article id
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM news WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
