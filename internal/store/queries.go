package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Query is a saved SQL text.
type Query struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title" validate:"required,max=200"`
	Query       string     `json:"query" validate:"required"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

const queryColumns = `id, title, query, description, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuery(row rowScanner) (Query, error) {
	var q Query
	var created, updated string
	var deleted sql.NullString
	if err := row.Scan(&q.ID, &q.Title, &q.Query, &q.Description, &created, &updated, &deleted); err != nil {
		return Query{}, err
	}
	var err error
	if q.CreatedAt, err = parseTime(created); err != nil {
		return Query{}, fmt.Errorf("query %d created_at: %w", q.ID, err)
	}
	if q.UpdatedAt, err = parseTime(updated); err != nil {
		return Query{}, fmt.Errorf("query %d updated_at: %w", q.ID, err)
	}
	if deleted.Valid {
		at, err := parseTime(deleted.String)
		if err != nil {
			return Query{}, fmt.Errorf("query %d deleted_at: %w", q.ID, err)
		}
		q.DeletedAt = &at
	}
	return q, nil
}

// CreateQuery saves q and returns it with its id and timestamps.
func (s *Store) CreateQuery(ctx context.Context, q Query) (Query, error) {
	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (title, query, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		q.Title, q.Query, q.Description, now, now)
	if err != nil {
		return Query{}, fmt.Errorf("failed to create query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Query{}, fmt.Errorf("failed to create query: %w", err)
	}
	return s.GetQuery(ctx, id)
}

// GetQuery returns the query with id, including a trashed one.
func (s *Store) GetQuery(ctx context.Context, id int64) (Query, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+queryColumns+` FROM queries WHERE id = ?`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Query{}, fmt.Errorf("query %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Query{}, fmt.Errorf("failed to get query %d: %w", id, err)
	}
	return q, nil
}

// ListQueries returns saved queries, oldest first. Trashed queries are
// included only when withTrashed is set.
func (s *Store) ListQueries(ctx context.Context, withTrashed bool) ([]Query, error) {
	stmt := `SELECT ` + queryColumns + ` FROM queries`
	if !withTrashed {
		stmt += ` WHERE deleted_at IS NULL`
	}
	stmt += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	queries := []Query{}
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// UpdateQuery replaces the title, text and description of a live query.
func (s *Store) UpdateQuery(ctx context.Context, id int64, q Query) (Query, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queries SET title = ?, query = ?, description = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		q.Title, q.Query, q.Description, s.stamp(), id)
	if err != nil {
		return Query{}, fmt.Errorf("failed to update query %d: %w", id, err)
	}
	if err := affectedOne(res, id); err != nil {
		return Query{}, err
	}
	return s.GetQuery(ctx, id)
}

// DeleteQuery moves a query to the trash. Deleting a trashed query is an error.
func (s *Store) DeleteQuery(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queries SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, s.stamp(), id)
	if err != nil {
		return fmt.Errorf("failed to delete query %d: %w", id, err)
	}
	return affectedOne(res, id)
}

// RestoreQuery takes a query out of the trash.
func (s *Store) RestoreQuery(ctx context.Context, id int64) (Query, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queries SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL`, s.stamp(), id)
	if err != nil {
		return Query{}, fmt.Errorf("failed to restore query %d: %w", id, err)
	}
	if err := affectedOne(res, id); err != nil {
		return Query{}, err
	}
	return s.GetQuery(ctx, id)
}

func affectedOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("query %d: %w", id, ErrNotFound)
	}
	return nil
}
