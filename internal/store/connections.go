package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sqlviz/internal/catalog"
	"sqlviz/pkg/config"
)

// GetConnection returns the saved connection. ok is false when none was saved.
func (s *Store) GetConnection(ctx context.Context) (cfg config.DBConfig, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT type, host, port, username, password, database_name, dsn FROM database_connections WHERE id = 1`).
		Scan(&cfg.Type, &cfg.Host, &cfg.Port, &cfg.Username, &cfg.Password, &cfg.DatabaseName, &cfg.DSN)
	if errors.Is(err, sql.ErrNoRows) {
		return config.DBConfig{}, false, nil
	}
	if err != nil {
		return config.DBConfig{}, false, fmt.Errorf("failed to get connection: %w", err)
	}
	return cfg, true, nil
}

// SaveConnection creates or replaces the saved connection.
func (s *Store) SaveConnection(ctx context.Context, cfg config.DBConfig) error {
	now := s.stamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO database_connections (id, type, host, port, username, password, database_name, dsn, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			type = excluded.type,
			host = excluded.host,
			port = excluded.port,
			username = excluded.username,
			password = excluded.password,
			database_name = excluded.database_name,
			dsn = excluded.dsn,
			updated_at = excluded.updated_at`,
		cfg.Type, cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DatabaseName, cfg.DSN, now, now)
	if err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

// SaveCatalog records a structure snapshot.
func (s *Store) SaveCatalog(ctx context.Context, c catalog.Catalog) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode structure: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO database_structure (driver, structure, created_at) VALUES (?, ?, ?)`,
		c.Driver, string(body), s.stamp()); err != nil {
		return fmt.Errorf("failed to save structure: %w", err)
	}
	return nil
}

// LatestCatalog returns the most recent snapshot. ok is false when there is none.
func (s *Store) LatestCatalog(ctx context.Context) (c catalog.Catalog, ok bool, err error) {
	var body string
	err = s.db.QueryRowContext(ctx,
		`SELECT structure FROM database_structure ORDER BY id DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Catalog{}, false, nil
	}
	if err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("failed to get structure: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("failed to decode structure: %w", err)
	}
	return c, true, nil
}
