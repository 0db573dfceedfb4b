package db

import (
	"context"
	"database/sql"
	"fmt"

	"sqlviz/internal/catalog"
	"sqlviz/internal/logger"
)

// Queries is a Dialect expressed as three catalog queries.
//
// ColumnsSQL must return schema, table, column, type, nullable, primary key
// ordered by table then column position. ForeignKeysSQL must return
// from schema, from table, from column, to schema, to table, to column and
// constraint name, one row per column pair; it may be empty.
type Queries struct {
	VersionSQL     string
	ColumnsSQL     string
	ForeignKeysSQL string
}

func (q Queries) Version(ctx context.Context, dbConn *sql.DB) (string, error) {
	var v string
	if err := dbConn.QueryRowContext(ctx, q.VersionSQL).Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}

func (q Queries) Scan(ctx context.Context, dbConn *sql.DB, b *catalog.Builder) error {
	cr, err := dbConn.QueryContext(ctx, q.ColumnsSQL)
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer cr.Close()
	for cr.Next() {
		var schema, table sql.NullString
		var col catalog.Column
		if err := cr.Scan(&schema, &table, &col.Name, &col.Type, &col.Nullable, &col.PrimaryKey); err != nil {
			return fmt.Errorf("scan column row: %w", err)
		}
		b.AddColumn(schema.String, table.String, col)
	}
	if err := cr.Err(); err != nil {
		return fmt.Errorf("read columns: %w", err)
	}

	if q.ForeignKeysSQL == "" {
		return nil
	}
	// foreign keys are best effort; some servers restrict the views
	fkr, err := dbConn.QueryContext(ctx, q.ForeignKeysSQL)
	if err != nil {
		logger.Error("query foreign keys: %v", err)
		return nil
	}
	defer fkr.Close()
	for fkr.Next() {
		var fromSchema, toSchema, constraint sql.NullString
		var fk catalog.ForeignKey
		if err := fkr.Scan(&fromSchema, &fk.FromTable, &fk.FromColumn, &toSchema, &fk.ToTable, &fk.ToColumn, &constraint); err != nil {
			logger.Error("scan foreign key: %v", err)
			continue
		}
		fk.FromSchema, fk.ToSchema, fk.Constraint = fromSchema.String, toSchema.String, constraint.String
		b.AddForeignKey(fk)
	}
	return nil
}
