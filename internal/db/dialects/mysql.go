package dialects

import "sqlviz/internal/db"

var mysql = db.Queries{
	VersionSQL: `SELECT VERSION()`,
	ColumnsSQL: `
        SELECT c.table_schema, c.table_name, c.column_name, c.column_type,
               c.is_nullable = 'YES', c.column_key = 'PRI'
        FROM information_schema.columns c
        JOIN information_schema.tables t
          ON t.table_schema = c.table_schema AND t.table_name = c.table_name
        WHERE t.table_type = 'BASE TABLE'
          AND c.table_schema NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
        ORDER BY c.table_schema, c.table_name, c.ordinal_position`,
	ForeignKeysSQL: `
        SELECT table_schema, table_name, column_name,
               referenced_table_schema, referenced_table_name, referenced_column_name,
               constraint_name
        FROM information_schema.key_column_usage
        WHERE referenced_table_name IS NOT NULL
          AND table_schema NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
        ORDER BY table_schema, table_name, constraint_name, ordinal_position`,
}

func init() {
	db.Register("mysql", mysql)
	db.Register("mariadb", mysql)
}
