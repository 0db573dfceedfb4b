package dialects

import "sqlviz/internal/db"

// sqlite joins sqlite_master against the pragma table-valued functions.
// The schema column is left empty.
var sqlite = db.Queries{
	VersionSQL: `SELECT sqlite_version()`,
	ColumnsSQL: `
        SELECT '', m.name, p.name, p.type, p."notnull" = 0, p.pk > 0
        FROM sqlite_master m
        JOIN pragma_table_info(m.name) p
        WHERE m.type = 'table'
          AND m.name NOT LIKE 'sqlite_%'
        ORDER BY m.name, p.cid`,
	ForeignKeysSQL: `
        SELECT '', m.name, f."from", '', f."table", f."to", ''
        FROM sqlite_master m
        JOIN pragma_foreign_key_list(m.name) f
        WHERE m.type = 'table'
          AND m.name NOT LIKE 'sqlite_%'
        ORDER BY m.name, f.id, f.seq`,
}

func init() {
	db.Register("sqlite3", sqlite)
	db.Register("sqlite", sqlite)
}
