package dialects

import "sqlviz/internal/db"

// postgres reads information_schema for columns and pg_constraint for
// foreign keys, so composite keys come back one row per column pair.
var postgres = db.Queries{
	VersionSQL: `SELECT version()`,
	ColumnsSQL: `
        SELECT c.table_schema, c.table_name, c.column_name, c.data_type,
               c.is_nullable = 'YES',
               EXISTS (
                 SELECT 1
                 FROM information_schema.table_constraints tc
                 JOIN information_schema.key_column_usage k
                   ON k.constraint_name = tc.constraint_name
                  AND k.constraint_schema = tc.constraint_schema
                 WHERE tc.constraint_type = 'PRIMARY KEY'
                   AND k.table_schema = c.table_schema
                   AND k.table_name = c.table_name
                   AND k.column_name = c.column_name)
        FROM information_schema.columns c
        JOIN information_schema.tables t
          ON t.table_schema = c.table_schema AND t.table_name = c.table_name
        WHERE t.table_type = 'BASE TABLE'
          AND c.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
        ORDER BY c.table_schema, c.table_name, c.ordinal_position`,
	ForeignKeysSQL: `
        SELECT ns.nspname, cl.relname, a.attname,
               rns.nspname, rcl.relname, ra.attname,
               con.conname
        FROM pg_constraint con
        JOIN pg_class cl ON cl.oid = con.conrelid
        JOIN pg_namespace ns ON ns.oid = cl.relnamespace
        JOIN pg_class rcl ON rcl.oid = con.confrelid
        JOIN pg_namespace rns ON rns.oid = rcl.relnamespace
        CROSS JOIN LATERAL unnest(con.conkey, con.confkey) AS k(col, refcol)
        JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.col
        JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refcol
        WHERE con.contype = 'f'
        ORDER BY ns.nspname, cl.relname, con.conname`,
}

func init() {
	db.Register("postgres", postgres)
	db.Register("postgresql", postgres)
}
