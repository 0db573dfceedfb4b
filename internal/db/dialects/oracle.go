//go:build oracle
// +build oracle

package dialects

import (
	_ "github.com/godror/godror"

	"sqlviz/internal/db"
)

// oracle skips the schemas Oracle maintains itself.
var oracle = db.Queries{
	VersionSQL: `SELECT banner FROM v$version WHERE ROWNUM = 1`,
	ColumnsSQL: `
        SELECT col.owner, col.table_name, col.column_name, col.data_type,
               CASE WHEN col.nullable = 'Y' THEN 1 ELSE 0 END,
               CASE WHEN pk.column_name IS NULL THEN 0 ELSE 1 END
        FROM all_tab_columns col
        JOIN all_tables tab
          ON tab.owner = col.owner AND tab.table_name = col.table_name
        JOIN all_users u
          ON u.username = col.owner AND u.oracle_maintained = 'N'
        LEFT JOIN (
            SELECT cc.owner, cc.table_name, cc.column_name
            FROM all_constraints c
            JOIN all_cons_columns cc
              ON cc.owner = c.owner AND cc.constraint_name = c.constraint_name
            WHERE c.constraint_type = 'P') pk
          ON pk.owner = col.owner AND pk.table_name = col.table_name AND pk.column_name = col.column_name
        ORDER BY col.owner, col.table_name, col.column_id`,
	ForeignKeysSQL: `
        SELECT fc.owner, fc.table_name, fc.column_name,
               rc.owner, rc.table_name, rc.column_name,
               c.constraint_name
        FROM all_constraints c
        JOIN all_users u
          ON u.username = c.owner AND u.oracle_maintained = 'N'
        JOIN all_cons_columns fc
          ON fc.owner = c.owner AND fc.constraint_name = c.constraint_name
        JOIN all_cons_columns rc
          ON rc.owner = c.r_owner AND rc.constraint_name = c.r_constraint_name AND rc.position = fc.position
        WHERE c.constraint_type = 'R'
        ORDER BY fc.owner, fc.table_name, c.constraint_name, fc.position`,
}

func init() {
	db.Register("godror", oracle)
	db.Register("oracle", oracle)
}
