package dialects

import "sqlviz/internal/db"

var mssql = db.Queries{
	VersionSQL: `SELECT @@VERSION`,
	ColumnsSQL: `
        SELECT s.name, t.name, c.name, ty.name,
               CAST(c.is_nullable AS bit),
               CAST(CASE WHEN ic.column_id IS NULL THEN 0 ELSE 1 END AS bit)
        FROM sys.tables t
        JOIN sys.schemas s ON s.schema_id = t.schema_id
        JOIN sys.columns c ON c.object_id = t.object_id
        JOIN sys.types ty ON ty.user_type_id = c.user_type_id
        LEFT JOIN sys.indexes i
          ON i.object_id = t.object_id AND i.is_primary_key = 1
        LEFT JOIN sys.index_columns ic
          ON ic.object_id = i.object_id AND ic.index_id = i.index_id AND ic.column_id = c.column_id
        ORDER BY s.name, t.name, c.column_id`,
	ForeignKeysSQL: `
        SELECT fs.name, ft.name, fc.name,
               ts.name, tt.name, tc.name,
               fk.name
        FROM sys.foreign_key_columns fkc
        JOIN sys.foreign_keys fk ON fk.object_id = fkc.constraint_object_id
        JOIN sys.tables ft ON ft.object_id = fkc.parent_object_id
        JOIN sys.schemas fs ON fs.schema_id = ft.schema_id
        JOIN sys.columns fc ON fc.object_id = fkc.parent_object_id AND fc.column_id = fkc.parent_column_id
        JOIN sys.tables tt ON tt.object_id = fkc.referenced_object_id
        JOIN sys.schemas ts ON ts.schema_id = tt.schema_id
        JOIN sys.columns tc ON tc.object_id = fkc.referenced_object_id AND tc.column_id = fkc.referenced_column_id
        ORDER BY fs.name, ft.name, fk.name, fkc.constraint_column_id`,
}

func init() {
	db.Register("sqlserver", mssql)
	db.Register("mssql", mssql)
}
