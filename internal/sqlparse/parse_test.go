package sqlparse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnNames(cols []*Column) []string {
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names
}

func tableNames(tables []*Table) []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	return names
}

func TestParse_Empty(t *testing.T) {
	for _, sql := range []string{"", "   ", "\n\t"} {
		r := Parse(sql)
		require.NotNil(t, r)
		assert.ErrorIs(t, r.Err, ErrEmptyInput)
		assert.Equal(t, "Empty SQL query", r.Diagnostic())
		assert.Empty(t, r.Tables)
		assert.Empty(t, r.Columns)
		assert.Empty(t, r.Joins)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		sql  string
		want Kind
	}{
		{"SELECT 1 FROM t", KindSelect},
		{"select a from t", KindSelect},
		{"  insert into t values (1)", KindInsert},
		{"UPDATE t SET a = 1", KindUpdate},
		{"delete from t", KindDelete},
		{"CREATE TABLE t (id int)", KindOther},
		{"SELECTED", KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectKind(tt.sql))
		})
	}
}

func TestParse_UpdateDeleteNotDecomposed(t *testing.T) {
	for sql, kind := range map[string]Kind{
		"UPDATE users SET name = 'x' WHERE users.id = 1": KindUpdate,
		"DELETE FROM users WHERE users.id = 1":           KindDelete,
		"TRUNCATE users":                                 KindOther,
	} {
		r := Parse(sql)
		assert.Equal(t, kind, r.Kind)
		assert.NoError(t, r.Err)
		assert.Empty(t, r.Tables)
		assert.Nil(t, r.MainTable)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT  a,b\nFROM   t", "SELECT a , b FROM t"},
		{"  SELECT a ,  b FROM t  ", "SELECT a , b FROM t"},
		{"VALUES ('x,y',  2)", "VALUES ('x,y' , 2)"},
		{"VALUES ('a  b\nc')", "VALUES ('a  b\nc')"},
		{"VALUES ('it''s', 1)", "VALUES ('it''s' , 1)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize(tt.in))
	}
}

func TestParse_SimpleSelect(t *testing.T) {
	r := Parse("SELECT a, b FROM t")
	require.NoError(t, r.Err)
	assert.Equal(t, KindSelect, r.Kind)
	require.Len(t, r.Tables, 1)

	tbl := r.Tables[0]
	assert.Equal(t, "t", tbl.Name)
	assert.Equal(t, "t", tbl.Alias)
	assert.Same(t, tbl, r.MainTable)
	assert.Equal(t, []string{"a", "b"}, columnNames(tbl.Columns))
	assert.Equal(t, []string{"a", "b"}, columnNames(r.SelectedColumns))
	for _, c := range r.SelectedColumns {
		assert.True(t, c.IsSelected)
		assert.Equal(t, "t", c.Table)
	}
}

func TestParse_SelectStar(t *testing.T) {
	r := Parse("SELECT * FROM t")
	require.NoError(t, r.Err)
	require.Len(t, r.Tables, 1)

	tbl := r.Tables[0]
	assert.Equal(t, []string{"id", "name", "created_at"}, columnNames(tbl.Columns))
	require.Len(t, r.SelectedColumns, len(tbl.Columns))
	for i := range tbl.Columns {
		assert.Same(t, tbl.Columns[i], r.SelectedColumns[i])
	}
	assert.True(t, tbl.Columns[0].IsPrimaryKey)
	assert.False(t, tbl.Columns[1].IsPrimaryKey)
}

func TestParse_StarExpandsAfterJoinsAndWhere(t *testing.T) {
	r := Parse("SELECT * FROM users u JOIN orders o ON u.id = o.user_id WHERE o.status = 'open'")
	require.NoError(t, r.Err)
	assert.Equal(t, []string{"users", "orders"}, tableNames(r.Tables))
	assert.Equal(t, []string{"id", "user_id", "status"}, columnNames(r.SelectedColumns))
}

func TestParse_QualifiedStar(t *testing.T) {
	r := Parse("SELECT o.*, u.name FROM users u JOIN orders o ON u.id = o.user_id")
	require.NoError(t, r.Err)
	assert.Equal(t, []string{"user_id", "name"}, columnNames(r.SelectedColumns))
}

func TestParse_AliasesAndQualifiedColumns(t *testing.T) {
	r := Parse("SELECT u.id, u.email AS mail, o.total FROM users AS u INNER JOIN orders o ON o.user_id = u.id")
	require.NoError(t, r.Err)

	users := r.Table("u")
	require.NotNil(t, users)
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, "u", users.Alias)
	assert.Equal(t, []string{"id", "email"}, columnNames(users.Columns))
	assert.Equal(t, "mail", users.Column("email").Alias)

	orders := r.Table("orders")
	require.NotNil(t, orders)
	assert.Equal(t, []string{"total", "user_id"}, columnNames(orders.Columns))
}

func TestParse_JoinMarksForeignKeys(t *testing.T) {
	r := Parse("SELECT u.name FROM users u LEFT JOIN orders o ON u.id = o.user_id")
	require.NoError(t, r.Err)
	require.Len(t, r.Joins, 1)

	j := r.Joins[0]
	assert.Equal(t, JoinLeft, j.Kind)
	assert.Same(t, r.Table("orders"), j.Table)
	require.NotNil(t, j.Condition)
	assert.Equal(t, Condition{LeftTable: "u", LeftColumn: "id", RightTable: "o", RightColumn: "user_id"}, *j.Condition)

	id := r.Table("users").Column("id")
	require.NotNil(t, id)
	assert.True(t, id.IsForeignKey)
	assert.True(t, id.IsPrimaryKey)
	assert.True(t, r.Table("orders").Column("user_id").IsForeignKey)

	// created columns are part of the flattened list
	assert.Contains(t, r.Columns, id)
}

func TestParse_JoinKinds(t *testing.T) {
	tests := []struct {
		sql  string
		want JoinKind
	}{
		{"SELECT * FROM a JOIN b ON a.id = b.a_id", JoinInner},
		{"SELECT * FROM a inner join b ON a.id = b.a_id", JoinInner},
		{"SELECT * FROM a LEFT OUTER JOIN b ON a.id = b.a_id", JoinLeft},
		{"SELECT * FROM a RIGHT JOIN b ON a.id = b.a_id", JoinRight},
		{"SELECT * FROM a FULL OUTER JOIN b ON a.id = b.a_id", JoinFull},
		{"SELECT * FROM a CROSS JOIN b", JoinCross},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			r := Parse(tt.sql)
			require.NoError(t, r.Err)
			require.Len(t, r.Joins, 1)
			assert.Equal(t, tt.want, r.Joins[0].Kind)
			assert.Equal(t, "a", r.MainTable.Alias)
		})
	}
}

func TestParse_CrossJoinHasNoCondition(t *testing.T) {
	r := Parse("SELECT * FROM a CROSS JOIN b")
	require.Len(t, r.Joins, 1)
	assert.Nil(t, r.Joins[0].Condition)
	assert.Equal(t, []string{"a", "b"}, tableNames(r.Tables))
}

func TestParse_RepeatedTableIsMerged(t *testing.T) {
	r := Parse("SELECT e.name, m.name FROM employees e JOIN employees m ON e.manager_id = m.id")
	require.NoError(t, r.Err)
	require.Len(t, r.Tables, 1)

	emp := r.Tables[0]
	assert.Equal(t, "e", emp.Alias)
	assert.Equal(t, []string{"e", "m"}, emp.Aliases)
	assert.Same(t, emp, r.Joins[0].Table)
	assert.True(t, emp.Column("manager_id").IsForeignKey)
	assert.True(t, emp.Column("id").IsForeignKey)
}

func TestParse_ForeignKeyFlagIsSticky(t *testing.T) {
	r := Parse("SELECT a.id FROM a JOIN b ON a.id = b.a_id JOIN c ON c.a_id = a.id WHERE a.id = 3")
	require.NoError(t, r.Err)
	assert.True(t, r.Table("a").Column("id").IsForeignKey)
	assert.Len(t, r.Table("a").Columns, 1)
}

func TestParse_WhereColumns(t *testing.T) {
	r := Parse("SELECT u.name FROM users u WHERE u.active = 1 AND u.note = 'x.y' AND zz.q = 2 ORDER BY u.created_at")
	require.NoError(t, r.Err)

	users := r.Tables[0]
	assert.Equal(t, []string{"name", "active", "note"}, columnNames(users.Columns))
	for _, c := range users.Columns[1:] {
		assert.False(t, c.IsSelected)
		assert.False(t, c.IsForeignKey)
		assert.False(t, c.IsPrimaryKey)
	}
}

func TestParse_CommaSeparatedFrom(t *testing.T) {
	r := Parse("SELECT a.x, b.y FROM a, b WHERE a.id = b.a_id")
	require.NoError(t, r.Err)
	assert.Equal(t, []string{"a", "b"}, tableNames(r.Tables))
	assert.Empty(t, r.Joins)
	assert.Equal(t, []string{"x", "id"}, columnNames(r.Tables[0].Columns))
	assert.Equal(t, []string{"y", "a_id"}, columnNames(r.Tables[1].Columns))
}

func TestParse_ExpressionColumns(t *testing.T) {
	r := Parse("SELECT DISTINCT COUNT(*) AS total, MAX(o.amount), o.status FROM orders o GROUP BY o.status")
	require.NoError(t, r.Err)
	require.Len(t, r.SelectedColumns, 3)

	total := r.SelectedColumns[0]
	assert.True(t, total.Expression)
	assert.Equal(t, "COUNT(*)", total.Name)
	assert.Equal(t, "total", total.Alias)
	assert.Empty(t, total.Table)

	assert.Equal(t, "MAX(o.amount)", r.SelectedColumns[1].Name)
	assert.Equal(t, []string{"status"}, columnNames(r.Tables[0].Columns))
}

func TestParse_KeywordsInsideLiterals(t *testing.T) {
	r := Parse("SELECT u.id FROM users u WHERE u.note = 'left join me now'")
	require.NoError(t, r.Err)
	assert.Equal(t, []string{"users"}, tableNames(r.Tables))
	assert.Empty(t, r.Joins)
	assert.Equal(t, []string{"id", "note"}, columnNames(r.Tables[0].Columns))

	r = Parse("SELECT 'a from b' AS x FROM t")
	require.NoError(t, r.Err)
	assert.Equal(t, []string{"t"}, tableNames(r.Tables))
	require.Len(t, r.SelectedColumns, 1)
	assert.Equal(t, "'a from b'", r.SelectedColumns[0].Name)
	assert.Equal(t, "x", r.SelectedColumns[0].Alias)
	assert.True(t, r.SelectedColumns[0].Expression)
}

func TestParse_PrimaryKeyByTableName(t *testing.T) {
	r := Parse("SELECT c.customer_id, c.name FROM public.customer c")
	require.NoError(t, r.Err)
	assert.True(t, r.Tables[0].Column("customer_id").IsPrimaryKey)
	assert.False(t, r.Tables[0].Column("name").IsPrimaryKey)
}

func TestParse_DefaultColumnsForEmptyTables(t *testing.T) {
	r := Parse("SELECT a.x FROM a CROSS JOIN b")
	require.NoError(t, r.Err)

	b := r.Table("b")
	assert.Equal(t, []string{"id", "name", "created_at"}, columnNames(b.Columns))
	assert.True(t, b.Column("id").IsPrimaryKey)
	for _, c := range b.Columns {
		assert.Contains(t, r.Columns, c)
		assert.False(t, c.IsSelected)
	}
	assert.Equal(t, []string{"x"}, columnNames(r.Table("a").Columns))
}

func TestParse_MissingFrom(t *testing.T) {
	r := Parse("SELECT a, b")
	assert.ErrorIs(t, r.Err, ErrMissingFrom)
	assert.Equal(t, KindSelect, r.Kind)
	assert.Empty(t, r.Tables)
	assert.Equal(t, []string{"a", "b"}, columnNames(r.SelectedColumns))
}

func TestParse_SelectedSubsetOfColumns(t *testing.T) {
	queries := []string{
		"SELECT * FROM a JOIN b ON a.id = b.a_id",
		"SELECT a.x, b.*, COUNT(*) FROM a LEFT JOIN b ON a.id = b.a_id WHERE b.z = 1",
		"SELECT x FROM a, b, c",
	}
	for _, sql := range queries {
		r := Parse(sql)
		for _, s := range r.SelectedColumns {
			assert.Contains(t, r.Columns, s, sql)
		}
	}
}

func TestParse_Idempotent(t *testing.T) {
	sql := "SELECT u.id, o.total FROM users u JOIN orders o ON u.id = o.user_id WHERE o.total > 10"
	first, second := Parse(sql), Parse(sql)
	assert.Equal(t, first, second)
	assert.NotSame(t, first.Tables[0], second.Tables[0])
}

func TestParse_InsertQuoteAware(t *testing.T) {
	r := Parse("INSERT INTO t (a,b) VALUES ('x,y', 2)")
	require.NoError(t, r.Err)
	assert.Equal(t, KindInsert, r.Kind)
	require.Len(t, r.Tables, 1)
	assert.Same(t, r.Tables[0], r.MainTable)
	assert.Equal(t, map[string]string{"a": "'x,y'", "b": "2"}, r.InsertValues)

	cols := r.Tables[0].Columns
	require.Len(t, cols, 2)
	assert.Equal(t, "'x,y'", cols[0].Value)
	assert.True(t, cols[0].IsSelected)
	assert.Equal(t, columnNames(cols), columnNames(r.SelectedColumns))
}

func TestParse_InsertWithoutColumnList(t *testing.T) {
	r := Parse("INSERT INTO t VALUES (1,2,3)")
	require.NoError(t, r.Err)
	assert.Equal(t, []string{"column1", "column2", "column3"}, columnNames(r.Tables[0].Columns))
	assert.Equal(t, map[string]string{"column1": "1", "column2": "2", "column3": "3"}, r.InsertValues)
}

func TestParse_InsertPrimaryKey(t *testing.T) {
	r := Parse("insert into users (users_id, email, note) values (7, 'a@b.c', NOW())")
	require.NoError(t, r.Err)
	users := r.Tables[0]
	assert.True(t, users.Column("users_id").IsPrimaryKey)
	assert.Equal(t, "NOW()", users.Column("note").Value)
}

func TestParse_InsertFlagsEveryKeyColumn(t *testing.T) {
	r := Parse("INSERT INTO orders (id, orders_id, total) VALUES (1, 2, 3)")
	require.NoError(t, r.Err)
	orders := r.Tables[0]
	assert.True(t, orders.Columns[0].IsPrimaryKey)
	assert.True(t, orders.Columns[1].IsPrimaryKey)
	assert.False(t, orders.Columns[2].IsPrimaryKey)

	r = Parse("SELECT o.id, o.orders_id FROM orders o")
	require.NoError(t, r.Err)
	assert.True(t, r.Tables[0].Column("id").IsPrimaryKey)
	assert.False(t, r.Tables[0].Column("orders_id").IsPrimaryKey)
}

func TestParse_InsertEscapedQuotes(t *testing.T) {
	r := Parse(`INSERT INTO notes (body, n) VALUES ('it\'s, fine', 1)`)
	require.NoError(t, r.Err)
	assert.Equal(t, `'it\'s, fine'`, r.InsertValues["body"])
	assert.Equal(t, "1", r.InsertValues["n"])
}

func TestParse_InsertMalformed(t *testing.T) {
	for _, sql := range []string{
		"INSERT INTO t (a, b)",
		"INSERT t VALUES (1)",
		"INSERT INTO t VALUES (1, 2",
	} {
		r := Parse(sql)
		assert.ErrorIs(t, r.Err, ErrMalformedInsert, sql)
		assert.Equal(t, KindInsert, r.Kind)
		assert.Empty(t, r.Tables)
		assert.Nil(t, r.MainTable)
	}
}

func TestScanValues(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"1, 2, 3", []string{"1", "2", "3"}},
		{"'a,b', 'c'", []string{"'a,b'", "'c'"}},
		{"'it''s', 2", []string{"'it''s'", "2"}},
		{"COALESCE(a, b), 'x'", []string{"COALESCE(a, b)", "'x'"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScanValues(tt.in), tt.in)
	}
}

func TestGuarded_RecoversPanics(t *testing.T) {
	r := guarded("SELECT a FROM t", func(r *ParseResult) {
		r.Kind = KindSelect
		r.addTable("t", "")
		panic("index out of range")
	})
	require.NotNil(t, r)
	assert.True(t, errors.Is(r.Err, ErrInternalFault))
	assert.Contains(t, r.Diagnostic(), "index out of range")
	assert.Empty(t, r.Tables)
	assert.Equal(t, KindOther, r.Kind)

	clean := Parse("SELECT a FROM t")
	assert.NoError(t, clean.Err)
}
