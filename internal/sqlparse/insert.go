package sqlparse

import (
	"fmt"
	"regexp"
	"strings"
)

var insertHeadRe = regexp.MustCompile(`(?i)^INSERT\s+INTO\s+([^\s(]+)\s*(?:\(([^)]*)\))?\s*VALUES\s*\(`)

func parseInsert(sql string, r *ParseResult) {
	m := insertHeadRe.FindStringSubmatchIndex(sql)
	if m == nil {
		r.Err = ErrMalformedInsert
		return
	}
	tuple, ok := readTuple(sql[m[1]:])
	if !ok {
		r.Err = ErrMalformedInsert
		return
	}
	name := strings.TrimRight(sql[m[2]:m[3]], ";")

	var declared []string
	if m[4] >= 0 {
		declared = splitTopLevel(sql[m[4]:m[5]])
	}
	values := ScanValues(tuple)

	table, _ := r.addTable(name, "")
	table.Alias = ""
	table.Aliases = nil
	r.MainTable = table
	r.InsertValues = make(map[string]string, len(values))

	if len(declared) == 0 {
		declared = make([]string, len(values))
		for i := range values {
			declared[i] = fmt.Sprintf("column%d", i+1)
		}
	}
	for i := 0; i < len(declared) && i < len(values); i++ {
		col := &Column{Name: declared[i], Value: values[i], IsSelected: true}
		r.attach(table, col)
		r.SelectedColumns = append(r.SelectedColumns, col)
		r.InsertValues[declared[i]] = values[i]
	}
	inferPrimaryKeys(r, true)
}

// ScanValues splits a VALUES tuple body into its literal values. Commas
// inside single-quoted strings or nested parentheses do not separate values;
// a quote preceded by a backslash does not end a string.
func ScanValues(tuple string) []string {
	return splitTopLevel(tuple)
}
