// Package bind expands a SQL template once per data row.
package bind

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`{{ \w+ }}`)

// Variable maps the placeholder {{ Value }} to the row key Field.
type Variable struct {
	Field    string `json:"field" validate:"required"`
	Value    string `json:"value" validate:"required"`
	Position int    `json:"position"`
}

// Render substitutes each row into query and joins the results with
// newlines. When several variables share a placeholder the first whose field
// is present in the row wins; otherwise the placeholder is left untouched.
// With minify every newline becomes a space.
func Render(query string, rows []map[string]any, variables []Variable, minify bool) string {
	fields := make(map[string][]string, len(variables))
	for _, v := range variables {
		key := "{{ " + v.Value + " }}"
		fields[key] = append(fields[key], v.Field)
	}

	var out strings.Builder
	for i, row := range rows {
		out.WriteString(placeholder.ReplaceAllStringFunc(query, func(match string) string {
			for _, field := range fields[match] {
				if value, ok := row[field]; ok {
					return format(value)
				}
			}
			return match
		}))
		if i != len(rows)-1 {
			out.WriteString("\n")
		}
	}

	if minify {
		return strings.ReplaceAll(out.String(), "\n", " ")
	}
	return out.String()
}

// format prints nil as NULL and whole floats in plain integer notation.
func format(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
	}
	return fmt.Sprintf("%v", v)
}
