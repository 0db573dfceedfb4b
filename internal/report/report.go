// Package report prints parse results for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"sqlviz/internal/graph"
	"sqlviz/internal/sqlparse"
)

// Format selects how a result is printed.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat accepts table or json, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want table or json)", s)
}

// Write prints r and g in the given format.
func Write(w io.Writer, f Format, r *sqlparse.ParseResult, g *graph.Graph) error {
	if f == FormatJSON {
		return JSON(w, r, g)
	}
	Tables(w, r, g)
	return nil
}

// JSON writes {"result": r, "graph": g}, indented.
func JSON(w io.Writer, r *sqlparse.ParseResult, g *graph.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Result *sqlparse.ParseResult `json:"result"`
		Graph  *graph.Graph          `json:"graph"`
	}{r, g})
}

func mark(b bool) string {
	if b {
		return "✓"
	}
	return ""
}

// Tables writes one table of columns, one of joins when present, and the
// diagnostics.
func Tables(w io.Writer, r *sqlparse.ParseResult, g *graph.Graph) {
	main := ""
	if r.MainTable != nil {
		main = r.MainTable.Name
	}
	fmt.Fprintf(w, "%s %s\n", r.Kind, main)

	if len(r.Tables) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Table", "Alias", "Column", "PK", "FK", "Selected", "Value"})
		for _, tbl := range r.Tables {
			alias := strings.Join(tbl.Aliases, ", ")
			if alias == tbl.Name {
				alias = ""
			}
			for _, c := range tbl.Columns {
				t.AppendRow(table.Row{tbl.Name, alias, c.Name, mark(c.IsPrimaryKey), mark(c.IsForeignKey), mark(c.IsSelected), c.Value})
			}
			t.AppendSeparator()
		}
		t.Render()
	}

	if len(r.Joins) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Join", "Table", "On"})
		for _, j := range r.Joins {
			on := ""
			if c := j.Condition; c != nil {
				on = fmt.Sprintf("%s.%s = %s.%s", c.LeftTable, c.LeftColumn, c.RightTable, c.RightColumn)
			}
			t.AppendRow(table.Row{j.Kind, j.Table.Name, on})
		}
		t.Render()
	}

	if d := r.Diagnostic(); d != "" {
		fmt.Fprintf(w, "error: %s\n", d)
	}
	if g != nil {
		for _, d := range g.Diagnostics {
			fmt.Fprintf(w, "warning: %s\n", d)
		}
	}
}
