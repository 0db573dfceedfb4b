package sqlparse

import (
	"encoding/json"
	"strings"
)

// Kind is the coarse classification of a statement.
type Kind string

const (
	KindSelect Kind = "SELECT"
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
	KindOther  Kind = "OTHER"
)

// JoinKind is the join qualifier in front of JOIN.
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinFull  JoinKind = "FULL"
	JoinCross JoinKind = "CROSS"
)

// Position is a layout coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Query is the text a result was produced from.
type Query struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	Kind       Kind   `json:"kind"`
}

// Column represents a column referenced by a query.
type Column struct {
	Name         string `json:"name"`
	Alias        string `json:"alias,omitempty"`
	Table        string `json:"table,omitempty"` // owning table name, or the qualifier as written
	IsPrimaryKey bool   `json:"isPrimaryKey"`
	IsForeignKey bool   `json:"isForeignKey"`
	IsSelected   bool   `json:"isSelected"`
	Value        string `json:"value,omitempty"`      // INSERT literal
	Expression   bool   `json:"expression,omitempty"` // projection item that is not a column reference
}

// Table represents a table referenced by a query.
type Table struct {
	Name     string    `json:"name"`
	Alias    string    `json:"alias,omitempty"`
	Aliases  []string  `json:"aliases,omitempty"`
	Columns  []*Column `json:"columns"`
	Position *Position `json:"position,omitempty"`
}

// Column returns the column called name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Matches reports whether ref names this table or one of its aliases.
func (t *Table) Matches(ref string) bool {
	if ref == t.Name {
		return true
	}
	for _, a := range t.Aliases {
		if a == ref {
			return true
		}
	}
	return false
}

// baseName strips a schema prefix.
func (t *Table) baseName() string {
	if i := strings.LastIndexByte(t.Name, '.'); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

// Condition is an equality between two qualified columns.
type Condition struct {
	LeftTable   string `json:"leftTable"`
	LeftColumn  string `json:"leftColumn"`
	RightTable  string `json:"rightTable"`
	RightColumn string `json:"rightColumn"`
}

// Join binds a table to the query.
type Join struct {
	Table     *Table     `json:"table"`
	Kind      JoinKind   `json:"type"`
	Condition *Condition `json:"condition,omitempty"`
}

// ParseResult is the structural model of one statement.
type ParseResult struct {
	Query           Query             `json:"query"`
	Kind            Kind              `json:"queryType"`
	MainTable       *Table            `json:"mainTable,omitempty"`
	Tables          []*Table          `json:"tables"`
	Joins           []*Join           `json:"joins"`
	Columns         []*Column         `json:"columns"`
	SelectedColumns []*Column         `json:"selectedColumns"`
	InsertValues    map[string]string `json:"insertValues,omitempty"`
	Err             error             `json:"-"`
}

// Table resolves ref by table name first, then by alias.
func (r *ParseResult) Table(ref string) *Table {
	if ref == "" {
		return nil
	}
	for _, t := range r.Tables {
		if t.Name == ref {
			return t
		}
	}
	for _, t := range r.Tables {
		if t.Matches(ref) {
			return t
		}
	}
	return nil
}

// Index returns the position of t in Tables, or -1.
func (r *ParseResult) Index(t *Table) int {
	for i, tt := range r.Tables {
		if tt == t {
			return i
		}
	}
	return -1
}

// Diagnostic returns the error text, or "" for a clean parse.
func (r *ParseResult) Diagnostic() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// MarshalJSON adds the diagnostic as "error".
func (r *ParseResult) MarshalJSON() ([]byte, error) {
	type plain ParseResult
	return json.Marshal(struct {
		*plain
		Error string `json:"error,omitempty"`
	}{(*plain)(r), r.Diagnostic()})
}

func newResult(raw string) *ParseResult {
	return &ParseResult{
		Query:           Query{Raw: raw, Kind: KindOther},
		Kind:            KindOther,
		Tables:          []*Table{},
		Joins:           []*Join{},
		Columns:         []*Column{},
		SelectedColumns: []*Column{},
	}
}

// addTable returns the table called name, creating it when absent.
// A new alias on an existing table is recorded in Aliases.
func (r *ParseResult) addTable(name, alias string) (*Table, bool) {
	if alias == "" {
		alias = name
	}
	for _, t := range r.Tables {
		if t.Name == name {
			if !t.Matches(alias) {
				t.Aliases = append(t.Aliases, alias)
			}
			return t, false
		}
	}
	t := &Table{Name: name, Alias: alias, Aliases: []string{alias}, Columns: []*Column{}}
	r.Tables = append(r.Tables, t)
	return t, true
}

// attach appends c to t and to the flattened column list.
func (r *ParseResult) attach(t *Table, c *Column) {
	c.Table = t.Name
	t.Columns = append(t.Columns, c)
	r.Columns = append(r.Columns, c)
}

// adopt attaches a column that is already in the flattened list.
func (r *ParseResult) adopt(t *Table, c *Column) {
	c.Table = t.Name
	t.Columns = append(t.Columns, c)
}

// ensureColumn returns t's column called name, attaching a new one when absent.
func (r *ParseResult) ensureColumn(t *Table, name string) *Column {
	if c := t.Column(name); c != nil {
		return c
	}
	c := &Column{Name: name}
	r.attach(t, c)
	return c
}
