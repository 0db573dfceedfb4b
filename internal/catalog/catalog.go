// Package catalog describes the tables of a live database, as scanned by the
// dialects in internal/db.
package catalog

import (
	"sort"
	"strings"
	"time"
)

// Column is a table column as reported by the server.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"isPrimary"`
}

// ForeignKey is one column pair of a foreign key constraint.
type ForeignKey struct {
	FromSchema string `json:"fromSchema,omitempty"`
	FromTable  string `json:"fromTable"`
	FromColumn string `json:"fromColumn"`
	ToSchema   string `json:"toSchema,omitempty"`
	ToTable    string `json:"toTable"`
	ToColumn   string `json:"toColumn"`
	Constraint string `json:"constraint,omitempty"`
}

type Table struct {
	Schema  string   `json:"schema,omitempty"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// QualifiedName is schema.name, or name when the schema is empty.
func (t Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Catalog is a snapshot of a database structure.
type Catalog struct {
	Driver      string       `json:"driver"`
	Version     string       `json:"version,omitempty"`
	ScannedAt   time.Time    `json:"scannedAt"`
	Tables      []Table      `json:"tables"`
	ForeignKeys []ForeignKey `json:"foreignKeys"`
}

// Table finds a table by bare or schema-qualified name, ignoring case.
func (c *Catalog) Table(name string) *Table {
	for i := range c.Tables {
		t := &c.Tables[i]
		if strings.EqualFold(t.Name, name) || strings.EqualFold(t.QualifiedName(), name) {
			return t
		}
	}
	return nil
}

// Builder accumulates column rows, which arrive grouped by table.
type Builder struct {
	cat   Catalog
	index map[string]int
}

func NewBuilder(driver string) *Builder {
	return &Builder{
		cat:   Catalog{Driver: driver, Tables: []Table{}, ForeignKeys: []ForeignKey{}},
		index: map[string]int{},
	}
}

// AddColumn appends c to schema.table, creating the table on first sight.
func (b *Builder) AddColumn(schema, table string, c Column) {
	key := schema + "\x00" + table
	i, ok := b.index[key]
	if !ok {
		i = len(b.cat.Tables)
		b.index[key] = i
		b.cat.Tables = append(b.cat.Tables, Table{Schema: schema, Name: table, Columns: []Column{}})
	}
	b.cat.Tables[i].Columns = append(b.cat.Tables[i].Columns, c)
}

func (b *Builder) AddForeignKey(fk ForeignKey) {
	b.cat.ForeignKeys = append(b.cat.ForeignKeys, fk)
}

// Catalog returns the snapshot with tables sorted by qualified name.
func (b *Builder) Catalog(version string, at time.Time) Catalog {
	c := b.cat
	c.Version = version
	c.ScannedAt = at.UTC()
	sort.SliceStable(c.Tables, func(i, j int) bool {
		return c.Tables[i].QualifiedName() < c.Tables[j].QualifiedName()
	})
	return c
}
