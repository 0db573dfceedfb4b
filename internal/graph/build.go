package graph

import (
	"errors"
	"fmt"
	"math"

	"sqlviz/internal/logger"
	"sqlviz/internal/sqlparse"
)

// ErrUnresolvedJoin marks a join whose condition names a table that is not
// part of the statement. The join still exists; it just has no edge.
var ErrUnresolvedJoin = errors.New("unresolved join reference")

const (
	ResultID = "result"
	ValuesID = "values"

	resultGap    = 50
	valuesOffset = 200
)

// Layout places table nodes on a grid in table order.
type Layout struct {
	Columns  int     `yaml:"columns" json:"columns"`
	SpacingX float64 `yaml:"spacing_x" json:"spacing_x"`
	SpacingY float64 `yaml:"spacing_y" json:"spacing_y"`
	OriginX  float64 `yaml:"origin_x" json:"origin_x"`
	OriginY  float64 `yaml:"origin_y" json:"origin_y"`
}

// DefaultLayout is three tables per row, 350 apart, rows 300 apart.
var DefaultLayout = Layout{Columns: 3, SpacingX: 350, SpacingY: 300, OriginX: 50, OriginY: 50}

// Slot returns the grid position of the i-th table.
func (l Layout) Slot(i int) Position {
	cols := l.Columns
	if cols <= 0 {
		cols = DefaultLayout.Columns
	}
	return Position{
		X: l.OriginX + float64(i%cols)*l.SpacingX,
		Y: l.OriginY + float64(i/cols)*l.SpacingY,
	}
}

// Builder converts parse results into graphs. The zero value uses DefaultLayout.
type Builder struct {
	Layout *Layout
}

// Build uses DefaultLayout.
func Build(r *sqlparse.ParseResult) *Graph {
	return Builder{}.Build(r)
}

// TableID is the node id of the i-th table.
func TableID(i int) string { return fmt.Sprintf("table-%d", i) }

// Build converts r into a graph. r is only read.
func (b Builder) Build(r *sqlparse.ParseResult) *Graph {
	layout := DefaultLayout
	if b.Layout != nil {
		layout = *b.Layout
	}
	g := &Graph{Nodes: []Node{}, Edges: []Edge{}}
	if r == nil {
		return g
	}

	tables := make([]*TableNode, len(r.Tables))
	for i, t := range r.Tables {
		pos := layout.Slot(i)
		if t.Position != nil {
			pos = *t.Position
		}
		tables[i] = &TableNode{
			ID:        TableID(i),
			Label:     t.Name,
			Alias:     t.Alias,
			Columns:   columnViews(i, t),
			IsMain:    t == r.MainTable,
			QueryKind: r.Kind,
			Position:  pos,
		}
		g.Nodes = append(g.Nodes, tables[i])
	}

	nodeFor := func(ref string) *TableNode {
		if t := r.Table(ref); t != nil {
			if i := r.Index(t); i >= 0 {
				return tables[i]
			}
		}
		return nil
	}

	for i, j := range r.Joins {
		if j.Condition == nil {
			continue
		}
		src, dst := nodeFor(j.Condition.LeftTable), nodeFor(j.Condition.RightTable)
		if src == nil || dst == nil {
			msg := fmt.Sprintf("%v: join %d on %s.%s = %s.%s", ErrUnresolvedJoin, i,
				j.Condition.LeftTable, j.Condition.LeftColumn, j.Condition.RightTable, j.Condition.RightColumn)
			logger.Warn("%s", msg)
			g.Diagnostics = append(g.Diagnostics, msg)
			continue
		}
		g.Edges = append(g.Edges, &JoinEdge{
			ID:           fmt.Sprintf("join-%d", i),
			Source:       src.ID,
			Target:       dst.ID,
			JoinKind:     j.Kind,
			SourceColumn: j.Condition.LeftColumn,
			TargetColumn: j.Condition.RightColumn,
		})
	}

	switch r.Kind {
	case sqlparse.KindSelect:
		if len(r.SelectedColumns) > 0 {
			b.addResult(g, r, tables, layout, nodeFor)
		}
	case sqlparse.KindInsert:
		addValues(g, r, tables)
	}
	return g
}

func (b Builder) addResult(g *Graph, r *sqlparse.ParseResult, tables []*TableNode, layout Layout, nodeFor func(string) *TableNode) {
	cols := layout.Columns
	if cols <= 0 {
		cols = DefaultLayout.Columns
	}
	bottom := layout.OriginY
	if len(tables) > 0 {
		bottom = math.Inf(-1)
		for _, t := range tables {
			bottom = math.Max(bottom, t.Position.Y+layout.SpacingY)
		}
	}
	result := &ResultNode{
		ID: ResultID,
		Position: Position{
			X: layout.OriginX + float64(len(tables)%cols)*layout.SpacingX,
			Y: bottom + resultGap,
		},
	}
	for _, c := range r.SelectedColumns {
		result.Columns = append(result.Columns, ResultColumn{Name: c.Name, Alias: c.Alias, Table: c.Table})
	}
	g.Nodes = append(g.Nodes, result)

	for i, c := range r.SelectedColumns {
		src := nodeFor(c.Table)
		if src == nil {
			continue
		}
		g.Edges = append(g.Edges, &SelectEdge{
			ID:     fmt.Sprintf("select-%d", i),
			Source: src.ID,
			Target: result.ID,
			Column: c.Name,
			Alias:  c.Alias,
		})
	}
}

func addValues(g *Graph, r *sqlparse.ParseResult, tables []*TableNode) {
	if r.MainTable == nil {
		return
	}
	i := r.Index(r.MainTable)
	if i < 0 {
		return
	}
	target := tables[i]

	var pairs []ValuePair
	for _, c := range r.MainTable.Columns {
		if _, ok := r.InsertValues[c.Name]; ok {
			pairs = append(pairs, ValuePair{Column: c.Name, Value: c.Value})
		}
	}
	values := &ValuesNode{
		ID:       ValuesID,
		Values:   pairs,
		Position: Position{X: target.Position.X, Y: target.Position.Y + valuesOffset},
	}
	g.Nodes = append(g.Nodes, values)
	g.Edges = append(g.Edges, &InsertEdge{
		ID:     "insert-0",
		Source: values.ID,
		Target: target.ID,
		Values: pairs,
	})
}

func columnViews(ti int, t *sqlparse.Table) []ColumnView {
	views := make([]ColumnView, 0, len(t.Columns))
	for ci, c := range t.Columns {
		views = append(views, ColumnView{
			ID:           fmt.Sprintf("%s-col-%d", TableID(ti), ci),
			Name:         c.Name,
			Alias:        c.Alias,
			IsPrimaryKey: c.IsPrimaryKey,
			IsForeignKey: c.IsForeignKey,
			IsSelected:   c.IsSelected,
			Value:        c.Value,
		})
	}
	return views
}
