// Package graph turns a parsed statement into renderer-agnostic diagram
// nodes and edges.
package graph

import (
	"encoding/json"

	"sqlviz/internal/sqlparse"
)

// Position is a node's top-left corner.
type Position = sqlparse.Position

// Node is one of *TableNode, *ResultNode or *ValuesNode.
type Node interface {
	NodeID() string
	NodePosition() Position
	node()
}

// Edge is one of *JoinEdge, *SelectEdge or *InsertEdge.
type Edge interface {
	EdgeID() string
	Endpoints() (source, target string)
	edge()
}

// ColumnView is a column as drawn inside a table node.
type ColumnView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Alias        string `json:"alias,omitempty"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
	IsForeignKey bool   `json:"isForeignKey"`
	IsSelected   bool   `json:"isSelected"`
	Value        string `json:"value,omitempty"`
}

// TableNode draws one table.
type TableNode struct {
	ID        string        `json:"id"`
	Label     string        `json:"label"`
	Alias     string        `json:"alias,omitempty"`
	Columns   []ColumnView  `json:"columns"`
	IsMain    bool          `json:"isMainTable"`
	QueryKind sqlparse.Kind `json:"queryType"`
	Position  Position      `json:"position"`
}

// ResultColumn is one entry of a SELECT result.
type ResultColumn struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
	Table string `json:"table,omitempty"`
}

// ResultNode draws the rows a SELECT produces.
type ResultNode struct {
	ID       string         `json:"id"`
	Columns  []ResultColumn `json:"columns"`
	Position Position       `json:"position"`
}

// ValuePair is one column = literal of an INSERT.
type ValuePair struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// ValuesNode draws the literal tuple of an INSERT.
type ValuesNode struct {
	ID       string      `json:"id"`
	Values   []ValuePair `json:"values"`
	Position Position    `json:"position"`
}

// JoinEdge connects the two tables of a join condition.
type JoinEdge struct {
	ID           string            `json:"id"`
	Source       string            `json:"source"`
	Target       string            `json:"target"`
	JoinKind     sqlparse.JoinKind `json:"joinType"`
	SourceColumn string            `json:"sourceColumn"`
	TargetColumn string            `json:"targetColumn"`
}

// SelectEdge carries a selected column from its table to the result node.
type SelectEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Column string `json:"column"`
	Alias  string `json:"alias,omitempty"`
}

// InsertEdge carries the inserted values into their table.
type InsertEdge struct {
	ID     string      `json:"id"`
	Source string      `json:"source"`
	Target string      `json:"target"`
	Values []ValuePair `json:"values"`
}

func (n *TableNode) NodeID() string         { return n.ID }
func (n *TableNode) NodePosition() Position { return n.Position }
func (*TableNode) node()                    {}

func (n *ResultNode) NodeID() string         { return n.ID }
func (n *ResultNode) NodePosition() Position { return n.Position }
func (*ResultNode) node()                    {}

func (n *ValuesNode) NodeID() string         { return n.ID }
func (n *ValuesNode) NodePosition() Position { return n.Position }
func (*ValuesNode) node()                    {}

func (e *JoinEdge) EdgeID() string              { return e.ID }
func (e *JoinEdge) Endpoints() (string, string) { return e.Source, e.Target }
func (*JoinEdge) edge()                         {}

func (e *SelectEdge) EdgeID() string              { return e.ID }
func (e *SelectEdge) Endpoints() (string, string) { return e.Source, e.Target }
func (*SelectEdge) edge()                         {}

func (e *InsertEdge) EdgeID() string              { return e.ID }
func (e *InsertEdge) Endpoints() (string, string) { return e.Source, e.Target }
func (*InsertEdge) edge()                         {}

// Type discriminators used on the wire.
const (
	TypeTableNode  = "tableNode"
	TypeResultNode = "resultNode"
	TypeValuesNode = "valuesNode"
	TypeJoinEdge   = "joinEdge"
	TypeSelectEdge = "selectEdge"
	TypeInsertEdge = "insertEdge"
)

// NodeType returns the wire discriminator of n.
func NodeType(n Node) string {
	switch n.(type) {
	case *TableNode:
		return TypeTableNode
	case *ResultNode:
		return TypeResultNode
	case *ValuesNode:
		return TypeValuesNode
	}
	return ""
}

// EdgeType returns the wire discriminator of e.
func EdgeType(e Edge) string {
	switch e.(type) {
	case *JoinEdge:
		return TypeJoinEdge
	case *SelectEdge:
		return TypeSelectEdge
	case *InsertEdge:
		return TypeInsertEdge
	}
	return ""
}

func tagged(kind string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(kind)
	return json.Marshal(fields)
}

// Each variant marshals with a "type" discriminator. The local types drop
// the methods so json.Marshal does not recurse.
func (n *TableNode) MarshalJSON() ([]byte, error) {
	type plain TableNode
	return tagged(TypeTableNode, (*plain)(n))
}

func (n *ResultNode) MarshalJSON() ([]byte, error) {
	type plain ResultNode
	return tagged(TypeResultNode, (*plain)(n))
}

func (n *ValuesNode) MarshalJSON() ([]byte, error) {
	type plain ValuesNode
	return tagged(TypeValuesNode, (*plain)(n))
}

func (e *JoinEdge) MarshalJSON() ([]byte, error) {
	type plain JoinEdge
	return tagged(TypeJoinEdge, (*plain)(e))
}

func (e *SelectEdge) MarshalJSON() ([]byte, error) {
	type plain SelectEdge
	return tagged(TypeSelectEdge, (*plain)(e))
}

func (e *InsertEdge) MarshalJSON() ([]byte, error) {
	type plain InsertEdge
	return tagged(TypeInsertEdge, (*plain)(e))
}

// Graph is the diagram of one statement.
type Graph struct {
	Nodes       []Node   `json:"nodes"`
	Edges       []Edge   `json:"edges"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Node returns the node with id, or nil.
func (g *Graph) Node(id string) Node {
	for _, n := range g.Nodes {
		if n.NodeID() == id {
			return n
		}
	}
	return nil
}
