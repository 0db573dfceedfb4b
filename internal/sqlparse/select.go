package sqlparse

import (
	"regexp"
	"strings"
)

var (
	projectionRe = regexp.MustCompile(`(?i)^SELECT\s+(.*?)\s+FROM\b`)
	selectHeadRe = regexp.MustCompile(`(?i)^SELECT\s*`)
	quantifierRe = regexp.MustCompile(`(?i)^(?:DISTINCT|ALL)\s+`)
	fromRe       = regexp.MustCompile(`(?i)\bFROM\s+`)

	// [table.]name [[AS] alias]
	itemRe      = regexp.MustCompile(`(?i)^(?:([A-Za-z0-9_$]+)\.)?([A-Za-z0-9_$]+|\*)(?:\s+(?:AS\s+)?([A-Za-z0-9_$]+))?$`)
	exprAliasRe = regexp.MustCompile(`(?i)^(.*?)\s+AS\s+([A-Za-z0-9_$]+)$`)

	joinHeadRe   = regexp.MustCompile(`(?i)\b(?:(INNER|LEFT|RIGHT|FULL|CROSS)\s+)?(?:OUTER\s+)?JOIN\s+`)
	tableNameRe  = regexp.MustCompile(`^([^\s,;()]+)`)
	tableAliasRe = regexp.MustCompile(`(?i)^\s+(?:AS\s+)?([^\s,;()]+)`)
	onRe         = regexp.MustCompile(`(?i)^\s+ON\s+([^\s.=()]+)\.([^\s.=()]+)\s*=\s*([^\s.=()]+)\.([^\s=;()]+)`)

	whereRe  = regexp.MustCompile(`(?i)\bWHERE\s+(.*?)(?:\s+(?:ORDER\s+BY|GROUP\s+BY|HAVING|LIMIT)\b|$)`)
	columnRe = regexp.MustCompile(`([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)`)
)

// reserved words never taken as a table alias.
var reserved = map[string]bool{
	"AS": true, "ON": true, "USING": true, "WHERE": true, "JOIN": true,
	"INNER": true, "LEFT": true, "RIGHT": true, "FULL": true, "CROSS": true,
	"OUTER": true, "NATURAL": true, "GROUP": true, "ORDER": true, "HAVING": true,
	"LIMIT": true, "OFFSET": true, "UNION": true, "INTERSECT": true, "EXCEPT": true,
	"WINDOW": true, "FETCH": true, "FOR": true,
}

func isReserved(word string) bool {
	return reserved[strings.ToUpper(word)]
}

// projItem is one entry of the SELECT list.
type projItem struct {
	col       *Column // nil for star items
	qualifier string
	star      bool
	claimed   bool
}

type selectParser struct {
	r     *ParseResult
	items []*projItem
}

func parseSelect(sql string, r *ParseResult) {
	p := &selectParser{r: r}

	// Clause keywords are searched in masked text so literals never open a
	// clause. Masking keeps byte offsets, so slices of sql stay aligned.
	masked := stripLiterals(sql)

	projection, hasFrom := "", false
	if m := projectionRe.FindStringSubmatchIndex(masked); m != nil {
		projection, hasFrom = sql[m[2]:m[3]], true
	} else {
		projection = selectHeadRe.ReplaceAllString(sql, "")
	}
	p.readProjection(projection)

	loc := fromRe.FindStringIndex(masked)
	if !hasFrom || loc == nil {
		r.Err = ErrMissingFrom
		p.collectSelected()
		return
	}
	p.readFrom(masked[loc[1]:])
	p.readJoins(masked[loc[1]:])
	p.readWhere(sql)

	defaultColumns(r)
	inferPrimaryKeys(r, false)
	p.collectSelected()
}

// readProjection records projection items; plain columns join the flattened
// column list immediately so a failed FROM still reports them.
func (p *selectParser) readProjection(projection string) {
	projection = quantifierRe.ReplaceAllString(strings.TrimSpace(projection), "")
	for _, raw := range splitTopLevel(projection) {
		if raw == "" {
			continue
		}
		item := &projItem{}
		if m := itemRe.FindStringSubmatch(raw); m != nil && !isReserved(m[3]) {
			item.qualifier = m[1]
			if m[2] == "*" {
				item.star = true
			} else {
				item.col = &Column{Name: m[2], Alias: m[3], Table: m[1], IsSelected: true}
			}
		} else {
			name, alias := raw, ""
			if am := exprAliasRe.FindStringSubmatch(raw); am != nil {
				name, alias = am[1], am[2]
			}
			item.col = &Column{Name: name, Alias: alias, IsSelected: true, Expression: true}
			item.claimed = true
		}
		if item.col != nil {
			p.r.Columns = append(p.r.Columns, item.col)
		}
		p.items = append(p.items, item)
	}
}

// claim attaches pending projection columns that belong to t.
func (p *selectParser) claim(t *Table) {
	for _, it := range p.items {
		if it.claimed || it.star {
			continue
		}
		if (it.qualifier == "" && t == p.r.MainTable) || (it.qualifier != "" && t.Matches(it.qualifier)) {
			p.r.adopt(t, it.col)
			it.claimed = true
		}
	}
}

// readFrom registers the FROM table list, stopping at the first clause keyword.
func (p *selectParser) readFrom(rest string) {
	tokens := strings.Fields(rest)
	i := 0
	for i < len(tokens) {
		name := strings.TrimRight(tokens[i], ";")
		if name == "" || isReserved(name) || strings.HasPrefix(name, "(") {
			return
		}
		i++
		alias := ""
		if i < len(tokens) && strings.EqualFold(tokens[i], "AS") {
			i++
		}
		if i < len(tokens) && tokens[i] != "," && !isReserved(tokens[i]) {
			alias = strings.TrimRight(tokens[i], ";")
			i++
		}
		t, _ := p.r.addTable(name, alias)
		if p.r.MainTable == nil {
			p.r.MainTable = t
		}
		p.claim(t)

		if i >= len(tokens) || tokens[i] != "," {
			return
		}
		i++
	}
}

// readJoins registers every JOIN clause in rest.
func (p *selectParser) readJoins(rest string) {
	for _, loc := range joinHeadRe.FindAllStringSubmatchIndex(rest, -1) {
		kind := JoinInner
		if loc[2] >= 0 {
			kind = JoinKind(strings.ToUpper(rest[loc[2]:loc[3]]))
		}
		tail := rest[loc[1]:]
		nm := tableNameRe.FindStringSubmatch(tail)
		if nm == nil {
			continue
		}
		name := nm[1]
		tail = tail[len(nm[0]):]

		alias := ""
		if am := tableAliasRe.FindStringSubmatch(tail); am != nil && !isReserved(am[1]) {
			alias = am[1]
			tail = tail[len(am[0]):]
		}

		t, _ := p.r.addTable(name, alias)
		p.claim(t)

		join := &Join{Table: t, Kind: kind}
		if cm := onRe.FindStringSubmatch(tail); cm != nil {
			join.Condition = &Condition{
				LeftTable:   cm[1],
				LeftColumn:  cm[2],
				RightTable:  cm[3],
				RightColumn: cm[4],
			}
			p.markForeignKey(cm[1], cm[2])
			p.markForeignKey(cm[3], cm[4])
		}
		p.r.Joins = append(p.r.Joins, join)
	}
}

func (p *selectParser) markForeignKey(tableRef, column string) {
	t := p.r.Table(tableRef)
	if t == nil {
		return
	}
	p.r.ensureColumn(t, column).IsForeignKey = true
}

// readWhere attaches columns referenced as table.column in the WHERE clause.
func (p *selectParser) readWhere(sql string) {
	m := whereRe.FindStringSubmatch(stripLiterals(sql))
	if m == nil {
		return
	}
	for _, ref := range columnRe.FindAllStringSubmatch(m[1], -1) {
		if t := p.r.Table(ref[1]); t != nil {
			p.r.ensureColumn(t, ref[2])
		}
	}
}

// collectSelected builds SelectedColumns in projection order, expanding
// stars against the final table set.
func (p *selectParser) collectSelected() {
	seen := make(map[*Column]bool)
	add := func(c *Column) {
		if seen[c] {
			return
		}
		seen[c] = true
		c.IsSelected = true
		p.r.SelectedColumns = append(p.r.SelectedColumns, c)
	}
	for _, it := range p.items {
		switch {
		case !it.star:
			add(it.col)
		case it.qualifier == "":
			for _, t := range p.r.Tables {
				for _, c := range t.Columns {
					add(c)
				}
			}
		default:
			if t := p.r.Table(it.qualifier); t != nil {
				for _, c := range t.Columns {
					add(c)
				}
			}
		}
	}
}
