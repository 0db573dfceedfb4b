// Package sqlparse recovers the tables, columns, joins and literal values a
// SQL statement refers to. It understands a pragmatic subset of SELECT and
// INSERT; everything else is classified but not decomposed.
//
// Parse never fails: problems are reported through ParseResult.Err next to
// whatever structure could be recovered.
package sqlparse

import (
	"fmt"
	"regexp"
	"strings"
)

var leadingKeyword = regexp.MustCompile(`(?i)^(SELECT|INSERT|UPDATE|DELETE)\b`)

// Parse classifies sql and extracts its structure.
// It is safe for concurrent use.
func Parse(sql string) *ParseResult {
	return guarded(sql, func(result *ParseResult) {
		if strings.TrimSpace(sql) == "" {
			result.Err = ErrEmptyInput
			return
		}

		normalized := normalize(sql)
		result.Query.Normalized = normalized
		result.Kind = DetectKind(normalized)
		result.Query.Kind = result.Kind

		switch result.Kind {
		case KindSelect:
			parseSelect(normalized, result)
		case KindInsert:
			parseInsert(normalized, result)
		}
	})
}

// guarded runs fn on a fresh result and turns a panic into ErrInternalFault
// on an otherwise empty result.
func guarded(sql string, fn func(*ParseResult)) (result *ParseResult) {
	result = newResult(sql)
	defer func() {
		if r := recover(); r != nil {
			failed := newResult(sql)
			failed.Query.Normalized = result.Query.Normalized
			failed.Err = fmt.Errorf("%w: %v", ErrInternalFault, r)
			result = failed
		}
	}()
	fn(result)
	return result
}

// DetectKind returns the kind named by the leading keyword of sql.
func DetectKind(sql string) Kind {
	m := leadingKeyword.FindStringSubmatch(strings.TrimSpace(sql))
	if m == nil {
		return KindOther
	}
	return Kind(strings.ToUpper(m[1]))
}

// inferPrimaryKeys flags columns called id or <table>_id. SELECT keeps only
// the first match per table; INSERT flags every match.
func inferPrimaryKeys(r *ParseResult, every bool) {
	for _, t := range r.Tables {
		own := strings.ToLower(t.baseName()) + "_id"
		for _, c := range t.Columns {
			name := strings.ToLower(c.Name)
			if name == "id" || name == own {
				c.IsPrimaryKey = true
				if !every {
					break
				}
			}
		}
	}
}

// defaultColumns gives every empty table an id, name and created_at column.
func defaultColumns(r *ParseResult) {
	for _, t := range r.Tables {
		if len(t.Columns) > 0 {
			continue
		}
		r.attach(t, &Column{Name: "id", IsPrimaryKey: true})
		r.attach(t, &Column{Name: "name"})
		r.attach(t, &Column{Name: "created_at"})
	}
}
