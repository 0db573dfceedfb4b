package sqlparse

import "strings"

// normalize collapses whitespace and pads commas outside string literals.
// Literal text is copied verbatim so values like 'x,  y' survive intact.
func normalize(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 16)

	inString := false
	space := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if inString {
			b.WriteByte(ch)
			if ch == '\'' && !escaped(sql, i) {
				inString = false
			}
			continue
		}
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v':
			space = true
		case ch == ',':
			b.WriteString(" ,")
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteByte(ch)
			if ch == '\'' {
				inString = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// escaped reports whether the byte at i is preceded by a backslash.
func escaped(s string, i int) bool {
	return i > 0 && s[i-1] == '\\'
}

// splitTopLevel splits s on commas that are outside string literals and
// parentheses. Parts are trimmed; empty trailing parts are dropped.
func splitTopLevel(s string) []string {
	var parts []string
	var cur strings.Builder
	inString := false
	depth := 0

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\'' && !escaped(s, i):
			inString = !inString
			cur.WriteByte(ch)
		case inString:
			cur.WriteByte(ch)
		case ch == '(':
			depth++
			cur.WriteByte(ch)
		case ch == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteByte(ch)
		case ch == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	if last := strings.TrimSpace(cur.String()); last != "" {
		parts = append(parts, last)
	}
	return parts
}

// readTuple reads a parenthesised list starting just after its opening
// parenthesis and returns the raw contents up to the matching close.
func readTuple(s string) (string, bool) {
	inString := false
	depth := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\'' && !escaped(s, i):
			inString = !inString
		case inString:
		case ch == '(':
			depth++
		case ch == ')':
			if depth == 0 {
				return s[:i], true
			}
			depth--
		}
	}
	return "", false
}

// stripLiterals blanks out single-quoted literals so their contents never
// look like column references.
func stripLiterals(s string) string {
	b := []byte(s)
	inString := false
	for i := range b {
		switch {
		case b[i] == '\'' && !escaped(s, i):
			inString = !inString
		case inString:
			b[i] = ' '
		}
	}
	return string(b)
}
