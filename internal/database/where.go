package database

import (
	"fmt"
	"strings"
)

// WhereBuilder accumulates AND-ed conditions with numbered placeholders.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "col = $n". Empty values are skipped.
func (wb *WhereBuilder) Add(col, val string) {
	if val == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", quoteIdentifier(col), wb.argIndex))
	wb.args = append(wb.args, val)
	wb.argIndex++
}

// AddSearch matches term case-insensitively against every ilikeCols column
// and as a plain substring against likeCols, OR-ed together. LIKE wildcards
// in term are escaped. An empty term is skipped.
func (wb *WhereBuilder) AddSearch(term string, ilikeCols, likeCols []string) {
	if term == "" || len(ilikeCols)+len(likeCols) == 0 {
		return
	}
	placeholder := fmt.Sprintf("$%d", wb.argIndex)
	var parts []string
	for _, col := range ilikeCols {
		parts = append(parts, quoteIdentifier(col)+" ILIKE "+placeholder)
	}
	for _, col := range likeCols {
		parts = append(parts, quoteIdentifier(col)+" LIKE "+placeholder)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+escapeLike(term)+"%")
	wb.argIndex++
}

// NextArgIndex returns the number of the next placeholder.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns " WHERE ..." and its args, or "" and nil with no conditions.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// quoteIdentifier double-quotes a SQL identifier, escaping embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
