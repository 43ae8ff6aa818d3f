// Package query composes parameterised PostgreSQL SELECT statements from
// filter predicates, an ordering and a pagination window.
//
// Column and table names are always supplied by code, never by users; user
// input only ever reaches the statement as a positional argument.
package query

import (
	"fmt"
	"math"
	"strings"
)

// Builder accumulates WHERE predicates joined with AND.
type Builder struct {
	conditions []string
	args       []any
	orderBy    string
	limit      int
	offset     int
	windowed   bool
}

// New returns an empty builder with no window.
func New() *Builder {
	return &Builder{}
}

// placeholder appends an argument and returns its $n marker.
func (b *Builder) placeholder(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// Eq adds "column = value".
func (b *Builder) Eq(column string, value any) *Builder {
	b.conditions = append(b.conditions, fmt.Sprintf("%s = %s", column, b.placeholder(value)))
	return b
}

// Contains adds a case-insensitive substring match on one column.
func (b *Builder) Contains(column, substr string) *Builder {
	b.conditions = append(b.conditions, fmt.Sprintf("%s ILIKE %s", column, b.placeholder(LikePattern(substr))))
	return b
}

// ContainsAny adds a case-insensitive substring match that succeeds when any
// of the columns matches. The pattern is bound once and shared.
func (b *Builder) ContainsAny(substr string, columns ...string) *Builder {
	if len(columns) == 0 {
		return b
	}
	p := b.placeholder(LikePattern(substr))
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE %s", column, p)
	}
	b.conditions = append(b.conditions, "("+strings.Join(parts, " OR ")+")")
	return b
}

// Gte adds "column >= value".
func (b *Builder) Gte(column string, value any) *Builder {
	b.conditions = append(b.conditions, fmt.Sprintf("%s >= %s", column, b.placeholder(value)))
	return b
}

// Lte adds "column <= value".
func (b *Builder) Lte(column string, value any) *Builder {
	b.conditions = append(b.conditions, fmt.Sprintf("%s <= %s", column, b.placeholder(value)))
	return b
}

// NotNull adds "column IS NOT NULL".
func (b *Builder) NotNull(column string) *Builder {
	b.conditions = append(b.conditions, column+" IS NOT NULL")
	return b
}

// OrderBy sets the single sort key.
func (b *Builder) OrderBy(column string, descending bool) *Builder {
	b.orderBy = column
	if descending {
		b.orderBy += " DESC"
	} else {
		b.orderBy += " ASC"
	}
	return b
}

// Range restricts the result to rows from..to inclusive (zero-based).
func (b *Builder) Range(from, to int) *Builder {
	if from < 0 {
		from = 0
	}
	b.offset = from
	b.limit = max(to-from+1, 0)
	b.windowed = true
	return b
}

// Page restricts the result to a one-based page of pageSize rows.
func (b *Builder) Page(page, pageSize int) *Builder {
	from, to := Window(page, pageSize)
	return b.Range(from, to)
}

// Window returns the inclusive zero-based row range of the builder's page.
// ok is false when no window has been set.
func (b *Builder) Window() (from, to int, ok bool) {
	if !b.windowed {
		return 0, 0, false
	}
	return b.offset, b.offset + b.limit - 1, true
}

// Where returns the WHERE clause (without the keyword) and its arguments.
// An empty clause means no predicates.
func (b *Builder) Where() (string, []any) {
	return strings.Join(b.conditions, " AND "), append([]any(nil), b.args...)
}

func (b *Builder) whereClause() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

// SelectSQL renders the paginated SELECT over table.
func (b *Builder) SelectSQL(table string, columns []string) (string, []any) {
	args := append([]any(nil), b.args...)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	sb.WriteString(b.whereClause())
	if b.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.orderBy)
	}
	if b.windowed {
		args = append(args, b.limit, b.offset)
		fmt.Fprintf(&sb, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return sb.String(), args
}

// CountSQL renders an exact count over the same predicates.
func (b *Builder) CountSQL(table string) (string, []any) {
	return "SELECT COUNT(*) FROM " + table + b.whereClause(), append([]any(nil), b.args...)
}

// DistinctSQL renders the values of one column over the same predicates.
func (b *Builder) DistinctSQL(table, column string) (string, []any) {
	return "SELECT " + column + " FROM " + table + b.whereClause(), append([]any(nil), b.args...)
}

// Window converts a one-based page into an inclusive zero-based row range.
func Window(page, pageSize int) (from, to int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if page > math.MaxInt/pageSize {
		page = math.MaxInt / pageSize
	}
	from = (page - 1) * pageSize
	return from, from + pageSize - 1
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps s for a substring match, escaping LIKE metacharacters.
func LikePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
