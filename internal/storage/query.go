package storage

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// dialect abstracts the differences between the SQL backends: placeholder
// syntax and how timestamps are bound (SQLite stores unix nanoseconds,
// Postgres binds time.Time natively).
type dialect struct {
	placeholder func(n int) string
	timeArg     func(t time.Time) any
}

var (
	sqliteDialect = dialect{
		placeholder: func(int) string { return "?" },
		timeArg:     func(t time.Time) any { return t.UTC().UnixNano() },
	}
	postgresDialect = dialect{
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		timeArg:     func(t time.Time) any { return t.UTC() },
	}
)

// buildWhere compiles a predicate into a WHERE clause and its arguments.
// Conditions are ANDed in predicate order. The returned clause includes
// the leading "WHERE"; an empty predicate yields an empty string.
func buildWhere(p core.Predicate, d dialect) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := func() string {
		return d.placeholder(len(args))
	}

	for _, c := range p.Conditions {
		switch c := c.(type) {
		case core.OwnerIs:
			args = append(args, c.Owner)
			clauses = append(clauses, "owner = "+next())
		case core.TypeIs:
			args = append(args, string(c.Type))
			clauses = append(clauses, "entry_type = "+next())
		case core.CategoryIs:
			args = append(args, c.Category)
			clauses = append(clauses, "category = "+next())
		case core.CreatedWindow:
			if !c.Start.IsZero() {
				args = append(args, d.timeArg(c.Start))
				clauses = append(clauses, "created_at >= "+next())
			}
			if !c.End.IsZero() {
				op := "< "
				if c.IncludeEnd {
					op = "<= "
				}
				args = append(args, d.timeArg(c.End))
				clauses = append(clauses, "created_at "+op+next())
			}
		case core.AmountBetween:
			if c.Min != nil {
				args = append(args, *c.Min)
				clauses = append(clauses, "amount_cents >= "+next())
			}
			if c.Max != nil {
				args = append(args, *c.Max)
				clauses = append(clauses, "amount_cents <= "+next())
			}
		case core.KeywordContains:
			pattern := likePattern(c.Keyword)
			args = append(args, pattern)
			first := next()
			args = append(args, pattern)
			second := next()
			clauses = append(clauses,
				"(lower(title) LIKE "+first+" ESCAPE '\\' OR lower(category) LIKE "+second+" ESCAPE '\\')")
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// likePattern builds a case-insensitive literal substring pattern. LIKE
// metacharacters in the keyword are escaped so the match stays literal.
func likePattern(keyword string) string {
	k := strings.ToLower(keyword)
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(k) + "%"
}

func orderClause(s Sort) string {
	if s == SortCreatedDesc {
		return " ORDER BY created_at DESC"
	}
	return ""
}
