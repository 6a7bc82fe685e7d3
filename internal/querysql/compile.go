// Package querysql compiles queryir queries to parameterized SQLite.
package querysql

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/roach88/ixengine/internal/queryir"
)

// orderKeys holds the stable ORDER BY of each source. Paints follow the
// order they were written; frames follow their index.
var orderKeys = map[string]string{
	"paints": "run_id COLLATE BINARY ASC, frame ASC, seq ASC",
	"frames": "run_id COLLATE BINARY ASC, frame ASC",
}

// SQLCompiler compiles queryir queries to SQL for SQLite.
//
// Every query is validated first, so column names in the output are always
// known identifiers. Values are parameterized, never interpolated, and every
// query carries its source's ORDER BY.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL text and its parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	fields := q.Fields
	if len(fields) == 0 {
		fields = queryir.Sources[q.From].Names()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(fields, ", "), q.From)

	var params []any
	if q.Filter != nil {
		where, p, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE " + where)
		params = p
	}

	b.WriteString(" ORDER BY " + orderKeys[q.From])

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.Compare:
		return c.compileCompare(pred)
	case *queryir.Compare:
		return c.compileCompare(*pred)
	case queryir.Prefix:
		return c.compilePrefix(pred)
	case *queryir.Prefix:
		return c.compilePrefix(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	return eq.Field + " = ?", []any{eq.Value}, nil
}

func (c *SQLCompiler) compileCompare(cmp queryir.Compare) (string, []any, error) {
	return fmt.Sprintf("%s %s ?", cmp.Field, cmp.Op), []any{cmp.Value}, nil
}

// compilePrefix compares a substring rather than using LIKE, so % and _
// in the prefix match themselves.
func (c *SQLCompiler) compilePrefix(p queryir.Prefix) (string, []any, error) {
	if p.Prefix == "" {
		return "1 = 1", nil, nil
	}
	n := utf8.RuneCountInString(p.Prefix)
	return fmt.Sprintf("substr(%s, 1, ?) = ?", p.Field), []any{n, p.Prefix}, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}
