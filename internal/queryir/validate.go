package queryir

import (
	"errors"
	"fmt"
	"slices"
)

// Kind is the storage class of a column.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindReal
)

// Column is one readable column of a source.
type Column struct {
	Name string
	Kind Kind
}

// Source describes a recorded table.
type Source struct {
	Columns []Column
}

// Column looks up a column by name.
func (s Source) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in declaration order.
func (s Source) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Sources lists every source a query may read.
var Sources = map[string]Source{
	"paints": {Columns: []Column{
		{"run_id", KindText},
		{"frame", KindInteger},
		{"seq", KindInteger},
		{"element", KindText},
		{"op", KindText},
		{"name", KindText},
		{"value", KindText},
	}},
	"frames": {Columns: []Column{
		{"run_id", KindText},
		{"frame", KindInteger},
		{"time_ms", KindReal},
		{"instances", KindInteger},
	}},
}

// ValidationResult lists every problem found in a query.
type ValidationResult struct {
	IsValid  bool
	Problems []string
}

// Err folds the problems into one error, or nil when the query is valid.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	errs := make([]error, len(r.Problems))
	for i, p := range r.Problems {
		errs[i] = errors.New(p)
	}
	return errors.Join(errs...)
}

// Validate checks a query against Sources: the source must exist, every
// field must name one of its columns and every literal must suit the
// column it is compared with.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)
	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	src, ok := Sources[sel.From]
	if !ok {
		v.addProblem("unknown source %q", sel.From)
		return
	}
	seen := map[string]bool{}
	for _, f := range sel.Fields {
		if _, ok := src.Column(f); !ok {
			v.addProblem("%s has no column %q", sel.From, f)
		}
		if seen[f] {
			v.addProblem("column %q selected twice", f)
		}
		seen[f] = true
	}
	if sel.Limit < 0 {
		v.addProblem("negative limit %d", sel.Limit)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.From, src, sel.Filter)
	}
}

func (v *validator) validatePredicate(from string, src Source, p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateEquals(from, src, pred)
	case *Equals:
		v.validateEquals(from, src, *pred)
	case Compare:
		v.validateCompare(from, src, pred)
	case *Compare:
		v.validateCompare(from, src, *pred)
	case Prefix:
		v.validatePrefix(from, src, pred)
	case *Prefix:
		v.validatePrefix(from, src, *pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(from, src, sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(from, src, sub)
		}
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) column(from string, src Source, field string) (Column, bool) {
	col, ok := src.Column(field)
	if !ok {
		v.addProblem("%s has no column %q", from, field)
	}
	return col, ok
}

func (v *validator) validateEquals(from string, src Source, eq Equals) {
	col, ok := v.column(from, src, eq.Field)
	if !ok {
		return
	}
	switch eq.Value.(type) {
	case string:
		if col.Kind != KindText {
			v.addProblem("column %q compared to text", eq.Field)
		}
	case int, int64, float64, bool:
		if col.Kind == KindText {
			v.addProblem("text column %q compared to %T", eq.Field, eq.Value)
		}
	default:
		v.addProblem("unsupported value type %T for %q", eq.Value, eq.Field)
	}
}

var compareOps = []CompareOp{OpLess, OpLessEqual, OpGreater, OpGreaterEqual}

func (v *validator) validateCompare(from string, src Source, cmp Compare) {
	if !slices.Contains(compareOps, cmp.Op) {
		v.addProblem("unknown comparison %q", cmp.Op)
	}
	col, ok := v.column(from, src, cmp.Field)
	if !ok {
		return
	}
	if col.Kind == KindText {
		v.addProblem("cannot order text column %q", cmp.Field)
	}
	switch cmp.Value.(type) {
	case int, int64, float64:
	default:
		v.addProblem("unsupported value type %T for %q", cmp.Value, cmp.Field)
	}
}

func (v *validator) validatePrefix(from string, src Source, p Prefix) {
	col, ok := v.column(from, src, p.Field)
	if !ok {
		return
	}
	if col.Kind != KindText {
		v.addProblem("prefix match on non-text column %q", p.Field)
	}
}
