package queryir

// Query is a read over one recorded source.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate is a filter condition over the columns of a source.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = value
//   - Compare: field <op> value
//   - Prefix: field starts with a literal prefix
//   - And: all predicates must be true
type Predicate interface {
	predicateNode()
}

// Select reads rows from a source.
//
//	SELECT <fields> FROM <from> WHERE <filter> ORDER BY <source order> LIMIT <limit>
//
// Fields defaults to every column of the source, in column order. A zero
// Limit returns every row. Rows always come back in the source's stable
// order; callers cannot reorder them.
type Select struct {
	From   string    // source name, see Sources
	Fields []string  // columns to read (nil = all)
	Filter Predicate // nil = no filter
	Limit  int
}

func (Select) queryNode() {}

// Equals matches rows whose field equals a literal.
//
// Value must be a string, bool, int, int64 or float64.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// CompareOp is an ordering comparison.
type CompareOp string

const (
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
)

// Compare matches rows whose field orders against a numeric literal.
type Compare struct {
	Field string
	Op    CompareOp
	Value any
}

func (Compare) predicateNode() {}

// Prefix matches rows whose text field starts with Prefix. The prefix is
// literal: wildcard characters have no meaning.
type Prefix struct {
	Field  string
	Prefix string
}

func (Prefix) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where joins the non-nil predicates into one. It returns nil when none
// remain and the single predicate when only one does.
func Where(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
