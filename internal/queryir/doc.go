// Package queryir defines the filter language used to search recorded runs.
//
// A Query names a recorded source (paints or frames), the columns to read
// and a Predicate tree. Backends compile the tree; the querysql package
// turns it into parameterized SQLite.
//
// Query and Predicate are sealed interfaces using the marker method pattern,
// so backends can switch over every node type:
//
//	switch q := query.(type) {
//	case Select:
//	    // handle select
//	default:
//	    // impossible
//	}
//
// Field names are checked against the known columns of each source by
// Validate before a backend sees them. Values are literals and are never
// spliced into backend text.
package queryir
