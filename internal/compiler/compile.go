package compiler

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ixengine/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// DefaultFilename names the document in positions when the caller does not.
const DefaultFilename = "document.json"

// Compile checks raw against the document schema, decodes it and runs the
// reference checks. The document is nil when any error-level problem was
// found; warnings are returned alongside a usable document.
func Compile(raw []byte) (*ir.Document, []ValidationError) {
	return CompileNamed(DefaultFilename, raw)
}

// CompileNamed is Compile with a filename for error positions.
func CompileNamed(name string, raw []byte) (*ir.Document, []ValidationError) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []ValidationError{{
			Field:   "schema",
			Message: err.Error(),
			Code:    ErrSchemaInvalid,
			Level:   LevelError,
		}}
	}

	// JSON is a subset of CUE, so the document compiles as-is.
	data := ctx.CompileBytes(raw, cue.Filename(name))
	if err := data.Err(); err != nil {
		return nil, formatCUEErrors(ErrSyntax, name, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Document")).Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEErrors(ErrSchemaViolation, name, err)
	}

	doc, err := ir.Decode(raw)
	if err != nil {
		return nil, []ValidationError{{
			Field:   "document",
			Message: err.Error(),
			Code:    ErrDecode,
			Level:   LevelError,
		}}
	}

	errs := Validate(doc)
	for _, w := range AnalyzeStartCycles(doc) {
		errs = append(errs, ValidationError{
			Field:   "actionLists." + w.Path[0],
			Message: w.Message,
			Code:    WarnStartCycle,
			Level:   LevelWarning,
		})
	}
	if HasErrors(errs) {
		return nil, errs
	}
	return doc, errs
}

// formatCUEErrors flattens a CUE error list into validation errors with
// field paths and document line numbers, ordered by line.
func formatCUEErrors(code, name string, err error) []ValidationError {
	var out []ValidationError
	seen := map[string]bool{}
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		ve := ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Code:    code,
			Level:   LevelError,
			Line:    lineIn(name, errors.Positions(e)),
		}
		if ve.Field == "" {
			ve.Field = "document"
		}
		key := ve.Error()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: "document", Message: err.Error(), Code: code, Level: LevelError})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// lineIn returns the first position that points into the document rather
// than the schema.
func lineIn(name string, positions []token.Pos) int {
	for _, p := range positions {
		if p.IsValid() && p.Filename() == name {
			return p.Line()
		}
	}
	return 0
}
