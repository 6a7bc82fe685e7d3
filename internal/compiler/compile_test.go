package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ixengine/internal/ir"
)

const validDoc = `{
  "site": {"mediaQueries": [
    {"key": "main", "min": 992, "max": 10000},
    {"key": "small", "min": 0, "max": 991}
  ]},
  "events": {
    "e-1": {
      "eventTypeId": "MOUSE_CLICK",
      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1", "autoStopEventId": "e-2"}},
      "target": {"appliesTo": "ELEMENT", "id": "btn"},
      "mediaQueries": ["main"],
      "config": {"loop": false}
    },
    "e-2": {
      "eventTypeId": "MOUSE_SECOND_CLICK",
      "action": {"actionTypeId": "TRANSFORM_SCALE", "config": {"duration": 200, "easing": [0.25, 0.1, 0.25, 1], "xValue": 1}},
      "target": {"appliesTo": "ELEMENT", "id": "btn"},
      "config": {}
    },
    "e-3": {
      "eventTypeId": "PAGE_SCROLL",
      "action": {"actionTypeId": "GENERAL_CONTINUOUS_ACTION", "config": {"actionListId": "a-2"}},
      "target": {"appliesTo": "PAGE"},
      "config": [{"continuousParameterGroupId": "p-1", "smoothing": 50}]
    }
  },
  "actionLists": {
    "a-1": {
      "actionItemGroups": [{"actionItems": [
        {"id": "i-1", "actionTypeId": "TRANSFORM_MOVE", "config": {"duration": 500, "easing": "ease", "target": {"id": "box", "useEventTarget": "CHILDREN"}, "xValue": 100, "xUnit": "px"}},
        {"id": "i-2", "actionTypeId": "GENERAL_DISPLAY", "config": {"value": "none", "target": null}}
      ]}]
    },
    "a-2": {
      "continuousParameterGroups": [{
        "id": "p-1",
        "type": "SCROLL_PROGRESS",
        "continuousActionGroups": [
          {"keyframe": 0, "actionItems": [{"id": "i-3", "actionTypeId": "STYLE_OPACITY", "config": {"value": 0}}]},
          {"keyframe": 100, "actionItems": [{"id": "i-4", "actionTypeId": "STYLE_OPACITY", "config": {"value": 1}}]}
        ]
      }]
    }
  }
}`

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestCompile_Valid(t *testing.T) {
	doc, errs := Compile([]byte(validDoc))
	require.Empty(t, errs)
	require.NotNil(t, doc)

	assert.Len(t, doc.Events, 3)
	assert.Equal(t, "e-1", doc.Events["e-1"].ID)
	assert.Equal(t, ir.ScopeChildren, doc.ActionLists["a-1"].ActionItemGroups[0].ActionItems[0].Config.Target.UseEventTarget)
	assert.Len(t, doc.Events["e-3"].Config.Continuous, 1)
}

func TestCompile_Empty(t *testing.T) {
	doc, errs := Compile([]byte(`{}`))
	require.Empty(t, errs)
	require.NotNil(t, doc)
	assert.Empty(t, doc.Events)
}

// =============================================================================
// Loading errors
// =============================================================================

func TestCompile_SyntaxError(t *testing.T) {
	doc, errs := CompileNamed("broken.json", []byte("{\n  \"events\": {\n    \"e-1\": \n}"))
	assert.Nil(t, doc)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrSyntax, errs[0].Code)
	assert.Equal(t, LevelError, errs[0].Level)
}

func TestCompile_SchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "negative duration",
			doc:   `{"actionLists": {"a-1": {"actionItemGroups": [{"actionItems": [{"actionTypeId": "TRANSFORM_MOVE", "config": {"duration": -5}}]}]}}}`,
			field: "duration",
		},
		{
			name:  "missing event type",
			doc:   `{"events": {"e-1": {"action": {"actionTypeId": "TRANSFORM_MOVE"}}}}`,
			field: "eventTypeId",
		},
		{
			name:  "keyframe out of range",
			doc:   `{"actionLists": {"a-1": {"continuousParameterGroups": [{"id": "p-1", "continuousActionGroups": [{"keyframe": 140, "actionItems": []}]}]}}}`,
			field: "keyframe",
		},
		{
			name:  "smoothing out of range",
			doc:   `{"events": {"e-1": {"eventTypeId": "PAGE_SCROLL", "action": {"actionTypeId": "GENERAL_CONTINUOUS_ACTION"}, "config": [{"continuousParameterGroupId": "p-1", "smoothing": 101}]}}}`,
			field: "config",
		},
		{
			name:  "bad applies to",
			doc:   `{"events": {"e-1": {"eventTypeId": "MOUSE_CLICK", "action": {"actionTypeId": "TRANSFORM_MOVE"}, "target": {"appliesTo": "WINDOW"}}}}`,
			field: "appliesTo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, errs := Compile([]byte(tt.doc))
			assert.Nil(t, doc)
			require.NotEmpty(t, errs)

			found := false
			for _, e := range errs {
				assert.Equal(t, ErrSchemaViolation, e.Code)
				if strings.Contains(e.Field, tt.field) {
					found = true
				}
			}
			assert.True(t, found, "no error on %s in %v", tt.field, errs)
		})
	}
}

// =============================================================================
// Reference checks
// =============================================================================

func TestCompile_ReferenceErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing event list",
			doc: `{"events": {"e-1": {"eventTypeId": "MOUSE_CLICK",
			  "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-404"}}}}}`,
			want: ErrMissingActionList,
		},
		{
			name: "missing list id",
			doc: `{"events": {"e-1": {"eventTypeId": "MOUSE_CLICK",
			  "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {}}}}}`,
			want: ErrMissingListID,
		},
		{
			name: "missing item list",
			doc: `{"actionLists": {"a-1": {"actionItemGroups": [{"actionItems": [
			  {"actionTypeId": "GENERAL_STOP_ACTION", "config": {"actionListId": "a-404"}}]}]}}}`,
			want: ErrMissingActionList,
		},
		{
			name: "missing auto stop event",
			doc: `{"events": {"e-1": {"eventTypeId": "MOUSE_CLICK",
			  "action": {"actionTypeId": "TRANSFORM_MOVE", "config": {"autoStopEventId": "e-404"}}}}}`,
			want: ErrMissingAutoStopEvent,
		},
		{
			name: "missing parameter group",
			doc: `{"events": {"e-1": {"eventTypeId": "PAGE_SCROLL",
			  "action": {"actionTypeId": "GENERAL_CONTINUOUS_ACTION", "config": {"actionListId": "a-1"}},
			  "config": [{"continuousParameterGroupId": "p-404"}]}},
			  "actionLists": {"a-1": {"continuousParameterGroups": [{"id": "p-1", "continuousActionGroups": []}]}}}`,
			want: ErrMissingParameterGroup,
		},
		{
			name: "unknown media query",
			doc: `{"site": {"mediaQueries": [{"key": "main", "min": 0, "max": 10000}]},
			  "events": {"e-1": {"eventTypeId": "MOUSE_CLICK", "mediaQueries": ["tiny"],
			  "action": {"actionTypeId": "TRANSFORM_MOVE"}}}}`,
			want: ErrUnknownMediaQuery,
		},
		{
			name: "duplicate media query",
			doc: `{"site": {"mediaQueries": [
			  {"key": "main", "min": 0, "max": 500}, {"key": "main", "min": 501, "max": 10000}]}}`,
			want: ErrDuplicateMediaQuery,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, errs := Compile([]byte(tt.doc))
			assert.Nil(t, doc, "error-level problems reject the document")
			assert.Contains(t, codes(errs), tt.want)
		})
	}
}

func TestCompile_WarningsKeepDocument(t *testing.T) {
	doc, errs := Compile([]byte(`{
	  "events": {"e-1": {"eventTypeId": "MOUSE_WIGGLE", "action": {"actionTypeId": "FADE_SIDEWAYS"}}}
	}`))
	require.NotNil(t, doc)
	assert.Equal(t, []string{WarnUnknownEventType, WarnUnknownActionType}, codes(errs))
	assert.False(t, HasErrors(errs))
	for _, e := range errs {
		assert.True(t, e.IsWarning())
	}
}

func TestCompile_StartCycleWarning(t *testing.T) {
	doc, errs := Compile([]byte(`{"actionLists": {
	  "a-1": {"actionItemGroups": [{"actionItems": [{"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-2"}}]}]},
	  "a-2": {"actionItemGroups": [{"actionItems": [{"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}}]}]}
	}}`))
	require.NotNil(t, doc)
	require.Len(t, errs, 1)
	assert.Equal(t, WarnStartCycle, errs[0].Code)
	assert.Equal(t, "actionLists.a-1", errs[0].Field)
	assert.Contains(t, errs[0].Message, "a-1 → a-2 → a-1")
}

// =============================================================================
// ValidationError
// =============================================================================

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		err  ValidationError
		want string
	}{
		{
			ValidationError{Field: "events.e-1", Message: "bad", Code: ErrMissingActionList},
			"[E210] events.e-1: bad",
		},
		{
			ValidationError{Field: "document", Message: "unexpected }", Code: ErrSyntax, Line: 4},
			"[E201] line 4: document: unexpected }",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestHasErrors(t *testing.T) {
	assert.False(t, HasErrors(nil))
	assert.False(t, HasErrors([]ValidationError{{Level: LevelWarning}}))
	assert.True(t, HasErrors([]ValidationError{{Level: LevelWarning}, {Level: LevelError}}))
}
