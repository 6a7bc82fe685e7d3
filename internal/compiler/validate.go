package compiler

import (
	"fmt"
	"sort"

	"github.com/roach88/ixengine/internal/events"
	"github.com/roach88/ixengine/internal/ir"
)

// Validation codes (E200-E299). Warnings use the W2xx range.
const (
	// Loading (E200-E209)
	ErrSchemaInvalid   = "E200" // embedded schema failed to compile
	ErrSyntax          = "E201" // document is not valid JSON
	ErrSchemaViolation = "E202" // document does not satisfy the schema
	ErrDecode          = "E203" // document could not be decoded

	// References (E210-E219)
	ErrMissingActionList     = "E210" // actionListId names no action list
	ErrMissingAutoStopEvent  = "E211" // autoStopEventId names no event
	ErrMissingParameterGroup = "E212" // continuousParameterGroupId not in the list
	ErrUnknownMediaQuery     = "E213" // event names an undefined media query key
	ErrDuplicateMediaQuery   = "E214" // media query key defined twice
	ErrMissingListID         = "E215" // start/continuous action without actionListId

	// Warnings (W220-W229)
	WarnUnknownEventType  = "W220" // event kind has no handler; it is skipped at runtime
	WarnUnknownActionType = "W221" // action kind renders nothing
	WarnStartCycle        = "W222" // action lists start each other
)

// Levels.
const (
	LevelError   = "error"
	LevelWarning = "warning"
)

// ValidationError is one problem found in a document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Level   string `json:"level"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsWarning reports whether the problem leaves the document usable.
func (e ValidationError) IsWarning() bool { return e.Level == LevelWarning }

// HasErrors reports whether any entry is error-level.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.IsWarning() {
			return true
		}
	}
	return false
}

// Validate runs the reference checks on a decoded document.
// Returns all problems found (does not fail-fast), in event then list order.
func Validate(doc *ir.Document) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateMediaQueries(doc)...)
	for _, id := range sortedKeys(doc.Events) {
		errs = append(errs, validateEvent(doc, id, doc.Events[id])...)
	}
	for _, id := range sortedKeys(doc.ActionLists) {
		errs = append(errs, validateActionList(doc, id, doc.ActionLists[id])...)
	}
	return errs
}

func validateMediaQueries(doc *ir.Document) []ValidationError {
	var errs []ValidationError
	seen := map[string]bool{}
	for i, mq := range doc.Site.MediaQueries {
		if seen[mq.Key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("site.mediaQueries.%d.key", i),
				Message: fmt.Sprintf("media query %q is defined more than once", mq.Key),
				Code:    ErrDuplicateMediaQuery,
				Level:   LevelError,
			})
		}
		seen[mq.Key] = true
	}
	return errs
}

func validateEvent(doc *ir.Document, id string, ev ir.Event) []ValidationError {
	var errs []ValidationError
	field := "events." + id

	if _, ok := events.Lookup(ev.EventTypeID); !ok {
		errs = append(errs, ValidationError{
			Field:   field + ".eventTypeId",
			Message: fmt.Sprintf("unknown event type %q", ev.EventTypeID),
			Code:    WarnUnknownEventType,
			Level:   LevelWarning,
		})
	}

	if len(ev.MediaQueries) > 0 {
		defined := map[string]bool{}
		for _, mq := range doc.Site.MediaQueries {
			defined[mq.Key] = true
		}
		for i, key := range ev.MediaQueries {
			if !defined[key] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.mediaQueries.%d", field, i),
					Message: fmt.Sprintf("media query %q is not defined by the site", key),
					Code:    ErrUnknownMediaQuery,
					Level:   LevelError,
				})
			}
		}
	}

	action := ev.Action
	cfg := action.Config
	switch action.ActionTypeID {
	case ir.ActionGeneralStart, ir.ActionGeneralContinuous:
		list, ok := doc.ActionLists[cfg.ActionListID]
		switch {
		case cfg.ActionListID == "":
			errs = append(errs, ValidationError{
				Field:   field + ".action.config.actionListId",
				Message: "action list id is required",
				Code:    ErrMissingListID,
				Level:   LevelError,
			})
		case !ok:
			errs = append(errs, missingList(field+".action.config.actionListId", cfg.ActionListID))
		case action.ActionTypeID == ir.ActionGeneralContinuous:
			for i, cc := range ev.Config.Continuous {
				if !hasParameterGroup(list, cc.ContinuousParameterGroupID) {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("%s.config.%d.continuousParameterGroupId", field, i),
						Message: fmt.Sprintf("action list %q has no parameter group %q", cfg.ActionListID, cc.ContinuousParameterGroupID),
						Code:    ErrMissingParameterGroup,
						Level:   LevelError,
					})
				}
			}
		}
	default:
		if action.ActionTypeID.Category() == ir.CategoryUnknown {
			errs = append(errs, unknownAction(field+".action.actionTypeId", action.ActionTypeID))
		}
	}

	if stop := cfg.AutoStopEventID; stop != "" {
		if _, ok := doc.Events[stop]; !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".action.config.autoStopEventId",
				Message: fmt.Sprintf("event %q does not exist", stop),
				Code:    ErrMissingAutoStopEvent,
				Level:   LevelError,
			})
		}
	}
	return errs
}

func validateActionList(doc *ir.Document, id string, list ir.ActionList) []ValidationError {
	var errs []ValidationError
	check := func(field string, item ir.ActionItem) {
		switch item.ActionTypeID {
		case ir.ActionGeneralStart, ir.ActionGeneralStop:
			if ref := item.Config.ActionListID; ref != "" {
				if _, ok := doc.ActionLists[ref]; !ok {
					errs = append(errs, missingList(field+".config.actionListId", ref))
				}
			}
		}
		if item.ActionTypeID.Category() == ir.CategoryUnknown {
			errs = append(errs, unknownAction(field+".actionTypeId", item.ActionTypeID))
		}
	}

	field := "actionLists." + id
	for g, group := range list.ActionItemGroups {
		for i, item := range group.ActionItems {
			check(fmt.Sprintf("%s.actionItemGroups.%d.actionItems.%d", field, g, i), item)
		}
	}
	for p, pg := range list.ContinuousParameterGroups {
		for k, cag := range pg.ContinuousActionGroups {
			for i, item := range cag.ActionItems {
				check(fmt.Sprintf("%s.continuousParameterGroups.%d.continuousActionGroups.%d.actionItems.%d", field, p, k, i), item)
			}
		}
	}
	return errs
}

func missingList(field, id string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("action list %q does not exist", id),
		Code:    ErrMissingActionList,
		Level:   LevelError,
	}
}

func unknownAction(field string, t ir.ActionType) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("unknown action type %q", t),
		Code:    WarnUnknownActionType,
		Level:   LevelWarning,
	}
}

func hasParameterGroup(list ir.ActionList, id string) bool {
	for _, pg := range list.ContinuousParameterGroups {
		if pg.ID == id {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
