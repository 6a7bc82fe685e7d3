package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a fault detected while the engine is running.
//
// Runtime errors are isolated to one event or instance: the engine logs
// them and carries on, so a bad event never stops the rest of the page from
// animating.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// EventID identifies the event being handled, if any.
	EventID string

	// ActionListID identifies the action list being started, if any.
	ActionListID string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownEventType indicates an event kind with no registry entry.
	ErrCodeUnknownEventType RuntimeErrorCode = "UNKNOWN_EVENT_TYPE"

	// ErrCodeUnknownPlugin indicates a plugin item with no registered plugin.
	ErrCodeUnknownPlugin RuntimeErrorCode = "UNKNOWN_PLUGIN"

	// ErrCodeStartCycle indicates action lists starting each other without
	// a frame boundary in between.
	ErrCodeStartCycle RuntimeErrorCode = "START_CYCLE"

	// ErrCodeMissingActionList indicates a reference to an absent list.
	ErrCodeMissingActionList RuntimeErrorCode = "MISSING_ACTION_LIST"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.EventID != "" && e.ActionListID != "" {
		return fmt.Sprintf("%s: %s (event=%s, action_list=%s)", e.Code, e.Message, e.EventID, e.ActionListID)
	}
	if e.EventID != "" {
		return fmt.Sprintf("%s: %s (event=%s)", e.Code, e.Message, e.EventID)
	}
	if e.ActionListID != "" {
		return fmt.Sprintf("%s: %s (action_list=%s)", e.Code, e.Message, e.ActionListID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err wraps a RuntimeError with the given code.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsStartCycleError returns true if the error is a start-cycle error.
func IsStartCycleError(err error) bool {
	return HasCode(err, ErrCodeStartCycle)
}

// IsUnknownPluginError returns true if the error is an unknown-plugin error.
func IsUnknownPluginError(err error) bool {
	return HasCode(err, ErrCodeUnknownPlugin)
}

// NewUnknownEventTypeError creates a RuntimeError for an unregistered kind.
func NewUnknownEventTypeError(eventID, kind string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownEventType,
		Message: fmt.Sprintf("event type %q is not registered; event not wired", kind),
		EventID: eventID,
		Details: map[string]string{"event_type": kind},
	}
}

// NewUnknownPluginError creates a RuntimeError for an unregistered plugin.
func NewUnknownPluginError(actionType string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownPlugin,
		Message: fmt.Sprintf("no plugin registered for %q", actionType),
		Details: map[string]string{"action_type": actionType},
	}
}

// NewStartCycleError creates a RuntimeError for exceeding the start depth.
func NewStartCycleError(actionListID string, depth, maxDepth int) *RuntimeError {
	return &RuntimeError{
		Code:         ErrCodeStartCycle,
		Message:      fmt.Sprintf("action list start depth exceeded (%d >= %d)", depth, maxDepth),
		ActionListID: actionListID,
		Details: map[string]string{
			"depth":     fmt.Sprintf("%d", depth),
			"max_depth": fmt.Sprintf("%d", maxDepth),
		},
	}
}

// NewMissingActionListError creates a RuntimeError for a dangling reference.
func NewMissingActionListError(eventID, actionListID string) *RuntimeError {
	return &RuntimeError{
		Code:         ErrCodeMissingActionList,
		Message:      "action list not found",
		EventID:      eventID,
		ActionListID: actionListID,
	}
}
