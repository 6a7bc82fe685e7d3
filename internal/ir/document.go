package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Document is one imported interaction document.
type Document struct {
	Events      map[string]Event      `json:"events"`
	ActionLists map[string]ActionList `json:"actionLists"`
	Site        Site                  `json:"site"`
}

// Site carries page-wide configuration.
type Site struct {
	MediaQueries []MediaQuery `json:"mediaQueries"`
}

// MediaQuery is one named viewport-width range, inclusive on both ends.
type MediaQuery struct {
	Key string  `json:"key"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Event is an authored trigger definition.
type Event struct {
	ID           string        `json:"id"`
	EventTypeID  EventType     `json:"eventTypeId"`
	Action       EventAction   `json:"action"`
	Target       EventTarget   `json:"target"`
	Targets      []EventTarget `json:"targets,omitempty"`
	MediaQueries []string      `json:"mediaQueries,omitempty"`
	Config       EventConfig   `json:"config"`
}

// EventAction names what an event does when it fires.
type EventAction struct {
	ActionTypeID ActionType   `json:"actionTypeId"`
	Config       ActionConfig `json:"config"`
}

// EventTarget is where an event listens.
type EventTarget struct {
	AppliesTo AppliesTo `json:"appliesTo"`
	ID        string    `json:"id,omitempty"`
	Selector  string    `json:"selector,omitempty"`
}

// EventConfig is either a discrete trigger config (an object) or a list of
// continuous-parameter configs (an array).
type EventConfig struct {
	Discrete   DiscreteConfig
	Continuous []ContinuousConfig
}

// DiscreteConfig configures fire-once triggers.
type DiscreteConfig struct {
	Loop              bool     `json:"loop,omitempty"`
	PlayInReverse     bool     `json:"playInReverse,omitempty"`
	ScrollOffsetValue *float64 `json:"scrollOffsetValue,omitempty"`
	ScrollOffsetUnit  string   `json:"scrollOffsetUnit,omitempty"`
	Delay             float64  `json:"delay,omitempty"`
	Direction         string   `json:"direction,omitempty"`
	EffectIn          bool     `json:"effectIn,omitempty"`
}

// ContinuousConfig binds an event to one continuous parameter group.
type ContinuousConfig struct {
	ContinuousParameterGroupID string  `json:"continuousParameterGroupId"`
	Smoothing                  float64 `json:"smoothing,omitempty"`
	RestingState               float64 `json:"restingState,omitempty"`
	BasedOn                    string  `json:"basedOn,omitempty"`
	SelectedAxis               string  `json:"selectedAxis,omitempty"`
	Reverse                    bool    `json:"reverse,omitempty"`
	StartsEntering             bool    `json:"startsEntering,omitempty"`
	StartsExiting              bool    `json:"startsExiting,omitempty"`
	AddStartOffset             bool    `json:"addStartOffset,omitempty"`
	AddEndOffset               bool    `json:"addEndOffset,omitempty"`
	AddOffsetValue             float64 `json:"addOffsetValue,omitempty"`
	EndOffsetValue             float64 `json:"endOffsetValue,omitempty"`
}

// UnmarshalJSON accepts an object, an array, or null.
func (c *EventConfig) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = EventConfig{}
		return nil
	}
	if data[0] == '[' {
		var list []ContinuousConfig
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("continuous config: %w", err)
		}
		*c = EventConfig{Continuous: list}
		return nil
	}

	var discrete DiscreteConfig
	if err := json.Unmarshal(data, &discrete); err != nil {
		return fmt.Errorf("event config: %w", err)
	}
	out := EventConfig{Discrete: discrete}

	// A single continuous config may be authored as a bare object.
	var single ContinuousConfig
	if err := json.Unmarshal(data, &single); err == nil && single.ContinuousParameterGroupID != "" {
		out.Continuous = []ContinuousConfig{single}
	}
	*c = out
	return nil
}

// MarshalJSON writes the array form when continuous configs are present.
func (c EventConfig) MarshalJSON() ([]byte, error) {
	if len(c.Continuous) > 0 {
		return json.Marshal(c.Continuous)
	}
	return json.Marshal(c.Discrete)
}

// ActionList is a timeline.
type ActionList struct {
	ID                          string                     `json:"id"`
	Title                       string                     `json:"title,omitempty"`
	ActionItemGroups            []ActionItemGroup          `json:"actionItemGroups,omitempty"`
	ContinuousParameterGroups   []ContinuousParameterGroup `json:"continuousParameterGroups,omitempty"`
	UseFirstGroupAsInitialState bool                       `json:"useFirstGroupAsInitialState,omitempty"`
}

// ActionItemGroup is one step: items applied simultaneously.
type ActionItemGroup struct {
	ActionItems []ActionItem `json:"actionItems"`
}

// ContinuousParameterGroup maps one continuous driver to keyframed items.
type ContinuousParameterGroup struct {
	ID                     string                  `json:"id"`
	Type                   string                  `json:"type,omitempty"`
	ParameterLabel         string                  `json:"parameterLabel,omitempty"`
	ContinuousActionGroups []ContinuousActionGroup `json:"continuousActionGroups"`
}

// ContinuousActionGroup is the set of item values at one keyframe (0..100).
type ContinuousActionGroup struct {
	Keyframe    float64      `json:"keyframe"`
	ActionItems []ActionItem `json:"actionItems"`
}

// ActionItem is one atomic animated change.
type ActionItem struct {
	ID           string       `json:"id"`
	ActionTypeID ActionType   `json:"actionTypeId"`
	Config       ActionConfig `json:"config"`
}

// ActionConfig holds the per-kind fields of an action item. Which fields
// are meaningful depends on the action type.
type ActionConfig struct {
	Delay    float64 `json:"delay,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Easing   Easing  `json:"easing,omitempty"`
	Target   *Target `json:"target,omitempty"`

	XValue *float64 `json:"xValue,omitempty"`
	YValue *float64 `json:"yValue,omitempty"`
	ZValue *float64 `json:"zValue,omitempty"`
	XUnit  string   `json:"xUnit,omitempty"`
	YUnit  string   `json:"yUnit,omitempty"`
	ZUnit  string   `json:"zUnit,omitempty"`

	Value FlexValue `json:"value,omitempty"`
	Unit  string    `json:"unit,omitempty"`

	WidthValue  *float64 `json:"widthValue,omitempty"`
	HeightValue *float64 `json:"heightValue,omitempty"`
	WidthUnit   string   `json:"widthUnit,omitempty"`
	HeightUnit  string   `json:"heightUnit,omitempty"`
	Locked      bool     `json:"locked,omitempty"`

	RValue *float64 `json:"rValue,omitempty"`
	GValue *float64 `json:"gValue,omitempty"`
	BValue *float64 `json:"bValue,omitempty"`
	AValue *float64 `json:"aValue,omitempty"`

	BlurValue   *float64 `json:"blurValue,omitempty"`
	SpreadValue *float64 `json:"spreadValue,omitempty"`
	Inset       bool     `json:"inset,omitempty"`

	Filters []Filter `json:"filters,omitempty"`

	ActionListID    string `json:"actionListId,omitempty"`
	AutoStopEventID string `json:"autoStopEventId,omitempty"`
	PlayInReverse   bool   `json:"playInReverse,omitempty"`

	ClassName string `json:"className,omitempty"`
	Command   string `json:"command,omitempty"`
}

// Filter is one CSS filter function.
type Filter struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Target describes which elements an action item affects.
type Target struct {
	ID             string    `json:"id,omitempty"`
	Selector       string    `json:"selector,omitempty"`
	AppliesTo      AppliesTo `json:"appliesTo,omitempty"`
	UseEventTarget Scope     `json:"useEventTarget,omitempty"`
	BoundaryMode   bool      `json:"boundaryMode,omitempty"`
}

// UnmarshalJSON maps the authored `useEventTarget: true` to ScopeSelf.
func (s *Scope) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*s = ScopeSelf
		return nil
	case "false", "null":
		*s = ScopeNone
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("useEventTarget: %w", err)
	}
	*s = Scope(str)
	return nil
}

// Easing is either a named curve or a cubic-bezier control tuple.
type Easing struct {
	Name   string
	Bezier []float64
}

// IsZero reports whether no easing was authored.
func (e Easing) IsZero() bool { return e.Name == "" && len(e.Bezier) == 0 }

// UnmarshalJSON accepts a curve name or a four-number array.
func (e *Easing) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = Easing{}
		return nil
	}
	if data[0] == '[' {
		var tuple []float64
		if err := json.Unmarshal(data, &tuple); err != nil {
			return fmt.Errorf("easing: %w", err)
		}
		if len(tuple) != 4 {
			return fmt.Errorf("easing: bezier needs 4 control numbers, got %d", len(tuple))
		}
		*e = Easing{Bezier: tuple}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("easing: %w", err)
	}
	*e = Easing{Name: name}
	return nil
}

// MarshalJSON writes the authored form back.
func (e Easing) MarshalJSON() ([]byte, error) {
	if len(e.Bezier) > 0 {
		return json.Marshal(e.Bezier)
	}
	return json.Marshal(e.Name)
}

// FlexValue holds a `value` field that is numeric for most kinds and a
// keyword for GENERAL_DISPLAY.
type FlexValue struct {
	Number *float64
	Text   string
}

// IsZero reports whether no value was authored.
func (v FlexValue) IsZero() bool { return v.Number == nil && v.Text == "" }

// UnmarshalJSON accepts a number or a string.
func (v *FlexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = FlexValue{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FlexValue{Text: s}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	*v = FlexValue{Number: &n}
	return nil
}

// MarshalJSON writes whichever form is set.
func (v FlexValue) MarshalJSON() ([]byte, error) {
	if v.Number != nil {
		return json.Marshal(*v.Number)
	}
	return json.Marshal(v.Text)
}

// Decode parses an interaction document. Missing maps decode as empty.
func Decode(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc.normalize()
	return &doc, nil
}

func (d *Document) normalize() {
	if d.Events == nil {
		d.Events = map[string]Event{}
	}
	if d.ActionLists == nil {
		d.ActionLists = map[string]ActionList{}
	}
	for id, ev := range d.Events {
		if ev.ID == "" {
			ev.ID = id
			d.Events[id] = ev
		}
	}
	for id, list := range d.ActionLists {
		if list.ID == "" {
			list.ID = id
			d.ActionLists[id] = list
		}
	}
}

// MediaQueryKeys returns the breakpoint keys in authored order.
func (d *Document) MediaQueryKeys() []string {
	keys := make([]string, 0, len(d.Site.MediaQueries))
	for _, mq := range d.Site.MediaQueries {
		keys = append(keys, mq.Key)
	}
	return keys
}

// EventIDs returns all event ids sorted.
func (d *Document) EventIDs() []string {
	return sortedKeys(d.Events)
}

// ActionListIDs returns all action list ids sorted.
func (d *Document) ActionListIDs() []string {
	return sortedKeys(d.ActionLists)
}

// EventTypeMap groups event ids by kind, ids sorted within each kind.
func (d *Document) EventTypeMap() map[EventType][]string {
	out := make(map[EventType][]string)
	for _, id := range d.EventIDs() {
		ev := d.Events[id]
		out[ev.EventTypeID] = append(out[ev.EventTypeID], id)
	}
	return out
}

// MatchMediaQuery returns the key of the media query width falls in, or ""
// when the site defines none.
func (d *Document) MatchMediaQuery(width float64) string {
	return MatchMediaQuery(d.Site.MediaQueries, width)
}

// MatchMediaQuery returns the key of the first query containing width. A
// width in a gap between queries, such as 991.5 between 991 and 992, takes
// the nearest query; ties go to the narrower one.
func MatchMediaQuery(queries []MediaQuery, width float64) string {
	for _, mq := range queries {
		if width >= mq.Min && width <= mq.Max {
			return mq.Key
		}
	}
	key, best, bestMin := "", math.Inf(1), math.Inf(1)
	for _, mq := range queries {
		dist := mq.Min - width
		if width > mq.Max {
			dist = width - mq.Max
		}
		if dist < best || dist == best && mq.Min < bestMin {
			key, best, bestMin = mq.Key, dist, mq.Min
		}
	}
	return key
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
