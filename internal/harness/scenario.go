package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFrameMS is the frame length when a scenario does not set one.
const DefaultFrameMS = 16

// Scenario defines one simulated page session.
// A scenario loads an interaction document onto a fixture page, drives it
// with native events, requests and frames, and asserts on the final page.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the interaction document (JSON).
	// Relative paths resolve against the scenario file.
	Document string `yaml:"document"`

	// Fixture is the HTML page the document runs on. Elements take their
	// layout box from data-rect="left top width height".
	Fixture string `yaml:"fixture"`

	// Viewport sets the initial viewport size. Defaults to 1280x800.
	Viewport *Size `yaml:"viewport,omitempty"`

	// Media sets MatchMedia results, e.g. {"(prefers-reduced-motion)": true}.
	Media map[string]bool `yaml:"media,omitempty"`

	// FrameMS is the clock advance per frame. Defaults to DefaultFrameMS.
	FrameMS float64 `yaml:"frame_ms,omitempty"`

	// SessionToken is a fixed session token for deterministic traces.
	// If empty, defaults to "test-session-default".
	SessionToken string `yaml:"session_token,omitempty"`

	// Steps run in order after the document is loaded.
	Steps []Step `yaml:"steps"`

	// Assertions validate the page after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Size is a width and height in CSS pixels.
type Size struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Point is a position in CSS pixels.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Step is one scenario action. Exactly one field is set.
//
// Native events only queue work; the next frame processes them.
type Step struct {
	// Frames runs this many frames of FrameMS each.
	Frames int `yaml:"frames,omitempty"`
	// Advance moves the clock by this many ms and runs one frame.
	Advance float64 `yaml:"advance,omitempty"`

	Click     string     `yaml:"click,omitempty"`
	MouseOver string     `yaml:"mouseover,omitempty"`
	MouseOut  bool       `yaml:"mouseout,omitempty"`
	MouseMove *Point     `yaml:"mousemove,omitempty"`
	Scroll    *Point     `yaml:"scroll,omitempty"`
	Resize    *Size      `yaml:"resize,omitempty"`
	Ready     string     `yaml:"ready,omitempty"`
	Component *Component `yaml:"component,omitempty"`
	Cart      string     `yaml:"cart,omitempty"`

	Request *Request `yaml:"request,omitempty"`
}

// Component toggles a tab, slider, dropdown or navbar widget.
type Component struct {
	Selector string `yaml:"selector"`
	Active   bool   `yaml:"active"`
}

// Request is an engine request.
type Request struct {
	// Type is one of playback, preview, stop, clear.
	Type        string `yaml:"type"`
	ActionList  string `yaml:"action_list,omitempty"`
	Event       string `yaml:"event,omitempty"`
	Item        string `yaml:"item,omitempty"`
	Group       int    `yaml:"group,omitempty"`
	Immediate   bool   `yaml:"immediate,omitempty"`
	AllowEvents bool   `yaml:"allow_events,omitempty"`
	Verbose     bool   `yaml:"verbose,omitempty"`
}

// Request types.
const (
	RequestPlayback = "playback"
	RequestPreview  = "preview"
	RequestStop     = "stop"
	RequestClear    = "clear"
)

// Assertion validates the page or engine state after the last step.
type Assertion struct {
	// Type specifies the assertion type:
	// - "style": inline style of the first element matching Selector
	// - "class": class presence on the first element matching Selector
	// - "attribute": attribute value on the first element matching Selector
	// - "instances": number of live instances
	// - "listeners": number of bound native listeners
	// - "parameter": last published value of a continuous parameter
	// - "playing": playback flag of an action list
	// - "fault": a runtime fault with Code was logged
	Type string `yaml:"type"`

	Selector   string   `yaml:"selector,omitempty"`
	Property   string   `yaml:"property,omitempty"`
	Class      string   `yaml:"class,omitempty"`
	Attribute  string   `yaml:"attribute,omitempty"`
	Parameter  string   `yaml:"parameter,omitempty"`
	ActionList string   `yaml:"action_list,omitempty"`
	Code       string   `yaml:"code,omitempty"`
	Value      string   `yaml:"value,omitempty"`
	Number     *float64 `yaml:"number,omitempty"`
	Tolerance  float64  `yaml:"tolerance,omitempty"`
	Count      *int     `yaml:"count,omitempty"`
	Present    *bool    `yaml:"present,omitempty"`
}

// Assertion type constants.
const (
	AssertStyle     = "style"
	AssertClass     = "class"
	AssertAttribute = "attribute"
	AssertInstances = "instances"
	AssertListeners = "listeners"
	AssertParameter = "parameter"
	AssertPlaying   = "playing"
	AssertFault     = "fault"
)

// LoadScenario reads and parses a scenario YAML file, resolving document
// and fixture paths relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	scenario.Document = resolve(base, scenario.Document)
	scenario.Fixture = resolve(base, scenario.Fixture)

	for _, p := range []string{scenario.Document, scenario.Fixture} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: file not found: %s", p)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.FrameMS == 0 {
		scenario.FrameMS = DefaultFrameMS
	}
	return &scenario, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Document == "" {
		return fmt.Errorf("document is required")
	}
	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}
	if s.FrameMS < 0 {
		return fmt.Errorf("frame_ms must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st Step) error {
	set := 0
	for _, ok := range []bool{
		st.Frames != 0, st.Advance != 0, st.Click != "", st.MouseOver != "", st.MouseOut,
		st.MouseMove != nil, st.Scroll != nil, st.Resize != nil, st.Ready != "",
		st.Component != nil, st.Cart != "", st.Request != nil,
	} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one action is required, got %d", index, set)
	}

	switch {
	case st.Frames < 0:
		return fmt.Errorf("steps[%d]: frames must be positive", index)
	case st.Advance < 0:
		return fmt.Errorf("steps[%d]: advance must be positive", index)
	case st.Component != nil && st.Component.Selector == "":
		return fmt.Errorf("steps[%d]: component selector is required", index)
	case st.Cart != "" && st.Cart != "open" && st.Cart != "close":
		return fmt.Errorf("steps[%d]: cart must be open or close", index)
	case st.Request != nil:
		switch st.Request.Type {
		case RequestPlayback:
			if st.Request.ActionList == "" {
				return fmt.Errorf("steps[%d]: action_list is required for playback", index)
			}
		case RequestPreview:
			if st.Request.Event == "" {
				return fmt.Errorf("steps[%d]: event is required for preview", index)
			}
		case RequestStop, RequestClear:
		default:
			return fmt.Errorf("steps[%d]: unknown request type %q", index, st.Request.Type)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStyle:
		if a.Selector == "" || a.Property == "" {
			return fmt.Errorf("assertions[%d]: selector and property are required for style", index)
		}
	case AssertClass:
		if a.Selector == "" || a.Class == "" {
			return fmt.Errorf("assertions[%d]: selector and class are required for class", index)
		}
	case AssertAttribute:
		if a.Selector == "" || a.Attribute == "" {
			return fmt.Errorf("assertions[%d]: selector and attribute are required for attribute", index)
		}
	case AssertInstances, AssertListeners:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case AssertParameter:
		if a.Parameter == "" || a.Number == nil {
			return fmt.Errorf("assertions[%d]: parameter and number are required for parameter", index)
		}
	case AssertPlaying:
		if a.ActionList == "" {
			return fmt.Errorf("assertions[%d]: action_list is required for playing", index)
		}
	case AssertFault:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for fault", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
