package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ixengine/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	SessionToken string       `json:"session_token,omitempty"`
	Trace        []TraceFrame `json:"trace"`
	Faults       []Fault      `json:"faults,omitempty"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Frames with no writes are dropped; frame numbers keep
// their position on the clock.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	frames := []any{}
	for _, f := range s.Trace {
		if len(f.Paints) == 0 {
			continue
		}
		paints := make([]any, len(f.Paints))
		for i, p := range f.Paints {
			pm := map[string]any{
				"element": p.Element,
				"op":      p.Op,
				"name":    p.Name,
			}
			if p.Value != "" {
				pm["value"] = p.Value
			}
			paints[i] = pm
		}
		frames = append(frames, map[string]any{
			"frame":     float64(f.Frame),
			"time_ms":   f.TimeMS,
			"instances": float64(f.Instances),
			"paints":    paints,
		})
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         frames,
	}
	if s.SessionToken != "" {
		result["session_token"] = s.SessionToken
	}
	if len(s.Faults) > 0 {
		faults := make([]any, len(s.Faults))
		for i, f := range s.Faults {
			fm := map[string]any{"code": f.Code}
			if f.Event != "" {
				fm["event"] = f.Event
			}
			if f.ActionList != "" {
				fm["action_list"] = f.ActionList
			}
			faults[i] = fm
		}
		result["faults"] = faults
	}
	return result
}

// MarshalTrace renders a result's trace as canonical JSON.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		SessionToken: result.SessionToken,
		Trace:        result.Trace,
		Faults:       result.Faults,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// TraceDigest returns the content hash of a result's canonical trace. Two
// runs with the same digest produced the same golden file.
func TraceDigest(scenarioName string, result *Result) (string, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		SessionToken: result.SessionToken,
		Trace:        result.Trace,
		Faults:       result.Faults,
	}
	return ir.TraceHash(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
