// Package harness provides scenario testing for interaction documents.
//
// The harness loads a document onto a headless fixture page, drives the real
// engine with native events, requests and frames, records every adapter
// write per frame, and validates the final page.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: click-moves-box
//	description: "Clicking the button slides the box"
//	document: ../documents/click-move.json
//	fixture: ../pages/page.html
//	viewport: { width: 1000, height: 800 }
//	frame_ms: 25
//	steps:
//	  - click: .btn
//	  - frames: 4
//	  - request: { type: playback, action_list: a-1, verbose: true }
//	  - scroll: { x: 0, y: 350 }
//	assertions:
//	  - type: style
//	    selector: .box
//	    property: transform
//	    value: "translate3d(100px, 0px, 0px)"
//	  - type: instances
//	    count: 0
//
// Document and fixture paths resolve relative to the scenario file. Fixture
// elements take their layout box from data-rect="left top width height".
//
// # Assertion Types
//
//   - style: inline style value of the first element matching selector
//   - class: class presence on an element
//   - attribute: attribute value on an element
//   - instances: number of live instances
//   - listeners: number of bound native listeners
//   - parameter: last published continuous parameter value, within tolerance
//   - playing: playback flag of an action list
//   - fault: a runtime fault with the given code was logged
//
// # Deterministic Testing
//
// Every scenario runs on a manual clock that starts at 0 and a fixed session
// token, so the same scenario always produces the same trace. Traces are
// compared against testdata/golden with goldie; regenerate them with
//
//	go test ./internal/harness -update
//
// # Recording
//
// WithStore records the run, every frame and every write into SQLite so a
// run can be inspected or replayed later with ixengine trace.
package harness
