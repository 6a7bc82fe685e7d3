// Package engine implements the interaction engine: it binds trigger
// listeners through a dom.Adapter, turns fired events into animation
// instances and paints those instances frame by frame.
//
// ARCHITECTURE:
//
// Single-Writer Frame Loop:
// Native signals and requests are queued from any goroutine. One goroutine
// (Tick, Flush or Run) drains the queue and owns every store dispatch and
// every adapter write. This ensures:
//   - Frames see a consistent state snapshot
//   - Instances advance and render in creation order
//   - Runs are reproducible with a manual clock
//
// Frame Flow:
//  1. Queued items are processed (native signals, resizes, requests)
//  2. AnimationFrameChanged advances every active instance to clock time
//  3. Each changed instance is recorded in its element cache and painted
//  4. Completed carriers start the next group; completed instances drop
//
// Sessions:
// Init loads a document and starts a session: listeners bind on the root,
// initial-state groups apply, continuous timelines start, and initial
// evaluations run. A breakpoint change restarts the session. Every start
// gets a fresh token from the TokenGenerator for log correlation.
//
// Runtime faults (unknown event kinds, unknown plugins, start cycles,
// dangling list references) are logged with their event context and never
// stop the rest of the page.
package engine
