// Package ir provides the interaction document types consumed by the engine.
//
// An interaction document is authored by an external visual tool and
// supplied once per page session. It carries three things:
//
//   - events: trigger definitions keyed by id (what to listen for, which
//     timeline to start, where it applies)
//   - actionLists: timelines keyed by id, either ordered groups of action
//     items or continuous-parameter keyframe groups
//   - site.mediaQueries: the ordered breakpoint table
//
// This package contains type definitions and decoding only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Documents are immutable after import; nothing in the engine mutates them
//   - JSON tags use the authored camelCase names
//   - Event kinds and action kinds are closed enums (see kinds.go)
package ir
