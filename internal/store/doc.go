// Package store provides SQLite-backed recording of engine runs.
//
// A run is one scenario or CLI session driven against a fixture page:
//   - Runs: scenario, document hash, session token and final status
//   - Frames: one row per animation frame (time, live instances, parameters)
//   - Paints: every adapter write made during a frame, in order
//
// # Critical Patterns
//
// Logical Ordering
//   - All ordering uses logical counters (frame, seq), NEVER timestamps
//   - Reading a run back yields writes in exactly the order they were made
//
// Idempotent Writes
//   - Rewriting a run or a frame that already exists is a no-op
//
// Replay
//   - Paints name elements by selector labels, so a run can be re-applied
//     to a fresh fixture without running the engine
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
