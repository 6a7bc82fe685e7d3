// Package state is the engine's single store.
//
// The tree is split into six slices, each owned by one pure reducer:
//
//	Data        the imported interaction document
//	Request     the latest preview / playback / stop / clear request
//	Session     process-wide runtime flags, listeners and trigger memory
//	Elements    per-element cache of last applied values
//	Instances   live action-item executions, in creation order
//	Parameters  continuous-driver values
//
// Dispatch runs every reducer synchronously and swaps in the new tree.
// Slices are never mutated in place: a reducer that changes anything returns
// a fresh pointer, so observers detect change with pointer comparison.
//
// Thread-safety: a Store is owned by one goroutine (the engine's frame loop).
// It does no locking.
package state
