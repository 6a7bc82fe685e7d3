package store

import (
	"context"
	"fmt"

	"github.com/roach88/ixengine/internal/dom"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// Run is one recorded engine run.
type Run struct {
	ID            string `json:"id"`
	Scenario      string `json:"scenario"`
	DocumentHash  string `json:"document_hash"`
	SessionToken  string `json:"session_token,omitempty"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
	Status        string `json:"status"`
	FrameCount    int    `json:"frame_count"`
	// Seq is the insertion order across the database.
	Seq int64 `json:"seq"`
}

// Frame is one recorded animation frame and the writes it made.
type Frame struct {
	Index      int                `json:"frame"`
	TimeMS     float64            `json:"time_ms"`
	Instances  int                `json:"instances"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
	Paints     []dom.Paint        `json:"paints,omitempty"`
}

// WriteRun inserts a run record with status running.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, scenario, document_hash, session_token, engine_version, ir_version, status, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs))
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.DocumentHash,
		run.SessionToken,
		run.EngineVersion,
		run.IRVersion,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteFrame records one frame and its paints in a single transaction.
// Paints keep their order through seq. Rewriting a recorded frame is a
// no-op.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteFrame(ctx context.Context, runID string, f Frame) error {
	params, err := marshalParameters(f.Parameters)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write frame: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO frames (run_id, frame, time_ms, instances, parameters)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, frame) DO NOTHING
	`, runID, f.Index, f.TimeMS, f.Instances, params)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", f.Index, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO paints (run_id, frame, seq, element, op, name, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write frame %d: prepare paints: %w", f.Index, err)
	}
	defer stmt.Close()

	for seq, p := range f.Paints {
		if _, err := stmt.ExecContext(ctx, runID, f.Index, seq, p.Element, p.Op, p.Name, p.Value); err != nil {
			return fmt.Errorf("write frame %d: paint %d: %w", f.Index, seq, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE runs SET frame_count = MAX(frame_count, ?) WHERE id = ?
	`, f.Index+1, runID); err != nil {
		return fmt.Errorf("write frame %d: update run: %w", f.Index, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write frame %d: commit: %w", f.Index, err)
	}
	return nil
}

// FinishRun sets the final status and session token of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status, sessionToken string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, session_token = ? WHERE id = ?
	`, status, sessionToken, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}
