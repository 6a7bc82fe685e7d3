package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/queryir"
	"github.com/roach88/ixengine/internal/querysql"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, scenario, document_hash, session_token, engine_version, ir_version, status, frame_count, seq`

// ReadRun returns one run by id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run in insertion order.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID,
		&run.Scenario,
		&run.DocumentHash,
		&run.SessionToken,
		&run.EngineVersion,
		&run.IRVersion,
		&run.Status,
		&run.FrameCount,
		&run.Seq,
	)
	return run, err
}

// ReadFrames returns a run's frames with their paints, ordered by
// (frame, seq).
//
// Returns an empty slice (not nil) if no frames were recorded.
func (s *Store) ReadFrames(ctx context.Context, runID string) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT frame, time_ms, instances, parameters
		FROM frames
		WHERE run_id = ?
		ORDER BY frame ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	frames := []Frame{}
	index := map[int]int{}
	for rows.Next() {
		var f Frame
		var params string
		if err := rows.Scan(&f.Index, &f.TimeMS, &f.Instances, &params); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if f.Parameters, err = unmarshalParameters(params); err != nil {
			return nil, err
		}
		index[f.Index] = len(frames)
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	rows.Close()

	err = s.eachPaint(ctx, runID, -1, func(frame int, p dom.Paint) error {
		if i, ok := index[frame]; ok {
			frames[i].Paints = append(frames[i].Paints, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return frames, nil
}

// FramePaint is a paint with the frame it happened in.
type FramePaint struct {
	Frame int `json:"frame"`
	dom.Paint
}

// ElementHistory returns every write made to one element, in order.
func (s *Store) ElementHistory(ctx context.Context, runID, element string) ([]FramePaint, error) {
	return s.QueryPaints(ctx, runID, queryir.Equals{Field: "element", Value: element}, 0)
}

// QueryPaints returns the run's paints matching filter in (frame, seq)
// order. A nil filter matches every paint; a zero limit returns all rows.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryPaints(ctx context.Context, runID string, filter queryir.Predicate, limit int) ([]FramePaint, error) {
	query, args, err := querysql.NewSQLCompiler().Compile(paintQuery(runID, filter, limit))
	if err != nil {
		return nil, fmt.Errorf("compile paint query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query paints: %w", err)
	}
	defer rows.Close()

	paints := []FramePaint{}
	for rows.Next() {
		var fp FramePaint
		if err := rows.Scan(&fp.Frame, &fp.Element, &fp.Op, &fp.Name, &fp.Value); err != nil {
			return nil, fmt.Errorf("scan paint: %w", err)
		}
		paints = append(paints, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paints: %w", err)
	}
	return paints, nil
}

// paintQuery selects one run's paints as (frame, element, op, name, value).
func paintQuery(runID string, filter queryir.Predicate, limit int) queryir.Select {
	return queryir.Select{
		From:   "paints",
		Fields: []string{"frame", "element", "op", "name", "value"},
		Filter: queryir.Where(queryir.Equals{Field: "run_id", Value: runID}, filter),
		Limit:  limit,
	}
}

// eachPaint streams a run's paints in (frame, seq) order. A negative upTo
// streams every frame; otherwise frames after upTo are skipped.
func (s *Store) eachPaint(ctx context.Context, runID string, upTo int, fn func(frame int, p dom.Paint) error) error {
	var upToFilter queryir.Predicate
	if upTo >= 0 {
		upToFilter = queryir.Compare{Field: "frame", Op: queryir.OpLessEqual, Value: upTo}
	}
	query, args, err := querysql.NewSQLCompiler().Compile(paintQuery(runID, upToFilter, 0))
	if err != nil {
		return fmt.Errorf("compile paint query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query paints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var frame int
		var p dom.Paint
		if err := rows.Scan(&frame, &p.Element, &p.Op, &p.Name, &p.Value); err != nil {
			return fmt.Errorf("scan paint: %w", err)
		}
		if err := fn(frame, p); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate paints: %w", err)
	}
	return nil
}
