package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/queryir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run := Run{
		ID:            id,
		Scenario:      "click-moves-box",
		DocumentHash:  "test-hash",
		EngineVersion: "0.1.0",
		IRVersion:     "2",
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name, want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
		{"user_version", fmt.Sprint(schemaVersion())},
	}
	for _, tt := range tests {
		got, err := s.pragma(tt.name)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, got, tt.want)
		}
	}
}

// v0 logs predate frame parameters and the paint indexes.
const v0Schema = `
CREATE TABLE runs (
    id TEXT PRIMARY KEY, scenario TEXT NOT NULL, document_hash TEXT NOT NULL,
    session_token TEXT NOT NULL DEFAULT '', engine_version TEXT NOT NULL,
    ir_version TEXT NOT NULL, status TEXT NOT NULL DEFAULT 'running',
    frame_count INTEGER NOT NULL DEFAULT 0, seq INTEGER NOT NULL
);
CREATE TABLE frames (
    run_id TEXT NOT NULL, frame INTEGER NOT NULL, time_ms REAL NOT NULL,
    instances INTEGER NOT NULL, PRIMARY KEY (run_id, frame)
);
CREATE TABLE paints (
    run_id TEXT NOT NULL, frame INTEGER NOT NULL, seq INTEGER NOT NULL,
    element TEXT NOT NULL, op TEXT NOT NULL, name TEXT NOT NULL,
    value TEXT NOT NULL DEFAULT '', PRIMARY KEY (run_id, frame, seq)
);
INSERT INTO runs (id, scenario, document_hash, engine_version, ir_version, seq)
VALUES ('old', 'click-moves-box', 'h', '0.0.1', '1', 1);
INSERT INTO frames VALUES ('old', 0, 16, 1);
`

func TestOpen_MigratesOlderLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(v0Schema); err != nil {
		t.Fatalf("seed v0 log: %v", err)
	}
	raw.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if v, _ := s.pragma("user_version"); v != fmt.Sprint(schemaVersion()) {
		t.Errorf("user_version = %s, want %d", v, schemaVersion())
	}
	frames, err := s.ReadFrames(context.Background(), "old")
	if err != nil {
		t.Fatalf("ReadFrames() on migrated log: %v", err)
	}
	if len(frames) != 1 || len(frames[0].Parameters) != 0 {
		t.Errorf("frames = %+v, want one frame with no parameters", frames)
	}

	var indexes int
	err = s.db.QueryRow(`SELECT count(*) FROM sqlite_master
		WHERE type = 'index' AND name IN ('idx_paints_element', 'idx_paints_op')`).Scan(&indexes)
	if err != nil {
		t.Fatal(err)
	}
	if indexes != 2 {
		t.Errorf("paint indexes = %d, want 2", indexes)
	}
}

func TestOpen_RejectsNewerLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.db")
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion()+1)); err != nil {
		t.Fatal(err)
	}
	raw.Close()

	_, err = Open(path)
	if err == nil || !strings.Contains(err.Error(), "newer than this build") {
		t.Errorf("Open() error = %v, want newer-schema error", err)
	}
}

// =============================================================================
// Runs
// =============================================================================

func TestWriteRun_ReadBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Status != StatusRunning {
		t.Errorf("Status = %q, want %q", got.Status, StatusRunning)
	}
	if got.Scenario != "click-moves-box" || got.DocumentHash != "test-hash" {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.Seq != 1 {
		t.Errorf("Seq = %d, want 1", got.Seq)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")
	createTestRun(t, s, "run-1")

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
}

func TestListRuns_InsertionOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Fatalf("empty store should return empty slice, got %v", runs)
	}

	for _, id := range []string{"run-b", "run-a", "run-c"} {
		createTestRun(t, s, id)
	}
	runs, err = s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if want := []string{"run-b", "run-a", "run-c"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	if err := s.FinishRun(ctx, "run-1", StatusPassed, "session-1"); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}
	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Status != StatusPassed || got.SessionToken != "session-1" {
		t.Errorf("unexpected run: %+v", got)
	}

	if err := s.FinishRun(ctx, "missing", StatusFailed, ""); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

// =============================================================================
// Frames and paints
// =============================================================================

func testFrames() []Frame {
	return []Frame{
		{
			Index:     0,
			TimeMS:    16,
			Instances: 1,
			Paints: []dom.Paint{
				{Element: `[data-w-id="box"]`, Op: dom.OpSetStyle, Name: "transform", Value: "translate3d(10px, 0px, 0px)"},
				{Element: `[data-w-id="box"]`, Op: dom.OpAddClass, Name: "is-moving"},
			},
		},
		{
			Index:      1,
			TimeMS:     32,
			Instances:  0,
			Parameters: map[string]float64{"p-1": 0.5},
			Paints: []dom.Paint{
				{Element: `[data-w-id="box"]`, Op: dom.OpSetStyle, Name: "transform", Value: "translate3d(20px, 0px, 0px)"},
				{Element: "div.hero", Op: dom.OpSetStyle, Name: "opacity", Value: "0.5"},
				{Element: `[data-w-id="box"]`, Op: dom.OpRemoveClass, Name: "is-moving"},
			},
		},
	}
}

func TestWriteFrame_ReadFrames(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	want := testFrames()
	for _, f := range want {
		if err := s.WriteFrame(ctx, "run-1", f); err != nil {
			t.Fatalf("WriteFrame(%d) failed: %v", f.Index, err)
		}
	}

	got, err := s.ReadFrames(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadFrames() failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadFrames() =\n%+v\nwant\n%+v", got, want)
	}

	run, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.FrameCount != 2 {
		t.Errorf("FrameCount = %d, want 2", run.FrameCount)
	}
}

func TestWriteFrame_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	f := testFrames()[0]
	for i := 0; i < 2; i++ {
		if err := s.WriteFrame(ctx, "run-1", f); err != nil {
			t.Fatalf("WriteFrame() attempt %d failed: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM paints WHERE run_id = ?", "run-1").Scan(&count); err != nil {
		t.Fatalf("count paints: %v", err)
	}
	if count != len(f.Paints) {
		t.Errorf("paint count = %d, want %d", count, len(f.Paints))
	}
}

func TestWriteFrame_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteFrame(context.Background(), "missing", testFrames()[0])
	if err == nil || !strings.Contains(err.Error(), "FOREIGN KEY") {
		t.Errorf("err = %v, want foreign key violation", err)
	}
}

func TestElementHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")
	for _, f := range testFrames() {
		if err := s.WriteFrame(ctx, "run-1", f); err != nil {
			t.Fatalf("WriteFrame() failed: %v", err)
		}
	}

	history, err := s.ElementHistory(ctx, "run-1", `[data-w-id="box"]`)
	if err != nil {
		t.Fatalf("ElementHistory() failed: %v", err)
	}
	var got []string
	for _, fp := range history {
		got = append(got, fp.Op+" "+fp.Name)
	}
	want := []string{"set-style transform", "add-class is-moving", "set-style transform", "remove-class is-moving"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("history = %v, want %v", got, want)
	}
	if history[3].Frame != 1 {
		t.Errorf("last paint frame = %d, want 1", history[3].Frame)
	}
}

func TestQueryPaints(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")
	createTestRun(t, s, "run-2")
	for _, f := range testFrames() {
		if err := s.WriteFrame(ctx, "run-1", f); err != nil {
			t.Fatalf("WriteFrame() failed: %v", err)
		}
	}
	if err := s.WriteFrame(ctx, "run-2", testFrames()[1]); err != nil {
		t.Fatalf("WriteFrame() failed: %v", err)
	}

	tests := []struct {
		name   string
		filter queryir.Predicate
		limit  int
		want   []string
	}{
		{
			name: "all paints of the run",
			want: []string{"0 set-style transform", "0 add-class is-moving", "1 set-style transform", "1 set-style opacity", "1 remove-class is-moving"},
		},
		{
			name:   "by property",
			filter: queryir.Equals{Field: "name", Value: "transform"},
			want:   []string{"0 set-style transform", "1 set-style transform"},
		},
		{
			name: "by op from frame 1",
			filter: queryir.And{Predicates: []queryir.Predicate{
				queryir.Equals{Field: "op", Value: dom.OpSetStyle},
				queryir.Compare{Field: "frame", Op: queryir.OpGreaterEqual, Value: 1},
			}},
			want: []string{"1 set-style transform", "1 set-style opacity"},
		},
		{
			name:   "element prefix",
			filter: queryir.Prefix{Field: "element", Prefix: "div."},
			want:   []string{"1 set-style opacity"},
		},
		{
			name:  "limit",
			limit: 2,
			want:  []string{"0 set-style transform", "0 add-class is-moving"},
		},
		{
			name:   "no match",
			filter: queryir.Equals{Field: "element", Value: "#nothing"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paints, err := s.QueryPaints(ctx, "run-1", tt.filter, tt.limit)
			if err != nil {
				t.Fatalf("QueryPaints() failed: %v", err)
			}
			got := []string{}
			for _, fp := range paints {
				got = append(got, fmt.Sprintf("%d %s %s", fp.Frame, fp.Op, fp.Name))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("QueryPaints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryPaints_InvalidFilter(t *testing.T) {
	s := createTestStore(t)

	_, err := s.QueryPaints(context.Background(), "run-1", queryir.Equals{Field: "colour", Value: "red"}, 0)
	if err == nil || !strings.Contains(err.Error(), `no column "colour"`) {
		t.Errorf("err = %v, want unknown column", err)
	}
}

// =============================================================================
// Replay
// =============================================================================

const replayPage = `<!doctype html>
<html><body>
  <div class="box" data-w-id="box"></div>
  <div class="hero"></div>
</body></html>`

func TestReplay_ReproducesWrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")
	frames := testFrames()
	frames[1].Paints = append(frames[1].Paints, dom.Paint{Element: "#gone", Op: dom.OpSetStyle, Name: "opacity", Value: "0"})
	for _, f := range frames {
		if err := s.WriteFrame(ctx, "run-1", f); err != nil {
			t.Fatalf("WriteFrame() failed: %v", err)
		}
	}

	doc, err := dom.ParseHTML(strings.NewReader(replayPage))
	if err != nil {
		t.Fatalf("ParseHTML() failed: %v", err)
	}
	res, err := s.Replay(ctx, "run-1", doc, -1)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}

	if res.Applied != 5 {
		t.Errorf("Applied = %d, want 5", res.Applied)
	}
	if !reflect.DeepEqual(res.Unresolved, []string{"#gone"}) {
		t.Errorf("Unresolved = %v", res.Unresolved)
	}
	box := doc.Element(".box")
	if got := doc.Style(box, "transform"); got != "translate3d(20px, 0px, 0px)" {
		t.Errorf("box transform = %q", got)
	}
	if doc.HasClass(box, "is-moving") {
		t.Error("class should have been removed")
	}
	if got := doc.Style(doc.Element(".hero"), "opacity"); got != "0.5" {
		t.Errorf("hero opacity = %q", got)
	}
}

func TestReplay_UpToFrame(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")
	for _, f := range testFrames() {
		if err := s.WriteFrame(ctx, "run-1", f); err != nil {
			t.Fatalf("WriteFrame() failed: %v", err)
		}
	}

	doc, err := dom.ParseHTML(strings.NewReader(replayPage))
	if err != nil {
		t.Fatalf("ParseHTML() failed: %v", err)
	}
	if _, err := s.Replay(ctx, "run-1", doc, 0); err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}

	box := doc.Element(".box")
	if got := doc.Style(box, "transform"); got != "translate3d(10px, 0px, 0px)" {
		t.Errorf("box transform = %q", got)
	}
	if !doc.HasClass(box, "is-moving") {
		t.Error("frame 0 class should still be present")
	}
}

func TestReplay_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	doc := dom.NewDocument()

	_, err := s.Replay(context.Background(), "missing", doc, -1)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}
