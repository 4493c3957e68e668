package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/placeboard/placeboard/internal/cache"
	"github.com/placeboard/placeboard/internal/canvas"
	"github.com/placeboard/placeboard/internal/circuitbreaker"
	"github.com/placeboard/placeboard/internal/snapshot"
)

type snapStore struct {
	cells     []canvas.Cell
	err       error
	lastSince *time.Time
}

func (s *snapStore) LatestPerCell(ctx context.Context, since *time.Time) ([]canvas.Cell, error) {
	s.lastSince = since
	return s.cells, s.err
}

func (s *snapStore) Append(ctx context.Context, req canvas.WriteRequest) (*canvas.Placement, error) {
	panic("not used")
}

func (s *snapStore) CountSince(ctx context.Context, actorID string, since time.Time) (int, error) {
	panic("not used")
}

func (s *snapStore) ScanSince(ctx context.Context, afterAddedID int64, limit int) ([]canvas.Placement, error) {
	panic("not used")
}

func newSnapshotHandler(store *snapStore) *SnapshotHandler {
	svc := snapshot.NewService(store, cache.NewSnapshot[[]canvas.Cell](), circuitbreaker.New(3, time.Second), 10*time.Second)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSnapshotHandler(svc, testBounds, logger)
}

func doSnapshot(t *testing.T, h *SnapshotHandler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.Snapshot(rec, req)

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return rec, got
}

func TestSnapshot_Full(t *testing.T) {
	writer := "alice"
	wrote := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &snapStore{cells: []canvas.Cell{
		{X: 1, Y: 2, Color: "#ff0000", LastWriterID: &writer, LastWriteTime: wrote},
	}}

	before := time.Now().UnixMilli()
	rec, got := doSnapshot(t, newSnapshotHandler(store), "/v1/canvas/snapshot")
	after := time.Now().UnixMilli()

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got["ok"] != true {
		t.Error("expected ok: true")
	}
	if got["cols"] != float64(10) || got["rows"] != float64(6) {
		t.Errorf("cols/rows = %v/%v, want 10/6", got["cols"], got["rows"])
	}

	ts, ok := got["timestamp"].(float64)
	if !ok || int64(ts) < before || int64(ts) > after {
		t.Errorf("timestamp = %v, want epoch ms within [%d, %d]", got["timestamp"], before, after)
	}

	placements := got["placements"].([]any)
	if len(placements) != 1 {
		t.Fatalf("got %d placements, want 1", len(placements))
	}
	p := placements[0].(map[string]any)
	if p["x"] != float64(1) || p["y"] != float64(2) || p["color"] != "#ff0000" {
		t.Errorf("unexpected placement: %v", p)
	}
	if p["userId"] != "alice" {
		t.Errorf("userId = %v, want alice", p["userId"])
	}
	if p["createdAt"] != float64(wrote.UnixMilli()) {
		t.Errorf("createdAt = %v, want %d", p["createdAt"], wrote.UnixMilli())
	}

	if store.lastSince != nil {
		t.Error("full snapshot must query without a since bound")
	}
}

func TestSnapshot_Empty(t *testing.T) {
	rec, got := doSnapshot(t, newSnapshotHandler(&snapStore{}), "/v1/canvas/snapshot")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	placements, ok := got["placements"].([]any)
	if !ok {
		t.Fatalf("placements must be a JSON array even when empty, got %T", got["placements"])
	}
	if len(placements) != 0 {
		t.Errorf("got %d placements, want 0", len(placements))
	}
}

func TestSnapshot_Since(t *testing.T) {
	store := &snapStore{}
	h := newSnapshotHandler(store)

	since := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	rec, _ := doSnapshot(t, h, "/v1/canvas/snapshot?since="+strconv.FormatInt(since, 10))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.lastSince == nil {
		t.Fatal("since query must bound the store read")
	}
	if store.lastSince.UnixMilli() != since {
		t.Errorf("since = %d, want %d", store.lastSince.UnixMilli(), since)
	}
}

func TestSnapshot_BadSince(t *testing.T) {
	rec, got := doSnapshot(t, newSnapshotHandler(&snapStore{}), "/v1/canvas/snapshot?since=yesterday")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got["ok"] != false || got["error"] != "invalid-payload" {
		t.Errorf("got %v", got)
	}
}

func TestSnapshot_StoreError(t *testing.T) {
	rec, got := doSnapshot(t, newSnapshotHandler(&snapStore{err: context.DeadlineExceeded}), "/v1/canvas/snapshot")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got["error"] != "internal-server-error" {
		t.Errorf("error = %v, want internal-server-error", got["error"])
	}
}
