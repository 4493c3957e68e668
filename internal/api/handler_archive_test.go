package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/placeboard/placeboard/internal/archive"
)

type archiveLister struct {
	entries []archive.Entry
	err     error
}

func (m *archiveLister) List(ctx context.Context) ([]archive.Entry, error) {
	return m.entries, m.err
}

func newArchiveHandler(lister *archiveLister) *ArchiveHandler {
	return NewArchiveHandler(lister, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListArchives(t *testing.T) {
	lister := &archiveLister{entries: []archive.Entry{
		{ID: 2, Date: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), Cols: 80, Rows: 50, CellCount: 12},
		{ID: 1, Date: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), Cols: 80, Rows: 50, CellCount: 7},
	}}
	h := newArchiveHandler(lister)

	out, err := h.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !out.Body.OK {
		t.Error("expected ok: true")
	}
	if len(out.Body.Archives) != 2 {
		t.Fatalf("got %d archives, want 2", len(out.Body.Archives))
	}
	if out.Body.Archives[0].ID != 2 {
		t.Errorf("first archive ID = %d, want the newest (2)", out.Body.Archives[0].ID)
	}
}

func TestListArchives_EmptyIsArray(t *testing.T) {
	h := newArchiveHandler(&archiveLister{})

	out, err := h.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if out.Body.Archives == nil {
		t.Error("Archives must be an empty slice, not nil, so the JSON is [] not null")
	}
}

func TestListArchives_StoreError(t *testing.T) {
	h := newArchiveHandler(&archiveLister{err: errors.New("db down")})

	_, err := h.List(context.Background(), nil)
	assertStatusError(t, err, 500)
}
