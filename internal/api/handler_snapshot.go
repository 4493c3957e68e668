package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/placeboard/placeboard/internal/canvas"
	"github.com/placeboard/placeboard/internal/snapshot"
)

// SnapshotHandler serves full and incremental canvas reads. The response
// timestamp is the value clients pass back as "since" for incremental
// polling, which doubles as the reconciliation path after a dropped live
// connection.
type SnapshotHandler struct {
	snapshots *snapshot.Service
	bounds    canvas.Bounds
	logger    *slog.Logger
}

func NewSnapshotHandler(s *snapshot.Service, bounds canvas.Bounds, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{snapshots: s, bounds: bounds, logger: logger}
}

type wireCell struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Color     string  `json:"color"`
	UserID    *string `json:"userId"`
	CreatedAt int64   `json:"createdAt"`
}

func (h *SnapshotHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	// Stamp before the read so a write racing the query is re-sent on the
	// next incremental poll instead of being skipped.
	now := time.Now().UnixMilli()

	var cells []canvas.Cell
	var err error
	if raw := r.URL.Query().Get("since"); raw != "" {
		ms, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, codeInvalidPayload, nil)
			return
		}
		cells, err = h.snapshots.Since(r.Context(), time.UnixMilli(ms))
	} else {
		cells, _, err = h.snapshots.Full(r.Context())
	}
	if err != nil {
		h.logger.Error("snapshot read failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, nil)
		return
	}

	placements := make([]wireCell, len(cells))
	for i, c := range cells {
		placements[i] = wireCell{
			X:         c.X,
			Y:         c.Y,
			Color:     c.Color,
			UserID:    c.LastWriterID,
			CreatedAt: c.LastWriteTime.UnixMilli(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"placements": placements,
		"cols":       h.bounds.Cols(),
		"rows":       h.bounds.Rows(),
		"timestamp":  now,
	})
}
