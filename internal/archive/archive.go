// Package archive takes a daily full-grid backup of the canvas. Each run
// materializes the latest-per-cell view, compresses it, and upserts one row
// per UTC date, so a crashed or repeated run converges to the same backup.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/zstd"
	"github.com/placeboard/placeboard/internal/canvas"
	"github.com/placeboard/placeboard/internal/metrics"
	"github.com/placeboard/placeboard/internal/storage"
)

// Entry describes one stored backup, without its grid payload.
type Entry struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"`
	Cols      int       `json:"cols"`
	Rows      int       `json:"rows"`
	CellCount int       `json:"cellCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Archiver writes daily canvas backups into the canvas_archives table.
type Archiver struct {
	store    storage.PlacementStore
	pool     *pgxpool.Pool
	bounds   canvas.Bounds
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func New(store storage.PlacementStore, pool *pgxpool.Pool, bounds canvas.Bounds, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		store:    store,
		pool:     pool,
		bounds:   bounds,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run archives on start-up and then on every interval tick until ctx is
// cancelled. Failures are logged and retried on the next tick.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if err := a.ArchiveDay(ctx, a.now()); err != nil {
			metrics.ArchiveRuns.WithLabelValues("error").Inc()
			a.logger.Error("canvas archive failed", "error", err)
		} else {
			metrics.ArchiveRuns.WithLabelValues("ok").Inc()
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ArchiveDay stores the current full grid under day's UTC date, replacing
// any earlier backup for the same date.
func (a *Archiver) ArchiveDay(ctx context.Context, day time.Time) error {
	cells, err := a.store.LatestPerCell(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive read: %w", err)
	}

	compressed, err := compressCells(cells)
	if err != nil {
		return err
	}

	date := day.UTC().Format("2006-01-02")
	_, err = a.pool.Exec(ctx, `
		INSERT INTO canvas_archives (archive_date, cols, rows, cell_count, grid)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (archive_date)
		DO UPDATE SET cols = $2, rows = $3, cell_count = $4, grid = $5, created_at = now()
	`, date, a.bounds.Cols(), a.bounds.Rows(), len(cells), compressed)
	if err != nil {
		return fmt.Errorf("archive write: %w", err)
	}

	a.logger.Info("canvas archived", "date", date, "cells", len(cells), "bytes", len(compressed))
	return nil
}

// List returns stored backups, newest first.
func (a *Archiver) List(ctx context.Context) ([]Entry, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT id, archive_date, cols, rows, cell_count, created_at
		FROM canvas_archives
		ORDER BY archive_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Date, &e.Cols, &e.Rows, &e.CellCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func compressCells(cells []canvas.Cell) ([]byte, error) {
	raw, err := json.Marshal(cells)
	if err != nil {
		return nil, fmt.Errorf("marshal grid: %w", err)
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return nil, fmt.Errorf("compress grid: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flush grid: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressCells restores a stored grid payload. Used by recovery tooling
// and tests.
func DecompressCells(compressed []byte) ([]canvas.Cell, error) {
	dec, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress grid: %w", err)
	}
	var cells []canvas.Cell
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, fmt.Errorf("unmarshal grid: %w", err)
	}
	return cells, nil
}
