package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/placeboard/placeboard/internal/archive"
)

type ListArchivesBody struct {
	OK       bool            `json:"ok" doc:"Always true on success"`
	Archives []archive.Entry `json:"archives" doc:"Stored daily backups, newest first"`
}

type ListArchivesOutput struct {
	Body ListArchivesBody
}

// ArchiveLister is satisfied by *archive.Archiver.
type ArchiveLister interface {
	List(ctx context.Context) ([]archive.Entry, error)
}

// ArchiveHandler lists the daily canvas backups.
type ArchiveHandler struct {
	archiver ArchiveLister
	logger   *slog.Logger
}

func NewArchiveHandler(archiver ArchiveLister, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archiver: archiver, logger: logger}
}

func registerArchiveRoutes(api huma.API, h *ArchiveHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-archives",
		Method:      http.MethodGet,
		Path:        "/v1/archives",
		Summary:     "List daily canvas backups",
		Tags:        []string{"archives"},
	}, h.List)
}

func (h *ArchiveHandler) List(ctx context.Context, _ *struct{}) (*ListArchivesOutput, error) {
	entries, err := h.archiver.List(ctx)
	if err != nil {
		h.logger.Error("archive list failed", "error", err)
		return nil, huma.Error500InternalServerError("failed to list archives")
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	return &ListArchivesOutput{Body: ListArchivesBody{OK: true, Archives: entries}}, nil
}
