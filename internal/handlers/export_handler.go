package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/services/exporter"
)

// ExportHandler serves /api/export/{xlsx|json|csv|pdf}
type ExportHandler struct {
	store    interfaces.ItemStore
	exporter Exporter
	logger   arbor.ILogger
}

// NewExportHandler creates an export handler
func NewExportHandler(itemStore interfaces.ItemStore, exp Exporter, logger arbor.ILogger) *ExportHandler {
	return &ExportHandler{store: itemStore, exporter: exp, logger: logger}
}

// ExportHandler renders the current items as a file download
func (h *ExportHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/export/"), "/")
	format, err := exporter.ParseFormat(name)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	doc, err := h.exporter.Export(r.Context(), format, h.store.Snapshot())
	if err != nil {
		if errors.Is(err, exporter.ErrNothingToExport) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("format", string(format)).Msg("Export failed")
		WriteError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	h.logger.Info().
		Str("format", string(format)).
		Str("filename", doc.Filename).
		Int("bytes", len(doc.Data)).
		Msg("Export served")
	WriteDownload(w, r, doc.Filename, doc.ContentType, doc.Data)
}
