package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/batch"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
	"github.com/ternarybob/seoforge/internal/services/importer"
	"github.com/ternarybob/seoforge/internal/services/render"
	"github.com/ternarybob/seoforge/internal/store"
)

// ItemsImportedPayload is published after a successful import
type ItemsImportedPayload struct {
	File    string `json:"file"`
	Indices []int  `json:"indices"`
}

// ItemHandler serves the item collection: import, listing, preview and reset
type ItemHandler struct {
	store        interfaces.ItemStore
	parser       RowParser
	runner       BatchRunner
	topics       TopicResolver
	events       interfaces.EventService
	defaultTopic string
	logger       arbor.ILogger
}

// NewItemHandler creates an item handler. events may be nil.
func NewItemHandler(
	itemStore interfaces.ItemStore,
	parser RowParser,
	runner BatchRunner,
	topics TopicResolver,
	events interfaces.EventService,
	defaultTopic string,
	logger arbor.ILogger,
) *ItemHandler {
	return &ItemHandler{
		store:        itemStore,
		parser:       parser,
		runner:       runner,
		topics:       topics,
		events:       events,
		defaultTopic: defaultTopic,
		logger:       logger,
	}
}

func (h *ItemHandler) publish(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		h.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}

// ImportHandler appends the rows of an uploaded XLSX/CSV file (multipart field "file")
func (h *ItemHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, importer.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(importer.MaxUploadSize); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	rows, err := h.parser.Parse(header.Filename, file)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, importer.ErrImport) {
			status = http.StatusBadRequest
		}
		WriteError(w, status, err.Error())
		return
	}

	items := make([]models.WorkItem, len(rows))
	for i, row := range rows {
		items[i] = row.ToWorkItem()
	}

	indices, err := h.store.Append(items)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrEmptyKeyword) {
			status = http.StatusBadRequest
		}
		WriteError(w, status, err.Error())
		return
	}

	h.logger.Info().
		Str("file", header.Filename).
		Int("imported", len(indices)).
		Int("total", h.store.Len()).
		Msg("Keywords imported")

	h.publish(r.Context(), interfaces.EventItemsImported, ItemsImportedPayload{File: header.Filename, Indices: indices})

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"imported": len(indices),
		"indices":  indices,
		"total":    h.store.Len(),
	})
}

// ListHandler returns items in index order, optionally filtered by ?status=
func (h *ItemHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	items := h.store.Snapshot()
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.ItemStatus(raw)
		if !status.IsValid() {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", raw))
			return
		}
		filtered := items[:0]
		for _, item := range items {
			if item.Status == status {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	page, pageSize := GetPaginationParams(r)
	pageItems, pagination := Paginate(items, page, pageSize)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":      pageItems,
		"pagination": pagination,
		"stats":      h.store.Stats(),
	})
}

// ItemRoutes serves /api/items/{index} and /api/items/{index}/preview
func (h *ItemHandler) ItemRoutes(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	param, rest := PathParam(r.URL.Path, "/api/items/")
	index, err := strconv.Atoi(param)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid item index %q", param))
		return
	}

	item, err := h.store.Get(index)
	if err != nil {
		if errors.Is(err, store.ErrIndexOutOfRange) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch rest {
	case "":
		WriteJSON(w, http.StatusOK, item)
	case "preview":
		h.preview(w, r, item)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

func (h *ItemHandler) preview(w http.ResponseWriter, r *http.Request, item models.WorkItem) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = h.defaultTopic
	}
	profile := h.topics.Resolve(topic, "")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"index":    item.Index,
		"keyword":  item.Keyword,
		"status":   item.Status,
		"topic":    profile.Name,
		"rendered": render.Preview(item, profile),
		"audit":    render.Audit(item.Content, profile),
	})
}

// StatsHandler returns item counts by status
func (h *ItemHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.store.Stats())
}

// ResetHandler clears the store. Refused while a run is draining.
func (h *ItemHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if err := h.runner.Reset(); err != nil {
		if errors.Is(err, batch.ErrRunAlreadyInProgress) {
			WriteError(w, http.StatusConflict, "Cannot reset while a run is in progress")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to reset items")
		WriteError(w, http.StatusInternalServerError, "Failed to reset items")
		return
	}

	h.publish(r.Context(), interfaces.EventItemsReset, nil)
	WriteSuccess(w, "Items cleared")
}
