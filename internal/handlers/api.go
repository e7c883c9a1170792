package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
)

// APIHandler serves version, health and topic metadata
type APIHandler struct {
	topics    TopicResolver
	languages []string
	startedAt time.Time
	logger    arbor.ILogger
}

func NewAPIHandler(topics TopicResolver, languages []string, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		topics:    topics,
		languages: languages,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// VersionHandler handles GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

// HealthHandler handles GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// TopicsHandler lists the topic profiles and the languages offered to clients
func (h *APIHandler) TopicsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"topics":    h.topics.List(),
		"languages": h.languages,
	})
}

// NotFoundHandler answers unknown /api paths
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("path", r.URL.Path).Msg("Unknown API endpoint")
	WriteJSON(w, http.StatusNotFound, map[string]string{
		"status": "error",
		"error":  "no such endpoint: " + r.URL.Path,
	})
}
