package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/services/credentials"
)

// CredentialsRequest is the body of PUT /api/credentials
type CredentialsRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// CredentialsHandler reports and replaces the generator API key
type CredentialsHandler struct {
	credentials CredentialsManager
	logger      arbor.ILogger
}

// NewCredentialsHandler creates a credentials handler
func NewCredentialsHandler(manager CredentialsManager, logger arbor.ILogger) *CredentialsHandler {
	return &CredentialsHandler{credentials: manager, logger: logger}
}

// StatusHandler reports whether a usable API key is configured
func (h *CredentialsHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.credentials.Status())
}

// UpdateHandler stores a new API key and rebuilds the generator
func (h *CredentialsHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	status, err := h.credentials.Set(r.Context(), req.Provider, req.APIKey)
	switch {
	case errors.Is(err, credentials.ErrEmptyAPIKey), errors.Is(err, credentials.ErrUnknownProvider):
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, status)
}
