package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/batch"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
)

var requestValidator = validator.New()

// RunRequest is the body of POST /api/run. Unset fields take the [batch] defaults.
type RunRequest struct {
	Concurrency        *int    `json:"concurrency" validate:"omitempty,gte=1,lte=10"`
	MaxRows            *int    `json:"max_rows" validate:"omitempty,gte=1"`
	ProcessAll         *bool   `json:"process_all"`
	Language           *string `json:"language"`
	Topic              *string `json:"topic"`
	TargetLength       *int    `json:"target_length" validate:"omitempty,gte=0"`
	CustomInstructions string  `json:"custom_instructions"`
}

// Configuration merges the request over defaults
func (req RunRequest) Configuration(defaults models.RunConfiguration) (models.RunConfiguration, error) {
	if err := requestValidator.Struct(req); err != nil {
		return models.RunConfiguration{}, err
	}

	cfg := defaults
	if req.Concurrency != nil {
		cfg.Concurrency = *req.Concurrency
	}
	if req.MaxRows != nil {
		cfg.Selection = models.SelectFirst(*req.MaxRows)
	}
	if req.ProcessAll != nil {
		if *req.ProcessAll {
			cfg.Selection = models.SelectAll()
		} else if cfg.Selection.All {
			cfg.Selection = models.SelectFirst(defaults.Selection.Max)
		}
	}
	if req.Language != nil && strings.TrimSpace(*req.Language) != "" {
		cfg.Settings.Language = strings.TrimSpace(*req.Language)
	}
	if req.Topic != nil && strings.TrimSpace(*req.Topic) != "" {
		cfg.Settings.Topic = strings.TrimSpace(*req.Topic)
	}
	if req.TargetLength != nil {
		cfg.Settings.TargetLength = *req.TargetLength
	}
	cfg.Settings.CustomInstructions = req.CustomInstructions
	return cfg, nil
}

// RunHandler starts, observes and cancels batch runs
type RunHandler struct {
	runner   BatchRunner
	runs     interfaces.RunStorage
	defaults models.RunConfiguration
	logger   arbor.ILogger
}

// NewRunHandler creates a run handler
func NewRunHandler(runner BatchRunner, runs interfaces.RunStorage, defaults models.RunConfiguration, logger arbor.ILogger) *RunHandler {
	return &RunHandler{
		runner:   runner,
		runs:     runs,
		defaults: defaults,
		logger:   logger,
	}
}

// StartHandler starts a run in the background and answers 202 with its id
func (h *RunHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	cfg, err := req.Configuration(h.defaults)
	if err != nil {
		WriteError(w, http.StatusBadRequest, batch.ErrInvalidConfiguration.Error()+": "+err.Error())
		return
	}

	// Runs outlive the request
	progress, err := h.runner.Start(context.WithoutCancel(r.Context()), cfg)
	switch {
	case errors.Is(err, batch.ErrInvalidConfiguration):
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, batch.ErrRunAlreadyInProgress):
		WriteError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("Failed to start batch run")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if progress.RunID == "" {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "idle",
			"message":  "No eligible items",
			"progress": progress,
		})
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":   "started",
		"run_id":   progress.RunID,
		"progress": progress,
	})
}

// ProgressHandler returns the active or last run's progress
func (h *RunHandler) ProgressHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"progress":            h.runner.Progress(),
		"credentials_invalid": h.runner.CredentialsInvalid(),
	})
}

// CancelHandler stops dispatch for the active run
func (h *RunHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !h.runner.Cancel() {
		WriteError(w, http.StatusConflict, "No run in progress")
		return
	}
	WriteSuccess(w, "Cancellation requested")
}

// HistoryHandler lists finished runs, newest first (?limit=, default 20)
func (h *RunHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []models.RunRecord{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
