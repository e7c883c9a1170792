package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seoforge/internal/batch"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/models"
	"github.com/ternarybob/seoforge/internal/services/credentials"
	"github.com/ternarybob/seoforge/internal/services/exporter"
	"github.com/ternarybob/seoforge/internal/services/importer"
	"github.com/ternarybob/seoforge/internal/services/topics"
	"github.com/ternarybob/seoforge/internal/store"
)

// mockRunner implements BatchRunner for testing
type mockRunner struct {
	mu       sync.Mutex
	running  bool
	invalid  bool
	startErr error
	started  []models.RunConfiguration
	progress models.RunProgress
	store    *store.ItemStore
	resets   int
}

func (m *mockRunner) Start(ctx context.Context, cfg models.RunConfiguration) (models.RunProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return models.RunProgress{}, m.startErr
	}
	m.started = append(m.started, cfg)
	return m.progress, nil
}

func (m *mockRunner) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockRunner) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return batch.ErrRunAlreadyInProgress
	}
	m.resets++
	if m.store != nil {
		m.store.Clear()
	}
	return nil
}

func (m *mockRunner) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockRunner) Progress() models.RunProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

func (m *mockRunner) CredentialsInvalid() bool { return m.invalid }

// mockRuns implements interfaces.RunStorage for testing
type mockRuns struct {
	records []models.RunRecord
}

func (m *mockRuns) SaveRun(ctx context.Context, record *models.RunRecord) error {
	m.records = append(m.records, *record)
	return nil
}

func (m *mockRuns) GetRun(ctx context.Context, id string) (*models.RunRecord, error) { return nil, nil }

func (m *mockRuns) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit > 0 && limit < len(m.records) {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *mockRuns) DeleteAllRuns(ctx context.Context) error { return nil }

// mockCredentials implements CredentialsManager for testing
type mockCredentials struct {
	status credentials.Status
}

func (m *mockCredentials) Status() credentials.Status { return m.status }

func (m *mockCredentials) Set(ctx context.Context, provider, apiKey string) (credentials.Status, error) {
	if strings.TrimSpace(apiKey) == "" {
		return credentials.Status{}, credentials.ErrEmptyAPIKey
	}
	m.status = credentials.Status{Valid: true, Configured: true, Provider: provider}
	return m.status, nil
}

func newItemStore(t *testing.T, keywords ...string) *store.ItemStore {
	t.Helper()
	s := store.NewItemStore(arbor.NewLogger())
	items := make([]models.WorkItem, len(keywords))
	for i, kw := range keywords {
		items[i] = models.WorkItem{Keyword: kw}
	}
	_, err := s.Append(items)
	require.NoError(t, err)
	return s
}

func newItemHandler(t *testing.T, s *store.ItemStore, runner BatchRunner) *ItemHandler {
	t.Helper()
	logger := arbor.NewLogger()
	return NewItemHandler(
		s,
		importer.NewImporter(afero.NewMemMapFs(), logger),
		runner,
		topics.NewRegistry(logger),
		nil,
		"Logistics",
		logger,
	)
}

func multipartUpload(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestImportHandler(t *testing.T) {
	s := newItemStore(t)
	h := newItemHandler(t, s, &mockRunner{})

	csv := []byte("Keyword,Volume,Slug\nsea freight,1200,sea\nair freight,800,\n")
	rec := httptest.NewRecorder()
	h.ImportHandler(rec, multipartUpload(t, "file", "keywords.csv", csv))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["imported"])
	assert.Equal(t, []interface{}{float64(0), float64(1)}, body["indices"])

	item, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "sea freight", item.Keyword)
	assert.Equal(t, "sea", item.SlugHint)
}

func TestImportHandlerErrors(t *testing.T) {
	s := newItemStore(t, "existing")
	h := newItemHandler(t, s, &mockRunner{})

	tests := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"unsupported file", multipartUpload(t, "file", "doc.pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")), http.StatusBadRequest},
		{"empty file", multipartUpload(t, "file", "empty.csv", nil), http.StatusBadRequest},
		{"missing field", multipartUpload(t, "upload", "k.csv", []byte("Keyword\na\n")), http.StatusBadRequest},
		{"wrong method", httptest.NewRequest(http.MethodGet, "/api/import", nil), http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ImportHandler(rec, tt.req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
	assert.Equal(t, 1, s.Len())
}

func TestListHandler(t *testing.T) {
	s := newItemStore(t, "a", "b", "c")
	_, err := s.Update(1, models.MarkError("quota exceeded"))
	require.NoError(t, err)
	h := newItemHandler(t, s, &mockRunner{})

	rec := httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/items?status=error", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].(map[string]interface{})["keyword"])
	assert.Equal(t, float64(3), body["stats"].(map[string]interface{})["total"])

	rec = httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/items?page=1&pageSize=2", nil))
	body = decode(t, rec)
	assert.Len(t, body["items"], 1)
	assert.Equal(t, float64(2), body["pagination"].(map[string]interface{})["total_pages"])

	rec = httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/items?status=done", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemRoutes(t *testing.T) {
	s := newItemStore(t, "sea freight")
	_, err := s.Update(0, models.MarkCompleted(&models.ContentFields{
		Slug: "sea-freight",
		H1:   "Sea freight",
		Text: "## Routes\n\n**Fast** delivery",
		FAQ:  "### Q\nA",
	}))
	require.NoError(t, err)
	h := newItemHandler(t, s, &mockRunner{})

	tests := []struct {
		path string
		code int
	}{
		{"/api/items/0", http.StatusOK},
		{"/api/items/0/preview", http.StatusOK},
		{"/api/items/7", http.StatusNotFound},
		{"/api/items/abc", http.StatusBadRequest},
		{"/api/items/0/other", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ItemRoutes(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	h.ItemRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/items/0/preview", nil))
	body := decode(t, rec)
	assert.Equal(t, "Logistics", body["topic"])
	rendered := body["rendered"].(map[string]interface{})
	assert.Contains(t, rendered["text"], "<strong")
	assert.Contains(t, body, "audit")
}

func TestResetHandler(t *testing.T) {
	s := newItemStore(t, "a")
	runner := &mockRunner{running: true, store: s}
	h := newItemHandler(t, s, runner)

	rec := httptest.NewRecorder()
	h.ResetHandler(rec, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, s.Len())

	runner.running = false
	rec = httptest.NewRecorder()
	h.ResetHandler(rec, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, runner.resets)

	rec = httptest.NewRecorder()
	h.ResetHandler(rec, httptest.NewRequest(http.MethodGet, "/api/reset", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 1, runner.resets)
}

func TestRunHandlerStart(t *testing.T) {
	defaults := common.NewDefaultConfig().RunDefaults()
	runner := &mockRunner{progress: models.RunProgress{RunID: "run_1", Total: 3, Running: true}}
	h := NewRunHandler(runner, &mockRuns{}, defaults, arbor.NewLogger())

	rec := httptest.NewRecorder()
	body := `{"concurrency":5,"process_all":true,"topic":"Tech","custom_instructions":"Be brief"}`
	h.StartHandler(rec, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "run_1", decode(t, rec)["run_id"])

	require.Len(t, runner.started, 1)
	cfg := runner.started[0]
	assert.Equal(t, 5, cfg.Concurrency)
	assert.True(t, cfg.Selection.All)
	assert.Equal(t, "Tech", cfg.Settings.Topic)
	assert.Equal(t, "Russian", cfg.Settings.Language)
	assert.Equal(t, 3000, cfg.Settings.TargetLength)
	assert.Equal(t, "Be brief", cfg.Settings.CustomInstructions)
}

func TestRunHandlerDefaults(t *testing.T) {
	defaults := common.NewDefaultConfig().RunDefaults()
	runner := &mockRunner{}
	h := NewRunHandler(runner, &mockRuns{}, defaults, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.StartHandler(rec, httptest.NewRequest(http.MethodPost, "/api/run", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decode(t, rec)["status"])
	require.Len(t, runner.started, 1)
	assert.Equal(t, defaults, runner.started[0])
}

func TestRunHandlerErrors(t *testing.T) {
	defaults := common.NewDefaultConfig().RunDefaults()

	tests := []struct {
		name   string
		body   string
		runErr error
		code   int
	}{
		{"too many workers", `{"concurrency":11}`, nil, http.StatusBadRequest},
		{"malformed body", `{"concurrency":`, nil, http.StatusBadRequest},
		{"rejected by processor", `{"concurrency":0}`, batch.ErrInvalidConfiguration, http.StatusBadRequest},
		{"already running", `{}`, batch.ErrRunAlreadyInProgress, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRunHandler(&mockRunner{startErr: tt.runErr}, &mockRuns{}, defaults, arbor.NewLogger())
			rec := httptest.NewRecorder()
			h.StartHandler(rec, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestRunHandlerProgressCancelHistory(t *testing.T) {
	runner := &mockRunner{invalid: true, progress: models.RunProgress{RunID: "run_1", Completed: 1, Total: 2}}
	runs := &mockRuns{records: []models.RunRecord{{ID: "run_2"}, {ID: "run_1"}}}
	h := NewRunHandler(runner, runs, models.RunConfiguration{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.ProgressHandler(rec, httptest.NewRequest(http.MethodGet, "/api/run", nil))
	body := decode(t, rec)
	assert.Equal(t, true, body["credentials_invalid"])
	assert.Equal(t, "run_1", body["progress"].(map[string]interface{})["run_id"])

	rec = httptest.NewRecorder()
	h.CancelHandler(rec, httptest.NewRequest(http.MethodPost, "/api/run/cancel", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	runner.running = true
	rec = httptest.NewRecorder()
	h.CancelHandler(rec, httptest.NewRequest(http.MethodPost, "/api/run/cancel", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.HistoryHandler(rec, httptest.NewRequest(http.MethodGet, "/api/runs?limit=1", nil))
	body = decode(t, rec)
	assert.Equal(t, float64(1), body["count"])

	rec = httptest.NewRecorder()
	h.HistoryHandler(rec, httptest.NewRequest(http.MethodGet, "/api/runs?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportHandler(t *testing.T) {
	logger := arbor.NewLogger()
	s := newItemStore(t, "sea freight")
	cfg := common.NewDefaultConfig().Export
	h := NewExportHandler(s, exporter.NewService(&cfg, afero.NewMemMapFs(), logger), logger)

	rec := httptest.NewRecorder()
	h.ExportHandler(rec, httptest.NewRequest(http.MethodGet, "/api/export/json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="logistics_export_`)
	assert.True(t, json.Valid(rec.Body.Bytes()))

	rec = httptest.NewRecorder()
	h.ExportHandler(rec, httptest.NewRequest(http.MethodGet, "/api/export/pdf", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.ExportHandler(rec, httptest.NewRequest(http.MethodGet, "/api/export/docx", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCredentialsHandler(t *testing.T) {
	manager := &mockCredentials{status: credentials.Status{Provider: "gemini"}}
	h := NewCredentialsHandler(manager, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/credentials", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["valid"])

	rec = httptest.NewRecorder()
	h.UpdateHandler(rec, httptest.NewRequest(http.MethodPut, "/api/credentials", strings.NewReader(`{"provider":"gemini","api_key":"k"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["valid"])

	rec = httptest.NewRecorder()
	h.UpdateHandler(rec, httptest.NewRequest(http.MethodPut, "/api/credentials", strings.NewReader(`{"api_key":" "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.UpdateHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/credentials", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPIHandler(t *testing.T) {
	logger := arbor.NewLogger()
	h := NewAPIHandler(topics.NewRegistry(logger), []string{"Russian", "English"}, logger)

	rec := httptest.NewRecorder()
	h.TopicsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/topics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["topics"], 10)
	assert.Equal(t, []interface{}{"Russian", "English"}, body["languages"])

	rec = httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = httptest.NewRecorder()
	h.VersionHandler(rec, httptest.NewRequest(http.MethodPost, "/api/version", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
