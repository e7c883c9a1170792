package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/models"
	"github.com/ternarybob/seoforge/internal/services/topics"
)

type geminiStub struct {
	calls    atomic.Int32
	lastBody atomic.Value
	handler  func(w http.ResponseWriter, call int32)
}

func (s *geminiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.lastBody.Store(string(body))
	call := s.calls.Add(1)
	w.Header().Set("Content-Type", "application/json")
	s.handler(w, call)
}

func geminiCandidate(t *testing.T, text string, uris ...string) []byte {
	t.Helper()
	chunks := make([]map[string]interface{}, 0, len(uris))
	for _, uri := range uris {
		chunks = append(chunks, map[string]interface{}{"web": map[string]string{"uri": uri, "title": uri}})
	}
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"content": map[string]interface{}{
				"role":  "model",
				"parts": []map[string]string{{"text": text}},
			},
			"finishReason":      "STOP",
			"groundingMetadata": map[string]interface{}{"groundingChunks": chunks},
		}},
	}
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return data
}

func newTestGemini(t *testing.T, stub *geminiStub) *GeminiGenerator {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	gen, err := NewGeminiGenerator(context.Background(), Options{
		APIKey:    "test-key",
		Model:     "gemini-test",
		Grounding: true,
		Retry:     fastRetry(2),
		BaseURL:   srv.URL + "/",
	}, topics.NewRegistry(arbor.NewLogger()), arbor.NewLogger())
	require.NoError(t, err)
	return gen
}

func TestGeminiGenerate(t *testing.T) {
	stub := &geminiStub{}
	stub.handler = func(w http.ResponseWriter, _ int32) {
		_, _ = w.Write(geminiCandidate(t, contentJSON(t, nil), "https://a.example", "https://b.example", "https://a.example"))
	}
	gen := newTestGemini(t, stub)

	content, err := gen.Generate(context.Background(), &models.GenerationRequest{
		Keyword:  "доставка",
		Topic:    topics.Logistics,
		Language: "Russian",
		SlugHint: "dostavka",
	})
	require.NoError(t, err)
	assert.Equal(t, "dostavka", content.Slug)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, content.Sources)
	assert.Equal(t, "gemini/gemini-test", gen.Name())

	body, _ := stub.lastBody.Load().(string)
	assert.Contains(t, body, "googleSearch")
	assert.Contains(t, body, "application/json")
	assert.Contains(t, body, "responseSchema")
}

func TestGeminiGenerateRetriesRateLimit(t *testing.T) {
	stub := &geminiStub{}
	stub.handler = func(w http.ResponseWriter, call int32) {
		if call == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		_, _ = w.Write(geminiCandidate(t, contentJSON(t, nil)))
	}
	gen := newTestGemini(t, stub)

	content, err := gen.Generate(context.Background(), &models.GenerationRequest{Keyword: "k", Topic: topics.General, Language: "English"})
	require.NoError(t, err)
	assert.Equal(t, "china-freight", content.Slug)
	assert.Nil(t, content.Sources)
	assert.EqualValues(t, 2, stub.calls.Load())
}

func TestGeminiGenerateAuthorizationFailure(t *testing.T) {
	stub := &geminiStub{}
	stub.handler = func(w http.ResponseWriter, _ int32) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`))
	}
	gen := newTestGemini(t, stub)

	_, err := gen.Generate(context.Background(), &models.GenerationRequest{Keyword: "k", Topic: topics.General, Language: "English"})
	require.ErrorIs(t, err, ErrAuthorization)
	assert.True(t, strings.Contains(strings.ToLower(err.Error()), "requested entity was not found"))
	assert.EqualValues(t, 1, stub.calls.Load())
}

func TestGeminiGenerateMalformed(t *testing.T) {
	stub := &geminiStub{}
	stub.handler = func(w http.ResponseWriter, _ int32) {
		_, _ = w.Write(geminiCandidate(t, `{"slug": "only-slug"}`))
	}
	gen := newTestGemini(t, stub)

	_, err := gen.Generate(context.Background(), &models.GenerationRequest{Keyword: "k", Topic: topics.General, Language: "English"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNewGeminiGeneratorRequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), Options{Model: "gemini-test"}, topics.NewRegistry(arbor.NewLogger()), arbor.NewLogger())
	assert.ErrorIs(t, err, ErrAuthorization)
}
