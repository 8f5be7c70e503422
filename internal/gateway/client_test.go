package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
	_, err = NewClient(Config{BaseURL: "not a url"})
	assert.Error(t, err)

	c, err := NewClient(Config{BaseURL: "http://localhost:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestHealthOK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthOK, status)
}

func TestHealthNetworkFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	srv.Close()

	status, err := c.Health(context.Background())
	assert.Error(t, err)
	assert.Equal(t, domain.HealthError, status)
}

func TestHealthServerErrorIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	status, err := c.Health(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "health", se.Op)
	assert.Equal(t, domain.HealthError, status)
}

func TestIngestBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ingest", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "trafilatura", body["pipeline"])
		assert.Equal(t, []any{"https://a", "https://b"}, body["urls"])
		json.NewEncoder(w).Encode(body)
	})
	_, err := c.Ingest(context.Background(), []string{"https://a", "https://b"}, domain.PipelineTrafilatura)
	require.NoError(t, err)
}

func TestBuildIndexBodyAndResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/build_index", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "e5", body["embed_model"])
		assert.Equal(t, "semantic", body["chunker"])
		assert.Equal(t, "selenium", body["pipeline"])
		assert.Equal(t, []any{"https://a"}, body["urls"])
		w.Write([]byte(`{"message":"Index built","path":"./faiss_index/e5_semantic.index"}`))
	})
	res, err := c.BuildIndex(context.Background(), domain.BuildIndexRequest{
		EmbedModel: domain.EmbedE5,
		Chunker:    domain.ChunkerSemantic,
		URLs:       []string{"https://a"},
		Pipeline:   domain.PipelineSelenium,
	})
	require.NoError(t, err)
	assert.Equal(t, "Index built", res.Message)
	assert.Equal(t, "./faiss_index/e5_semantic.index", res.Path)
}

func TestLoadIndexUsesQueryParamsOnly(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/load_index", r.URL.Path)
		assert.Equal(t, "bge", r.URL.Query().Get("embed_model"))
		assert.Equal(t, "recursive", r.URL.Query().Get("chunker"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		assert.Equal(t, int64(0), r.ContentLength)
		w.Write([]byte(`{"message":"Index loaded bge_recursive"}`))
	})
	res, err := c.LoadIndex(context.Background(), domain.EmbedBGE, domain.ChunkerRecursive)
	require.NoError(t, err)
	assert.Equal(t, "Index loaded bge_recursive", res.Message)
}

func TestStepToleratesNonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("accepted"))
	})
	_, err := c.Ingest(context.Background(), nil, domain.PipelineRequests)
	assert.NoError(t, err)
}

func TestStepFailsOnStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.BuildIndex(context.Background(), domain.BuildIndexRequest{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "build_index", se.Op)
}

func TestChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "How to contact support?", body["query"])
		assert.Equal(t, "openai", body["embed_model"])
		assert.Equal(t, float64(5), body["top_k"])
		w.Write([]byte(`{"answer":"Call 1800-XXX","citations":[{"url":"https://www.jiopay.com/help","snippet":"Contact us","chunk_text":"Contact us at ..."}]}`))
	})
	resp, err := c.Chat(context.Background(), domain.ChatRequest{Query: "How to contact support?", EmbedModel: domain.EmbedOpenAI, TopK: 5})
	require.NoError(t, err)
	assert.Equal(t, "Call 1800-XXX", resp.Answer)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, domain.Citation{URL: "https://www.jiopay.com/help", Snippet: "Contact us", ChunkText: "Contact us at ..."}, resp.Citations[0])
}

func TestChatMissingFieldsDecodeEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	resp, err := c.Chat(context.Background(), domain.ChatRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "", resp.Answer)
	assert.NotNil(t, resp.Citations)
	assert.Empty(t, resp.Citations)
}

func TestChatMalformedBodyIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	})
	_, err := c.Chat(context.Background(), domain.ChatRequest{Query: "q"})
	assert.Error(t, err)
}

func TestSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Chat(context.Background(), domain.ChatRequest{Query: "q"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
