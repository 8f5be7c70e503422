package domain

import "context"

// IngestRequest is the body of POST /ingest.
type IngestRequest struct {
	URLs     []string `json:"urls"`
	Pipeline Pipeline `json:"pipeline"`
}

// BuildIndexRequest is the body of POST /build_index.
type BuildIndexRequest struct {
	EmbedModel EmbedModel `json:"embed_model"`
	Chunker    Chunker    `json:"chunker"`
	URLs       []string   `json:"urls"`
	Pipeline   Pipeline   `json:"pipeline"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query      string     `json:"query"`
	EmbedModel EmbedModel `json:"embed_model"`
	TopK       int        `json:"top_k"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// StepResult is whatever the backend chose to say about an indexing step.
// The body is advisory and may be empty.
type StepResult struct {
	Message string `json:"message,omitempty"`
	Path    string `json:"path,omitempty"`
}

// IndexBackend covers the three calls making up a reindex run.
type IndexBackend interface {
	Ingest(ctx context.Context, urls []string, pipeline Pipeline) (StepResult, error)
	BuildIndex(ctx context.Context, req BuildIndexRequest) (StepResult, error)
	LoadIndex(ctx context.Context, embedModel EmbedModel, chunker Chunker) (StepResult, error)
}

// ChatBackend answers queries against the currently loaded index.
type ChatBackend interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// HealthChecker reports backend liveness.
type HealthChecker interface {
	Health(ctx context.Context) (HealthStatus, error)
}

// Backend is the full remote surface used by the client.
type Backend interface {
	IndexBackend
	ChatBackend
	HealthChecker
}
