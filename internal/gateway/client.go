// Package gateway is a minimal JSON-over-HTTP client to the RAG backend.
// Every call is attempted exactly once.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ragchat/internal/domain"
	"ragchat/internal/logging"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Status)
}

// Config configures the backend client.
type Config struct {
	BaseURL string
	// Timeout of zero means no client-side timeout.
	Timeout time.Duration
	// HTTPClient overrides the default client when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the backend's /health, /ingest, /build_index, /load_index and /chat.
type Client struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

var _ domain.Backend = (*Client)(nil)

// NewClient creates a new backend client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("missing backend base URL")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid backend base URL %q: %w", cfg.BaseURL, err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Client{baseURL: base, client: hc, log: log}, nil
}

// BaseURL returns the normalised backend origin.
func (c *Client) BaseURL() string { return c.baseURL }

// Health calls GET /health. A transport or status failure yields HealthError with the cause.
func (c *Client) Health(ctx context.Context) (domain.HealthStatus, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, nil, &out); err != nil {
		return domain.HealthError, err
	}
	if out.Status == "" {
		return domain.HealthUnknown, nil
	}
	return domain.HealthStatus(out.Status), nil
}

// Ingest calls POST /ingest.
func (c *Client) Ingest(ctx context.Context, urls []string, pipeline domain.Pipeline) (domain.StepResult, error) {
	var out domain.StepResult
	body := domain.IngestRequest{URLs: urls, Pipeline: pipeline}
	err := c.do(ctx, "ingest", http.MethodPost, "/ingest", nil, body, &out)
	return out, err
}

// BuildIndex calls POST /build_index.
func (c *Client) BuildIndex(ctx context.Context, req domain.BuildIndexRequest) (domain.StepResult, error) {
	var out domain.StepResult
	err := c.do(ctx, "build_index", http.MethodPost, "/build_index", nil, req, &out)
	return out, err
}

// LoadIndex calls POST /load_index with the selection passed as query parameters.
func (c *Client) LoadIndex(ctx context.Context, embedModel domain.EmbedModel, chunker domain.Chunker) (domain.StepResult, error) {
	var out domain.StepResult
	q := url.Values{}
	q.Set("embed_model", string(embedModel))
	q.Set("chunker", string(chunker))
	err := c.do(ctx, "load_index", http.MethodPost, "/load_index", q, nil, &out)
	return out, err
}

// Chat calls POST /chat. Missing answer or citations decode to their zero values.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	var out domain.ChatResponse
	if err := c.do(ctx, "chat", http.MethodPost, "/chat", nil, req, &out); err != nil {
		return domain.ChatResponse{}, err
	}
	if out.Citations == nil {
		out.Citations = []domain.Citation{}
	}
	return out, nil
}

// do sends one request. For the indexing steps the response body is advisory, so a
// body that fails to decode is logged and ignored; for health and chat it is an error.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshaling request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: calling backend: %w", op, err)
	}
	defer resp.Body.Close()
	c.log.Debug("backend call", "op", op, "method", method, "url", endpoint, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if out == nil {
		return nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", op, err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		if advisory(op) {
			return nil
		}
		return fmt.Errorf("%s: empty response", op)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		if advisory(op) {
			c.log.Debug("ignoring undecodable step response", "op", op, "err", err)
			return nil
		}
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

func advisory(op string) bool {
	switch op {
	case "ingest", "build_index", "load_index":
		return true
	}
	return false
}
