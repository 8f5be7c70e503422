// Package chat holds the single-exchange chat state and its round trip to the backend.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"ragchat/internal/domain"
	"ragchat/internal/logging"
)

// Session keeps the current exchange only; every Submit replaces it.
// It does not serialize submissions, callers gate input while Loading is true.
type Session struct {
	backend domain.ChatBackend
	topK    int
	log     *slog.Logger

	mu       sync.RWMutex
	exchange domain.ChatExchange
	inFlight int
}

// NewSession creates a session with no exchange. A non-positive topK falls back to 5.
func NewSession(backend domain.ChatBackend, topK int, log *slog.Logger) *Session {
	if topK <= 0 {
		topK = 5
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Session{backend: backend, topK: topK, log: log}
}

// Submit sends query with the given embed model. Blank queries return ErrEmptyQuery
// without touching the backend or the current exchange. Otherwise the previous answer
// is cleared before the request; on failure it stays cleared, the error is logged and
// returned, and nothing is retried.
func (s *Session) Submit(ctx context.Context, query string, embedModel domain.EmbedModel) (domain.ChatExchange, error) {
	if strings.TrimSpace(query) == "" {
		return s.Current(), domain.ErrEmptyQuery
	}

	s.mu.Lock()
	s.exchange = domain.ChatExchange{Query: query}
	s.inFlight++
	s.mu.Unlock()

	resp, err := s.backend.Chat(ctx, domain.ChatRequest{Query: query, EmbedModel: embedModel, TopK: s.topK})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if err != nil {
		s.log.Error("chat failed", "query", query, "embed_model", embedModel, "err", err)
		return domain.ChatExchange{Query: query}, err
	}
	citations := resp.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	ex := domain.ChatExchange{Query: query, Answer: resp.Answer, Citations: citations}
	s.exchange = ex
	s.log.Info("chat answered", "embed_model", embedModel, "citations", len(citations), "chunks", len(ex.Chunks()))
	return ex, nil
}

// Current returns the latest exchange.
func (s *Session) Current() domain.ChatExchange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exchange
}

// Chunks is derived from the current exchange on every call.
func (s *Session) Chunks() []string {
	return s.Current().Chunks()
}

// Loading reports whether a submission is awaiting the backend.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}
