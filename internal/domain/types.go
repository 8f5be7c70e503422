package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownEmbedModel = errors.New("unknown embed model")
	ErrUnknownChunker    = errors.New("unknown chunker")
	ErrUnknownPipeline   = errors.New("unknown pipeline")
	ErrEmptyQuery        = errors.New("empty query")
)

// Option is a selectable value together with its display label.
type Option struct {
	Value string
	Label string
}

// EmbedModel names an embedding model the backend can index with.
type EmbedModel string

const (
	EmbedOpenAI EmbedModel = "openai"
	EmbedE5     EmbedModel = "e5"
	EmbedBGE    EmbedModel = "bge"
)

// Chunker names a backend chunking strategy.
type Chunker string

const (
	ChunkerFixed      Chunker = "fixed"
	ChunkerSemantic   Chunker = "semantic"
	ChunkerStructural Chunker = "structural"
	ChunkerRecursive  Chunker = "recursive"
)

// Pipeline names a backend ingestion pipeline.
type Pipeline string

const (
	PipelineTrafilatura Pipeline = "trafilatura"
	PipelineRequests    Pipeline = "requests"
	PipelineSelenium    Pipeline = "selenium"
)

// EmbedModels, Chunkers and Pipelines list the selectable values in display order.
// The first entry of each is the default.
var (
	EmbedModels = []Option{
		{Value: string(EmbedOpenAI), Label: "OpenAI"},
		{Value: string(EmbedE5), Label: "E5 (Sentence Transformers)"},
		{Value: string(EmbedBGE), Label: "BGE (Sentence Transformers)"},
	}
	Chunkers = []Option{
		{Value: string(ChunkerFixed), Label: "Fixed"},
		{Value: string(ChunkerSemantic), Label: "Semantic"},
		{Value: string(ChunkerStructural), Label: "Structural"},
		{Value: string(ChunkerRecursive), Label: "Recursive"},
	}
	Pipelines = []Option{
		{Value: string(PipelineTrafilatura), Label: "Trafilatura (HTML)"},
		{Value: string(PipelineRequests), Label: "Requests + BeautifulSoup"},
		{Value: string(PipelineSelenium), Label: "Selenium (JavaScript)"},
	}
)

// Configuration is the user's current selection. Any change to it triggers a reindex.
type Configuration struct {
	EmbedModel EmbedModel
	Chunker    Chunker
	Pipeline   Pipeline
}

// DefaultConfiguration returns the first option of every selector.
func DefaultConfiguration() Configuration {
	return Configuration{
		EmbedModel: EmbedModel(EmbedModels[0].Value),
		Chunker:    Chunker(Chunkers[0].Value),
		Pipeline:   Pipeline(Pipelines[0].Value),
	}
}

// Validate reports the first field holding a value outside its option set.
func (c Configuration) Validate() error {
	if indexOf(EmbedModels, string(c.EmbedModel)) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownEmbedModel, c.EmbedModel)
	}
	if indexOf(Chunkers, string(c.Chunker)) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownChunker, c.Chunker)
	}
	if indexOf(Pipelines, string(c.Pipeline)) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPipeline, c.Pipeline)
	}
	return nil
}

func (c Configuration) String() string {
	return fmt.Sprintf("%s/%s/%s", c.EmbedModel, c.Chunker, c.Pipeline)
}

// LabelOf returns the display label for value, or value itself when unknown.
func LabelOf(options []Option, value string) string {
	if i := indexOf(options, value); i >= 0 {
		return options[i].Label
	}
	return value
}

// Cycle returns the option value delta steps away from value, wrapping around.
func Cycle(options []Option, value string, delta int) string {
	if len(options) == 0 {
		return value
	}
	i := indexOf(options, value)
	if i < 0 {
		return options[0].Value
	}
	n := len(options)
	return options[((i+delta)%n+n)%n].Value
}

func indexOf(options []Option, value string) int {
	for i, o := range options {
		if o.Value == value {
			return i
		}
	}
	return -1
}

// HealthStatus is the backend status from /health, or HealthError when it could not be read.
type HealthStatus string

const (
	HealthUnknown HealthStatus = "unknown"
	HealthOK      HealthStatus = "ok"
	HealthError   HealthStatus = "error"
)

// Online reports whether the backend answered with status "ok".
func (h HealthStatus) Online() bool { return h == HealthOK }

// Citation is a backend-provided reference supporting an answer.
type Citation struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
	ChunkText string `json:"chunk_text,omitempty"`
}

// DisplayTitle is the title when present, the URL otherwise.
func (c Citation) DisplayTitle() string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	return c.URL
}

// Text is the chunk text, falling back to the snippet.
func (c Citation) Text() string {
	if c.ChunkText != "" {
		return c.ChunkText
	}
	return c.Snippet
}

// ChatExchange is one query with its answer. A new submission replaces it wholesale.
type ChatExchange struct {
	Query     string
	Answer    string
	Citations []Citation
}

// Chunks is always derived from the citations, never stored.
func (e ChatExchange) Chunks() []string {
	return DeduplicateChunks(e.Citations)
}

// DeduplicateChunks collects the text of every citation, dropping entries equal to an
// earlier one under case-insensitive comparison. First-seen order and casing are kept.
// Citations with neither chunk text nor snippet contribute nothing.
func DeduplicateChunks(citations []Citation) []string {
	seen := make(map[string]struct{}, len(citations))
	out := make([]string, 0, len(citations))
	for _, c := range citations {
		text := c.Text()
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, text)
	}
	return out
}
