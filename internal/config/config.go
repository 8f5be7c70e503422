package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ragchat/internal/domain"
)

const (
	DefaultBaseURL       = "https://jiopay-bot-main.onrender.com"
	DefaultTopK          = 5
	DefaultMaxQueryChars = 1000

	EnvBaseURL  = "RAGCHAT_BASE_URL"
	EnvLogLevel = "RAGCHAT_LOG_LEVEL"
)

// DefaultSources are the pages ingested on every reindex.
var DefaultSources = []string{
	"https://www.jiopay.com/",
	"https://www.jiopay.com/business",
	"https://www.jiopay.com/help",
	"https://www.jiopay.com/terms",
	"https://www.jiopay.com/privacy",
}

// BackendConfig locates the RAG backend.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	// TimeoutSecs of zero leaves the transport default in place.
	TimeoutSecs int `yaml:"timeout_secs"`
}

// Timeout converts TimeoutSecs into a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// SelectionConfig is the initial embed model / chunker / pipeline selection.
type SelectionConfig struct {
	EmbedModel string `yaml:"embed_model"`
	Chunker    string `yaml:"chunker"`
	Pipeline   string `yaml:"pipeline"`
}

// Configuration converts the selection into a domain value.
func (s SelectionConfig) Configuration() domain.Configuration {
	return domain.Configuration{
		EmbedModel: domain.EmbedModel(s.EmbedModel),
		Chunker:    domain.Chunker(s.Chunker),
		Pipeline:   domain.Pipeline(s.Pipeline),
	}
}

// ChatConfig tunes chat requests.
type ChatConfig struct {
	TopK          int `yaml:"top_k"`
	MaxQueryChars int `yaml:"max_query_chars"`
}

// ReindexConfig controls how overlapping reindex runs interact.
type ReindexConfig struct {
	// Supersede cancels an in-flight run when a newer one starts.
	Supersede bool `yaml:"supersede"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Backend  BackendConfig   `yaml:"backend"`
	Sources  []string        `yaml:"sources"`
	Defaults SelectionConfig `yaml:"defaults"`
	Chat     ChatConfig      `yaml:"chat"`
	Reindex  ReindexConfig   `yaml:"reindex"`
	Log      LogConfig       `yaml:"log"`
}

// Validate checks that the config can drive a session.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.base_url is required")
	}
	if c.Backend.TimeoutSecs < 0 {
		return errors.New("backend.timeout_secs must be >= 0")
	}
	if len(c.Sources) == 0 {
		return errors.New("sources must not be empty")
	}
	if c.Chat.TopK <= 0 {
		return errors.New("chat.top_k must be > 0")
	}
	if err := c.Defaults.Configuration().Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Dir is the per-user directory holding config and logs.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragchat"), nil
}

func defaultUserConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func defaultLogPath() string {
	dir, err := Dir()
	if err != nil {
		return "ragchat.log"
	}
	return filepath.Join(dir, "ragchat.log")
}

func defaultConfig() *AppConfig {
	def := domain.DefaultConfiguration()
	return &AppConfig{
		Backend: BackendConfig{BaseURL: DefaultBaseURL},
		Sources: append([]string(nil), DefaultSources...),
		Defaults: SelectionConfig{
			EmbedModel: string(def.EmbedModel),
			Chunker:    string(def.Chunker),
			Pipeline:   string(def.Pipeline),
		},
		Chat: ChatConfig{TopK: DefaultTopK, MaxQueryChars: DefaultMaxQueryChars},
		Log:  LogConfig{File: defaultLogPath(), Level: "info"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = def.Backend.BaseURL
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = def.Sources
	}
	if cfg.Defaults.EmbedModel == "" {
		cfg.Defaults.EmbedModel = def.Defaults.EmbedModel
	}
	if cfg.Defaults.Chunker == "" {
		cfg.Defaults.Chunker = def.Defaults.Chunker
	}
	if cfg.Defaults.Pipeline == "" {
		cfg.Defaults.Pipeline = def.Defaults.Pipeline
	}
	if cfg.Chat.TopK == 0 {
		cfg.Chat.TopK = DefaultTopK
	}
	if cfg.Chat.MaxQueryChars == 0 {
		cfg.Chat.MaxQueryChars = DefaultMaxQueryChars
	}
	if cfg.Log.File == "" {
		cfg.Log.File = def.Log.File
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
}
