package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ragchat/internal/config"
	"ragchat/internal/gateway"
	"ragchat/internal/logging"
	"ragchat/internal/service"
	"ragchat/internal/tui"
)

func loadConfig(path string) *config.AppConfig {
	var cfg *config.AppConfig
	var err error
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("invalid config: %v", err)
	}
	return cfg
}

// buildApp assembles the gateway and view-model.
func buildApp(cfg *config.AppConfig, logger *slog.Logger) (*service.App, error) {
	client, err := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout(),
		Logger:  logger.With("component", "gateway"),
	})
	if err != nil {
		return nil, fmt.Errorf("gateway init failed: %w", err)
	}
	return service.New(client, service.Options{
		Sources:   cfg.Sources,
		TopK:      cfg.Chat.TopK,
		Supersede: cfg.Reindex.Supersede,
		Initial:   cfg.Defaults.Configuration(),
		Logger:    logger,
	})
}

// cliApp is used by the non-interactive commands, which log to stderr.
func cliApp(cfgPath string) (*service.App, *config.AppConfig) {
	cfg := loadConfig(cfgPath)
	logger, err := logging.NewText(os.Stderr, cfg.Log.Level)
	if err != nil {
		fatalf("logger init failed: %v", err)
	}
	app, err := buildApp(cfg, logger)
	if err != nil {
		fatalf("%v", err)
	}
	return app, cfg
}

func runTUI(cfgPath string) error {
	cfg := loadConfig(cfgPath)

	// The TUI owns the terminal, so logs go to a file.
	logger, closer, err := logging.NewFile(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		fatalf("logger init failed: %v", err)
	}
	defer closer.Close()

	app, err := buildApp(cfg, logger)
	if err != nil {
		fatalf("%v", err)
	}
	defer app.Close()

	logger.Info("session started", "backend", cfg.Backend.BaseURL, "selection", app.Selection().String())
	m := tui.New(app, tui.Options{MaxQueryChars: cfg.Chat.MaxQueryChars})
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	logger.Info("session ended")
	return err
}
