package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-editor/internal/config"
	"github.com/insightdelivered/statement-editor/internal/editor"
	"github.com/insightdelivered/statement-editor/internal/extractor"
	"github.com/insightdelivered/statement-editor/internal/llm"
	"github.com/insightdelivered/statement-editor/internal/parser"
	"github.com/insightdelivered/statement-editor/internal/service"
	"github.com/insightdelivered/statement-editor/internal/store"
)

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// newStore opens the configured backend. The returned func releases it.
func newStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.Backend != config.BackendRedis {
		return store.NewMemory(), func() {}, nil
	}
	rs, client, err := store.NewRedis(ctx, store.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis store", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB, "ttl", cfg.Redis.TTL)
	return rs, func() {
		if err := client.Close(); err != nil {
			logger.Warn("closing redis client", "error", err)
		}
	}, nil
}

// buildService wires a Service from cfg over st. The returned func releases
// the fallback client.
func buildService(ctx context.Context, cfg *config.Config, st store.Store, logger *slog.Logger) (*service.Service, func(), error) {
	cleanup := func() {}

	popts := parser.Options{
		StrictBalances: cfg.Parser.StrictBalances,
		Logger:         logger,
	}
	if cfg.Gemini.APIKey != "" {
		g, err := llm.NewGemini(ctx, llm.Options{
			APIKey:   cfg.Gemini.APIKey,
			Model:    cfg.Gemini.Model,
			MaxChars: cfg.Gemini.MaxChars,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating gemini client: %w", err)
		}
		popts.Fallback = g
		cleanup = func() { _ = g.Close() }
	}

	svc := service.New(service.Options{
		Store:     st,
		Extractor: extractor.New(extractor.Options{OCR: cfg.Parser.OCR, Logger: logger}),
		Parser:    parser.New(popts),
		Editor: editor.New(editor.Options{
			ValidateCodes: cfg.Editor.ValidateCodes,
			MaxRangeDays:  cfg.Editor.MaxRangeDays,
			MaxSalary:     decimal.NewFromInt(cfg.Editor.MaxSalary),
		}),
		Logger: logger,
	})
	return svc, cleanup, nil
}
