package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/google/uuid"

	"github.com/markis/smooth/internal/args"
	"github.com/markis/smooth/internal/client"
	"github.com/markis/smooth/internal/config"
	"github.com/markis/smooth/internal/pipeline"
	"github.com/markis/smooth/internal/render"
	"github.com/markis/smooth/internal/source"
)

func run(ctx context.Context, argv []string, stdin io.Reader) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := args.ParseArgs(ctx, *cfg, argv, stdin)
	if err != nil {
		return err
	}
	a.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if a.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	text, err := readInput(ctx, cfg, a)
	if err != nil {
		return err
	}

	rewriter, err := client.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rewriter.Close(); err != nil {
			logger.Debug("failed to close provider", "error", err)
		}
	}()

	renderer := render.NewTerminalRenderer(render.Options{
		PlainText: a.UsePlainText || a.Output != "",
		Live:      !a.Quiet && term.IsTerminal(os.Stderr),
		Wrap:      cfg.Render.Wrap,
		Theme:     cfg.Render.Theme,
		Out:       os.Stdout,
		Status:    os.Stderr,
	})

	res, err := pipeline.Rewrite(ctx, text, pipeline.Settings{
		MaxChunkSize: cfg.MaxChunkSize,
		Concurrency:  cfg.Concurrency,
		OnStart: func(total int) {
			logger.Info("rewriting",
				"provider", rewriter.Name,
				"model", rewriter.Model,
				"chunks", total,
				"concurrency", cfg.Concurrency,
			)
			renderer.Start(total)
		},
		OnChunk: renderer.ChunkSettled,
		Logger:  logger,
	}, rewriter, renderer.Progress)
	renderer.Finish()
	if err != nil {
		return err
	}

	if failed := res.Failed(); len(failed) > 0 {
		indices := make([]int, len(failed))
		for i, f := range failed {
			indices[i] = f.Index
		}
		logger.Warn("some chunks failed and are missing from the output",
			"failed", len(failed), "total", len(res.Chunks), "indices", indices)
	}

	if a.Output != "" {
		if err := os.WriteFile(a.Output, []byte(res.Text+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	return renderer.Render(res.Text)
}

// readInput returns the text to rewrite from a chapter URL, a file or stdin.
func readInput(ctx context.Context, cfg *config.Config, a args.Arguments) (string, error) {
	switch {
	case a.URL != "":
		page, err := source.Fetch(ctx, client.HTTPClient(cfg.Timeout), a.URL, cfg.Source.CorsProxy)
		if err != nil {
			return "", err
		}
		text, err := source.Extract(page)
		if err != nil {
			return "", err
		}
		if text == "" {
			return "", fmt.Errorf("could not extract chapter text from %s", a.URL)
		}
		if ch, ok := source.ParseChapterURL(a.URL); ok {
			slog.Info("chapter loaded", "chapter", ch.Number, "prev", ch.Prev, "next", ch.Next)
		}
		return text, nil
	case a.File != "":
		data, err := os.ReadFile(a.File)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(data), nil
	default:
		return a.Text, nil
	}
}
