// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/writeup/internal/attachments"
	"github.com/starford/writeup/internal/convert"
	"github.com/starford/writeup/internal/models"
	"github.com/starford/writeup/internal/render"
	"github.com/starford/writeup/internal/storage"
	"github.com/starford/writeup/internal/watch"
)

// Run converts the configured notes once, then keeps converting on change
// when watch mode is on.
//
// Runs are not transactional: when a run fails, files it already wrote stay
// in the target folders. Only one process should write to a target folder.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stderr}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", cfg.Conversion.Mode),
		slog.String("source", cfg.Source.Path),
		slog.String("source_attachments", cfg.Source.Attachments),
		slog.String("target", cfg.Target.Path),
		slog.String("target_attachments", cfg.Target.Attachments),
		slog.String("log_level", cfg.App.LogLevel.String()))

	job, err := newJob(cfg, logger)
	if err != nil {
		return err
	}

	if err := job.run(ctx); err != nil {
		return err
	}

	if !cfg.App.Watch {
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(watchCtx)

	g.Go(func() error {
		return watch.Watch(gCtx, job.watchDirs(), logger, func(ctx context.Context) {
			if err := job.run(ctx); err != nil {
				logger.Error("conversion failed", slog.String("error", err.Error()))
			}
		})
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watcher stopped")
	return nil
}

// job holds everything one conversion run needs. It is built once and
// reused for every watch-triggered run.
type job struct {
	cfg      *Config
	file     string // single note name, or "" for a whole folder
	srcDir   string
	svc      *convert.Service
	dst      *storage.FS
	logger   *slog.Logger
	resolver *attachments.Resolver
}

func newJob(cfg *Config, logger *slog.Logger) (*job, error) {
	mode, err := models.ParseMode(cfg.Conversion.Mode)
	if err != nil {
		return nil, err
	}

	j := &job{cfg: cfg, srcDir: cfg.Source.Dir()}
	if j.srcDir != cfg.Source.Path {
		j.file = filepath.Base(cfg.Source.Path)
	}

	src, err := storage.NewFS(j.srcDir)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	if !cfg.Conversion.NoAttachments {
		j.resolver, err = attachments.NewResolver(cfg.Source.Attachments, cfg.Target.Attachments, attachments.Naming{
			AddPrefix:    cfg.Conversion.AddPrefix,
			RemovePrefix: cfg.Conversion.RemovePrefix,
		})
		if err != nil {
			return nil, err
		}
	}

	if _, statErr := os.Stat(cfg.Target.Path); errors.Is(statErr, os.ErrNotExist) {
		logger.Info("creating target folder", slog.String("path", cfg.Target.Path))
	}
	j.dst, err = storage.EnsureFS(cfg.Target.Path)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	opts := convert.Options{
		Mode:         mode,
		URLPrefix:    cfg.Conversion.URLPrefix,
		AssetPrefix:  cfg.Target.AssetLinkPrefix(),
		CombinedName: cfg.Target.CombinedName,
		Contents:     cfg.Conversion.Contents,
	}
	if cfg.Conversion.HTML {
		opts.Renderer = render.NewHTML()
	}

	j.logger = logger.With(slog.String("invocation_id", uuid.NewString()))
	j.svc = convert.NewService(src, j.resolver, opts, j.logger)
	return j, nil
}

// run discovers, converts and writes. Notes are discovered again on every
// run so notes added while watching are picked up.
func (j *job) run(ctx context.Context) error {
	docs, err := j.svc.Discover(j.file)
	if err != nil {
		return err
	}

	res, err := j.svc.Convert(ctx, docs)
	if err != nil {
		return err
	}

	var attachDst storage.Provider
	if len(res.Attachments) > 0 {
		attachDst, err = storage.EnsureFS(j.cfg.Target.Attachments)
		if err != nil {
			return fmt.Errorf("target attachments: %w", err)
		}
	}

	if err := j.svc.Write(ctx, res, j.dst, attachDst); err != nil {
		return err
	}

	j.logger.Info("conversion complete",
		slog.Int("documents", len(docs)),
		slog.Int("outputs", len(res.Outputs)),
		slog.Int("attachments", len(res.Attachments)))
	return nil
}

// watchDirs returns the folders whose changes trigger a new run.
func (j *job) watchDirs() []string {
	dirs := []string{j.srcDir}
	if j.resolver != nil {
		dirs = append(dirs, j.cfg.Source.Attachments)
	}
	return dirs
}
