package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/config"
	"github.com/hyperjump/rollcall/internal/enroll"
	"github.com/hyperjump/rollcall/internal/server"
	"github.com/hyperjump/rollcall/internal/watcher"
	"github.com/hyperjump/rollcall/pkg/utils"
)

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, inbox events, skipped records)")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("storage_backend", cfg.Storage.Backend))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	inbox := newInboxWatcher(cfg, components.Pipeline, logger)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := inbox.Start(watchCtx); err != nil {
		return fmt.Errorf("failed to start inbox watcher: %w", err)
	}
	inbox.SyncExistingFiles()

	deps := server.Deps{
		Store:       components.Storage,
		Pipeline:    components.Pipeline,
		Matcher:     components.Matcher,
		Recognition: components.Recognition,
		Watch:       inbox,
	}
	if components.Catalog != nil {
		deps.Catalog = components.Catalog
	}
	srv := server.NewServer(deps, cfg, resolvedConfigPath, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		return err
	}

	logger.Info("Shutting down...")
	watchCancel()
	inbox.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

// newInboxWatcher feeds enrollment files dropped into the inbox directories
// to the pipeline. Removing a file leaves its enrollment in place.
func newInboxWatcher(cfg *config.Config, pipeline *enroll.Pipeline, logger *zap.Logger) *watcher.Watcher {
	return watcher.New(watcher.Config{
		Directories: cfg.Inbox.Directories,
		Extensions:  cfg.Inbox.Extensions,
		Patterns:    cfg.Inbox.Patterns,
		Recursive:   cfg.Inbox.RecursiveOrDefault(),
		Debounce:    cfg.Inbox.Debounce,
	}, func(ctx context.Context, path string) {
		key, res, err := pipeline.EnrollFile(ctx, path)
		if err != nil {
			logger.Warn("inbox enrollment failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("inbox file enrolled",
			zap.String("path", path),
			zap.String("source_type", key.SourceType),
			zap.String("source_id", key.SourceID),
			zap.String("id", res.ID),
			zap.Int("dims", res.Dims))
	},
		watcher.WithLogger(logger),
		watcher.WithRemoveHandler(func(path string) {
			logger.Debug("inbox file removed; enrollment kept", zap.String("path", path))
		}))
}
