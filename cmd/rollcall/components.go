package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/attendance"
	"github.com/hyperjump/rollcall/internal/catalog"
	"github.com/hyperjump/rollcall/internal/config"
	"github.com/hyperjump/rollcall/internal/embedding"
	"github.com/hyperjump/rollcall/internal/enroll"
	"github.com/hyperjump/rollcall/internal/match"
	"github.com/hyperjump/rollcall/internal/recognition"
	"github.com/hyperjump/rollcall/internal/resolver"
	"github.com/hyperjump/rollcall/internal/storage"
	"github.com/hyperjump/rollcall/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	Catalog     *catalog.BleveCatalog
	Extractor   embedding.Extractor
	Matcher     *match.Matcher
	Resolver    *resolver.Resolver
	Pipeline    *enroll.Pipeline
	Recognition *recognition.Service
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Extractor != nil {
		_ = c.Extractor.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := storage.New(storage.Options{
		Backend:      cfg.Storage.Backend,
		DatabasePath: cfg.Storage.DatabasePath,
		BadgerPath:   cfg.Storage.BadgerPath,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	if cfg.Storage.CatalogPath != "" {
		cat, err := catalog.Open(cfg.Storage.CatalogPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize catalog: %w", err)
		}
		c.Catalog = cat
	}

	ext, err := embedding.New(cfg.Extractor.Type, embedding.ONNXConfig{
		ModelPath:   cfg.Extractor.ModelPath,
		Dimensions:  cfg.Extractor.Dimensions,
		InputWidth:  cfg.Extractor.InputWidth,
		InputHeight: cfg.Extractor.InputHeight,
		InputName:   cfg.Extractor.InputName,
		OutputName:  cfg.Extractor.OutputName,
	}, cfg.Extractor.CacheSize)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}
	c.Extractor = ext
	logger.Info("extractor initialized",
		zap.String("type", cfg.Extractor.Type),
		zap.Int("dimensions", ext.Dimensions()))

	truncate := cfg.Scoring.TruncateMismatched
	searcher, err := vector.NewSearcher(string(vector.IndexTypeLinear), store,
		vector.WithTruncation(truncate),
		vector.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize searcher: %w", err)
	}

	c.Matcher = match.NewMatcher(store, searcher, match.Config{
		DefaultThreshold:     cfg.Match.DefaultThreshold,
		MaxVerboseCandidates: cfg.Match.MaxVerboseCandidates,
		Truncate:             truncate,
	}, match.WithLogger(logger))
	c.Resolver = resolver.New(store,
		resolver.WithDefaultThreshold(cfg.Resolve.ThresholdOrDefault()),
		resolver.WithTruncation(truncate),
		resolver.WithLogger(logger))

	pipelineOpts := []enroll.Option{
		enroll.WithLogger(logger),
		enroll.WithExtractor(ext),
		enroll.WithDimensions(cfg.Enroll.Dimensions),
	}
	if c.Catalog != nil {
		pipelineOpts = append(pipelineOpts, enroll.WithCatalog(c.Catalog))
	}
	c.Pipeline = enroll.NewPipeline(store, pipelineOpts...)

	notifier, err := buildNotifier(cfg.Attendance, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Recognition = recognition.NewService(ext, c.Matcher, c.Resolver,
		recognition.WithLogger(logger),
		recognition.WithNotifier(notifier),
		recognition.WithConcurrency(cfg.Recognition.ExtractConcurrency))
	return c, nil
}

// buildNotifier returns the attendance sinks the config enables, or a no-op.
func buildNotifier(cfg config.AttendanceConfig, logger *zap.Logger) (attendance.Notifier, error) {
	var sinks attendance.MultiNotifier
	if cfg.LogEvents {
		sinks = append(sinks, attendance.NewLogNotifier(logger))
	}
	if cfg.WebhookURL != "" {
		n, err := attendance.NewHTTPNotifier(attendance.HTTPConfig{
			URL:       cfg.WebhookURL,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
			Headers:   cfg.Headers,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize attendance webhook: %w", err)
		}
		sinks = append(sinks, n)
	}
	switch len(sinks) {
	case 0:
		return attendance.NopNotifier{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}
