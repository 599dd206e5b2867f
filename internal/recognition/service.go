// Package recognition ties feature extraction, matching and attendance
// notification together for camera frames.
package recognition

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/rollcall/internal/attendance"
	"github.com/hyperjump/rollcall/internal/embedding"
	"github.com/hyperjump/rollcall/internal/match"
	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/internal/resolver"
)

// Service resolves frames and notifies attendance of the students found.
type Service struct {
	extractor   embedding.Extractor
	matcher     *match.Matcher
	resolver    *resolver.Resolver
	notifier    attendance.Notifier
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNotifier sets where attendance events go. The default discards them.
func WithNotifier(n attendance.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithConcurrency bounds parallel feature extraction per frame.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a recognition service. extractor may be nil when callers
// only ever send vectors.
func NewService(extractor embedding.Extractor, m *match.Matcher, r *resolver.Resolver, opts ...Option) *Service {
	s := &Service{
		extractor:   extractor,
		matcher:     m,
		resolver:    r,
		notifier:    attendance.NopNotifier{},
		concurrency: 4,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract runs the extractor on media, wrapping failures as upstream extractor errors.
func (s *Service) Extract(ctx context.Context, media []byte) ([]float32, error) {
	if s.extractor == nil {
		return nil, models.ExtractorError(fmt.Errorf("no feature extractor configured"))
	}
	if len(media) == 0 {
		return nil, models.InvalidInputf("media must not be empty")
	}
	vec, err := s.extractor.Extract(ctx, media)
	if err != nil {
		return nil, models.ExtractorError(err)
	}
	if len(vec) == 0 {
		return nil, models.ExtractorError(fmt.Errorf("extractor returned an empty vector"))
	}
	return vec, nil
}

// ExtractAll extracts every item concurrently, preserving order.
// The first failure cancels the rest.
func (s *Service) ExtractAll(ctx context.Context, media [][]byte) ([][]float32, error) {
	out := make([][]float32, len(media))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range media {
		g.Go(func() error {
			vec, err := s.Extract(gctx, media[i])
			if err != nil {
				return fmt.Errorf("face %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveFrame resolves the faces of one frame and, when req.Notify is set,
// marks each matched student present. Notification failures are logged and
// counted; they do not fail the resolution.
func (s *Service) ResolveFrame(ctx context.Context, req *models.ResolveRequest) (*models.FrameResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	queries := req.Vectors
	if len(req.Media) > 0 {
		var err error
		if queries, err = s.ExtractAll(ctx, req.Media); err != nil {
			return nil, err
		}
	}

	res, err := s.resolver.ResolveStored(ctx, queries, req.SourceType, req.Threshold)
	if err != nil {
		return nil, err
	}
	out := &models.FrameResult{ResolveResult: res}
	if !req.Notify {
		return out, nil
	}

	at := s.now()
	for _, id := range res.MatchedStudentIDs {
		if err := s.notifier.Notify(ctx, attendance.PresentByFace(id, at)); err != nil {
			out.NotifyFailures++
			s.logger.Warn("attendance notification failed",
				zap.String("student_id", id),
				zap.Error(err))
			continue
		}
		out.Notified++
	}
	return out, nil
}

// CompareQuery matches a query against the store, extracting it from media first when given.
func (s *Service) CompareQuery(ctx context.Context, req *models.CompareQueryRequest) (*models.QueryMatchResult, error) {
	if len(req.Vector) > 0 && len(req.Media) > 0 {
		return nil, models.InvalidInputf("vector and media are mutually exclusive")
	}
	if len(req.Media) > 0 {
		vec, err := s.Extract(ctx, req.Media)
		if err != nil {
			return nil, err
		}
		q := *req
		q.Vector, q.Media = vec, nil
		req = &q
	}
	return s.matcher.CompareQuery(ctx, req)
}
