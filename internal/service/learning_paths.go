package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/logger"
	"github.com/mohammad-safakhou/learnpath/internal/store"
)

// FailureMessage is stored as the result error of a failed generation; the
// underlying cause lives on the request row.
const FailureMessage = "Generation failed. see requests.error for details."

var tracer = otel.Tracer("github.com/mohammad-safakhou/learnpath/internal/service")

// Pipeline runs the recommendation stages for one request.
type Pipeline interface {
	Run(ctx context.Context, requestID string, in core.Input) (core.State, error)
}

// Repository persists requests and their outcomes. *store.Store satisfies it.
type Repository interface {
	CreateRunning(ctx context.Context, requestID string, in core.Input) error
	MarkCompleted(ctx context.Context, requestID string) error
	MarkFailed(ctx context.Context, requestID, errMsg string) error
	UpsertResult(ctx context.Context, requestID string, paths core.Buckets, warnings []string, errText *string) error
	GetRequest(ctx context.Context, requestID string) (store.RequestRecord, error)
	GetResult(ctx context.Context, requestID string) (store.ResultRecord, error)
	ListRuns(ctx context.Context, requestID string) ([]core.AuditRecord, error)
}

var _ Repository = (*store.Store)(nil)

// LearningPaths wraps the pipeline with the request lifecycle. A nil
// Repository runs without persistence and disables the read side.
type LearningPaths struct {
	pipeline Pipeline
	repo     Repository
	logger   logger.Logger
	newID    func() string
}

type Option func(*LearningPaths)

func WithRepository(r Repository) Option { return func(s *LearningPaths) { s.repo = r } }

func WithLogger(l logger.Logger) Option { return func(s *LearningPaths) { s.logger = l } }

// WithIDGenerator replaces the uuid request id source.
func WithIDGenerator(f func() string) Option { return func(s *LearningPaths) { s.newID = f } }

var ErrNoRepository = errors.New("request store not configured")

func NewLearningPaths(p Pipeline, opts ...Option) (*LearningPaths, error) {
	if p == nil {
		return nil, errors.New("pipeline is required")
	}
	s := &LearningPaths{pipeline: p, logger: logger.NewNop(), newID: func() string { return uuid.NewString() }}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	return s, nil
}

// Generate validates the input, runs the pipeline and records the outcome.
// The pipeline error is returned unchanged after the failure is persisted.
func (s *LearningPaths) Generate(ctx context.Context, in core.Input) (Response, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return Response{}, err
	}

	requestID := s.newID()
	ctx, span := tracer.Start(ctx, "learning_paths.generate")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", requestID))
	log := s.logger.With(logger.String("request_id", requestID))

	if s.repo != nil {
		if err := s.repo.CreateRunning(ctx, requestID, in); err != nil {
			span.RecordError(err)
			return Response{}, fmt.Errorf("create request: %w", err)
		}
	}

	t0 := time.Now()
	final, err := s.pipeline.Run(ctx, requestID, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("generation failed", logger.Error(err), logger.Duration("elapsed", time.Since(t0)))
		s.persistFailure(ctx, log, requestID, err)
		return Response{}, err
	}

	warnings := final.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	if s.repo != nil {
		if err := s.repo.UpsertResult(ctx, requestID, final.Results, warnings, nil); err != nil {
			return Response{}, fmt.Errorf("store result: %w", err)
		}
		if err := s.repo.MarkCompleted(ctx, requestID); err != nil {
			return Response{}, fmt.Errorf("mark completed: %w", err)
		}
	}
	log.Info("generation completed",
		logger.Int("results", final.Results.Total()),
		logger.Int("warnings", len(warnings)),
		logger.Duration("elapsed", time.Since(t0)))

	return Response{RequestID: requestID, Results: ToResults(final.Results), Warnings: warnings}, nil
}

// persistFailure records a failed run. Cancellation of ctx must not stop the
// bookkeeping, so it runs detached with its own deadline.
func (s *LearningPaths) persistFailure(ctx context.Context, log logger.Logger, requestID string, cause error) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	msg := FailureMessage
	if err := s.repo.UpsertResult(ctx, requestID, core.EmptyBuckets(), []string{}, &msg); err != nil {
		log.Error("store failed result", logger.Error(err))
	}
	if err := s.repo.MarkFailed(ctx, requestID, cause.Error()); err != nil {
		log.Error("mark request failed", logger.Error(err))
	}
}

// Get returns the stored request with its result, if any.
func (s *LearningPaths) Get(ctx context.Context, requestID string) (Status, error) {
	if s.repo == nil {
		return Status{}, ErrNoRepository
	}
	if _, err := uuid.Parse(requestID); err != nil {
		return Status{}, store.ErrNotFound
	}
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		RequestID: req.RequestID,
		Status:    req.Status,
		Query:     req.Query,
		Prefs:     req.Prefs,
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
		Error:     req.Error,
		Warnings:  []string{},
	}
	res, err := s.repo.GetResult(ctx, requestID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return st, nil
	case err != nil:
		return Status{}, err
	}
	results := ToResults(res.Paths)
	st.Results = &results
	if res.Warnings != nil {
		st.Warnings = res.Warnings
	}
	st.ResultError = res.Error
	return st, nil
}

// Runs returns the audit records of a known request in execution order.
func (s *LearningPaths) Runs(ctx context.Context, requestID string) ([]core.AuditRecord, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	if _, err := uuid.Parse(requestID); err != nil {
		return nil, store.ErrNotFound
	}
	if _, err := s.repo.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	runs, err := s.repo.ListRuns(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []core.AuditRecord{}
	}
	return runs, nil
}
