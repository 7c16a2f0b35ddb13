package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/learnpath/internal/logger"
)

// maxAuditURLs caps selected_urls in the scout audit summary.
const maxAuditURLs = 10

// StageRunner is one pipeline step producing a partial state update.
type StageRunner interface {
	Name() Stage
	Run(ctx context.Context, st State) (Update, error)
}

// Orchestrator runs scout, then extraction and organization when scout
// produced leads, recording one audit record per executed stage.
type Orchestrator struct {
	scout    StageRunner
	extract  StageRunner
	organize StageRunner
	recorder RunRecorder
	logger   logger.Logger
	metrics  *Metrics
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sets the audit sink.
func WithRecorder(r RunRecorder) Option { return func(o *Orchestrator) { o.recorder = r } }

// WithLogger sets the orchestrator logger.
func WithLogger(l logger.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// WithMetrics enables prometheus stage metrics.
func WithMetrics(m *Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

var orchestratorTracer trace.Tracer = otel.Tracer("learnpath/internal/agent/orchestrator")

func NewOrchestrator(scout, extract, organize StageRunner, opts ...Option) (*Orchestrator, error) {
	if scout == nil || extract == nil || organize == nil {
		return nil, fmt.Errorf("orchestrator requires scout, extract and organize stages")
	}
	o := &Orchestrator{
		scout:    scout,
		extract:  extract,
		organize: organize,
		logger:   logger.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.NewNop()
	}
	return o, nil
}

// phase is the orchestrator's position in the pipeline.
type phase int

const (
	phaseScout phase = iota
	phaseExtract
	phaseOrganize
	phaseDone
)

// Run executes the pipeline for one request and returns the final
// snapshot. Stage errors and recorder errors abort the run.
func (o *Orchestrator) Run(ctx context.Context, requestID string, in Input) (State, error) {
	ctx, span := orchestratorTracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("request.id", requestID)))
	defer span.End()

	log := o.logger.With(logger.String("request_id", requestID))
	snapshot := NewState(requestID, in)
	lastStep := o.now()

	for p := phaseScout; p != phaseDone; {
		stage := o.stageFor(p)
		started := lastStep
		update, err := o.runStage(ctx, stage, snapshot)
		ended := o.now()
		lastStep = ended
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.metrics.observeFailure(stage.Name())
			log.Error("stage failed", logger.String("stage", string(stage.Name())), logger.Error(err))
			return snapshot, fmt.Errorf("%s stage: %w", stage.Name(), err)
		}

		snapshot = snapshot.Merge(update)
		rec := AuditRecord{
			RequestID: requestID,
			AgentName: stage.Name(),
			StartedAt: started,
			EndedAt:   ended,
			Summary:   summarize(stage.Name(), snapshot),
			Warnings:  stageWarnings(update),
		}
		o.metrics.observeStage(rec)
		log.Info("stage completed",
			logger.String("stage", string(rec.AgentName)),
			logger.Duration("elapsed", ended.Sub(started)),
			logger.Int("raw_leads", rec.Summary.Counts.RawLeads),
			logger.Int("extracted_programs", rec.Summary.Counts.ExtractedPrograms),
			logger.Int("warnings", len(rec.Warnings)),
		)
		if o.recorder != nil {
			if err := o.recorder.RecordRun(ctx, rec); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return snapshot, fmt.Errorf("record %s run: %w", stage.Name(), err)
			}
		}
		p = next(p, snapshot)
	}

	span.SetAttributes(
		attribute.Int("pipeline.raw_leads", len(snapshot.RawLeads)),
		attribute.Int("pipeline.extracted_programs", len(snapshot.ExtractedPrograms)),
		attribute.Int("pipeline.results", snapshot.Results.Total()),
	)
	return snapshot, nil
}

// next is the transition table; the only branch is after scout.
func next(p phase, st State) phase {
	switch p {
	case phaseScout:
		if len(st.RawLeads) > 0 {
			return phaseExtract
		}
		return phaseDone
	case phaseExtract:
		return phaseOrganize
	default:
		return phaseDone
	}
}

func (o *Orchestrator) stageFor(p phase) StageRunner {
	switch p {
	case phaseExtract:
		return o.extract
	case phaseOrganize:
		return o.organize
	default:
		return o.scout
	}
}

func (o *Orchestrator) runStage(ctx context.Context, stage StageRunner, st State) (Update, error) {
	ctx, span := orchestratorTracer.Start(ctx, "pipeline.stage."+string(stage.Name()))
	defer span.End()
	if err := ctx.Err(); err != nil {
		return Update{}, err
	}
	update, err := stage.Run(ctx, st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Update{}, err
	}
	span.SetAttributes(attribute.Int("stage.warnings", len(update.Warnings)))
	return update, nil
}

func summarize(stage Stage, st State) RunSummary {
	s := RunSummary{Counts: RunCounts{
		RawLeads:          len(st.RawLeads),
		ExtractedPrograms: len(st.ExtractedPrograms),
	}}
	switch stage {
	case StageScout:
		urls := make([]string, 0, maxAuditURLs)
		for _, l := range st.RawLeads {
			if len(urls) == maxAuditURLs {
				break
			}
			urls = append(urls, l.URL)
		}
		s.SelectedURLs = urls
	case StageOrganize:
		s.BucketCounts = st.Results.Counts()
	}
	return s
}

func stageWarnings(u Update) []string {
	if len(u.Warnings) == 0 {
		return []string{}
	}
	return cloneSlice(u.Warnings)
}
