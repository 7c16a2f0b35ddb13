package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
)

// Publisher appends validated envelopes to Redis streams.
type Publisher struct {
	client   redis.Cmdable
	registry *SchemaRegistry
	now      func() time.Time
}

// PublishOption allows configuring Redis XADD behaviour.
type PublishOption func(*redis.XAddArgs)

// WithMaxLenApprox sets an approximate max length for the stream.
func WithMaxLenApprox(maxLen int64) PublishOption {
	return func(args *redis.XAddArgs) {
		if maxLen > 0 {
			args.MaxLen = maxLen
			args.Approx = true
		}
	}
}

// NewPublisher creates a Publisher. A nil registry skips payload validation.
func NewPublisher(client redis.Cmdable, registry *SchemaRegistry) *Publisher {
	return &Publisher{client: client, registry: registry, now: func() time.Time { return time.Now().UTC() }}
}

// Publish wraps payload in an envelope and XADDs it to stream.
func (p *Publisher) Publish(ctx context.Context, stream, eventType, version string, payload interface{}, opts ...PublishOption) (string, error) {
	if stream == "" {
		return "", fmt.Errorf("stream name is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	env := Envelope{
		EventID:        uuid.NewString(),
		EventType:      eventType,
		OccurredAt:     p.now(),
		PayloadVersion: version,
		Data:           data,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	if err := env.validate(); err != nil {
		return "", err
	}
	if p.registry != nil {
		if err := p.registry.Validate(eventType, version, data); err != nil {
			return "", err
		}
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"envelope": string(raw)},
	}
	for _, opt := range opts {
		opt(args)
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

// RunPublisher streams audit records so other services can follow pipeline
// progress. It satisfies core.RunRecorder.
type RunPublisher struct {
	pub    *Publisher
	stream string
	maxLen int64
}

// NewRunPublisher builds a recorder writing to stream, trimmed to roughly
// maxLen entries. Empty values fall back to the defaults.
func NewRunPublisher(pub *Publisher, stream string, maxLen int64) *RunPublisher {
	if stream == "" {
		stream = DefaultRunStream
	}
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLn
	}
	return &RunPublisher{pub: pub, stream: stream, maxLen: maxLen}
}

func (r *RunPublisher) RecordRun(ctx context.Context, rec core.AuditRecord) error {
	if rec.Warnings == nil {
		rec.Warnings = []string{}
	}
	if _, err := r.pub.Publish(ctx, r.stream, EventAgentRun, AgentRunVersion, rec, WithMaxLenApprox(r.maxLen)); err != nil {
		return fmt.Errorf("publish agent run: %w", err)
	}
	return nil
}

// ReadRuns returns up to count audit records from the stream, oldest first.
func ReadRuns(ctx context.Context, client redis.Cmdable, stream string, count int64) ([]core.AuditRecord, error) {
	msgs, err := client.XRangeN(ctx, stream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrange: %w", err)
	}
	out := make([]core.AuditRecord, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["envelope"].(string)
		if !ok {
			return nil, fmt.Errorf("stream entry %s has no envelope", m.ID)
		}
		env, err := DecodeEnvelope(raw)
		if err != nil {
			return nil, err
		}
		var rec core.AuditRecord
		if err := json.Unmarshal(env.Data, &rec); err != nil {
			return nil, fmt.Errorf("decode agent run: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
