package streams

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func auditRecord(stage core.Stage) core.AuditRecord {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return core.AuditRecord{
		RequestID: "req-1",
		AgentName: stage,
		StartedAt: t0,
		EndedAt:   t0.Add(time.Second),
		Summary:   core.RunSummary{Counts: core.RunCounts{RawLeads: 2}, SelectedURLs: []string{"https://a", "https://b"}},
	}
}

func TestRunPublisherRoundTrip(t *testing.T) {
	client := newRedis(t)
	registry, err := NewSchemaRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	rec := NewRunPublisher(NewPublisher(client, registry), "", 0)

	var recorder core.RunRecorder = rec
	for _, stage := range []core.Stage{core.StageScout, core.StageExtract} {
		if err := recorder.RecordRun(context.Background(), auditRecord(stage)); err != nil {
			t.Fatalf("RecordRun(%s): %v", stage, err)
		}
	}

	runs, err := ReadRuns(context.Background(), client, DefaultRunStream, 10)
	if err != nil {
		t.Fatalf("ReadRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].AgentName != core.StageScout || runs[1].AgentName != core.StageExtract {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].Warnings == nil || len(runs[0].Summary.SelectedURLs) != 2 {
		t.Fatalf("record not preserved: %+v", runs[0])
	}
}

func TestPublishEnvelope(t *testing.T) {
	client := newRedis(t)
	pub := NewPublisher(client, nil)
	id, err := pub.Publish(context.Background(), "events", "custom.event", "v1", map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msgs, err := client.XRange(context.Background(), "events", id, id).Result()
	if err != nil || len(msgs) != 1 {
		t.Fatalf("xrange: %v %v", msgs, err)
	}
	env, err := DecodeEnvelope(msgs[0].Values["envelope"].(string))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if env.EventType != "custom.event" || env.PayloadVersion != "v1" || env.EventID == "" || env.OccurredAt.IsZero() {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if string(env.Data) != `{"k":"v"}` {
		t.Fatalf("unexpected data %s", env.Data)
	}
}

func TestPublishRejectsInvalidPayload(t *testing.T) {
	client := newRedis(t)
	registry, err := NewSchemaRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	pub := NewPublisher(client, registry)
	bad := auditRecord(core.Stage("unknown"))
	_, err = pub.Publish(context.Background(), DefaultRunStream, EventAgentRun, AgentRunVersion, bad)
	if err == nil || !strings.Contains(err.Error(), "payload validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := pub.Publish(context.Background(), DefaultRunStream, "unregistered", "v1", bad); err == nil {
		t.Fatalf("expected error for unregistered event type")
	}
	if _, err := pub.Publish(context.Background(), "", EventAgentRun, AgentRunVersion, bad); err == nil {
		t.Fatalf("expected error for empty stream")
	}
}

func TestRunPublisherReportsRedisErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	rec := NewRunPublisher(NewPublisher(client, nil), "runs", 100)
	if err := rec.RecordRun(context.Background(), auditRecord(core.StageScout)); err == nil {
		t.Fatalf("expected publish error when redis is down")
	}
}

func TestDecodeEnvelopeRejectsIncomplete(t *testing.T) {
	if _, err := DecodeEnvelope(`{"event_id":"1","event_type":"x","payload_version":"v1"}`); err == nil {
		t.Fatalf("expected missing data error")
	}
	if _, err := DecodeEnvelope(`not json`); err == nil {
		t.Fatalf("expected decode error")
	}
}
