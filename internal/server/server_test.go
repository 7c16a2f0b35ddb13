package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/runtime"
	"github.com/mohammad-safakhou/learnpath/internal/service"
	"github.com/mohammad-safakhou/learnpath/internal/store"
)

const knownID = "6f1d2c3b-8a9e-4f70-9b1a-2c3d4e5f6a7b"

type fakeService struct {
	genErr error
	gotIn  core.Input
	status service.Status
}

func (f *fakeService) Generate(_ context.Context, in core.Input) (service.Response, error) {
	f.gotIn = in
	if f.genErr != nil {
		return service.Response{}, f.genErr
	}
	if err := in.Normalize().Validate(); err != nil {
		return service.Response{}, err
	}
	return service.Response{
		RequestID: knownID,
		Results:   service.ToResults(core.EmptyBuckets()),
		Warnings:  []string{"Adaptive Scout: Found 0 leads."},
	}, nil
}

func (f *fakeService) Get(_ context.Context, id string) (service.Status, error) {
	if id != knownID {
		return service.Status{}, store.ErrNotFound
	}
	return f.status, nil
}

func (f *fakeService) Runs(_ context.Context, id string) ([]core.AuditRecord, error) {
	if id != knownID {
		return nil, store.ErrNotFound
	}
	return []core.AuditRecord{{RequestID: id, AgentName: core.StageScout, Warnings: []string{}}}, nil
}

func completedStatus() service.Status {
	res := service.ToResults(core.Buckets{
		ShortTerm: []core.ProgramRecord{{ProgramName: "UX Sprint", TopicsCovered: []string{"research", "prototyping"}, CostText: "$499"}},
	})
	return service.Status{RequestID: knownID, Status: store.StatusCompleted, Results: &res, Warnings: []string{}}
}

func do(t *testing.T, h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestHealth(t *testing.T) {
	e := New(&fakeService{}, Options{Gatherer: prometheus.NewRegistry()})
	if rec := do(t, e, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected /api/health %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, e, http.MethodGet, "/healthz", ""); rec.Body.String() != "ok" {
		t.Fatalf("unexpected /healthz %q", rec.Body.String())
	}
	if rec := do(t, e, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("unexpected /metrics %d", rec.Code)
	}
}

func TestGenerate(t *testing.T) {
	svc := &fakeService{}
	e := New(svc, Options{})

	rec := do(t, e, http.MethodPost, "/api/learning-paths", `{"query":"ux design","prefs":{"format":"online","city":"Berlin"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		RequestID string                       `json:"request_id"`
		Results   map[string][]json.RawMessage `json:"results"`
		Warnings  []string                     `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RequestID != knownID || len(resp.Warnings) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	for _, b := range []string{"short_term", "medium_term", "long_term"} {
		if list, ok := resp.Results[b]; !ok || list == nil {
			t.Fatalf("bucket %s missing or null", b)
		}
	}
	if svc.gotIn.Prefs == nil || svc.gotIn.Prefs.City != "Berlin" {
		t.Fatalf("prefs not forwarded: %+v", svc.gotIn)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		svc  *fakeService
		body string
		code int
	}{
		{"empty query", &fakeService{}, `{"query":"  "}`, http.StatusBadRequest},
		{"bad pref", &fakeService{}, `{"query":"x","prefs":{"goal":"fun"}}`, http.StatusBadRequest},
		{"malformed json", &fakeService{}, `{"query":`, http.StatusBadRequest},
		{"pipeline failure", &fakeService{genErr: errors.New("extract stage: boom")}, `{"query":"x"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, New(tt.svc, Options{}), http.MethodPost, "/api/learning-paths", tt.body)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d %s", tt.code, rec.Code, rec.Body.String())
			}
			if errorBody(t, rec) == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestGetRunsAndExport(t *testing.T) {
	svc := &fakeService{status: completedStatus()}
	e := New(svc, Options{})

	rec := do(t, e, http.MethodGet, "/api/learning-paths/"+knownID, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"completed"`) {
		t.Fatalf("unexpected get %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, e, http.MethodGet, "/api/learning-paths/unknown", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodGet, "/api/learning-paths/"+knownID+"/runs", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"agent_name":"scout"`) {
		t.Fatalf("unexpected runs %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, "/api/learning-paths/"+knownID+"/export.csv", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected export %d %v", rec.Code, rec.Header())
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "short_term,UX Sprint") || !strings.Contains(lines[1], "research; prototyping") {
		t.Fatalf("unexpected csv %q", rec.Body.String())
	}
}

func TestExportRunningConflict(t *testing.T) {
	svc := &fakeService{status: service.Status{RequestID: knownID, Status: store.StatusRunning}}
	rec := do(t, New(svc, Options{}), http.MethodGet, "/api/learning-paths/"+knownID+"/export.csv", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestJWTProtectsLearningPaths(t *testing.T) {
	secret := "s3cret"
	e := New(&fakeService{status: completedStatus()}, Options{JWTSecret: secret})

	if rec := do(t, e, http.MethodGet, "/api/learning-paths/"+knownID, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := do(t, e, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rec.Code)
	}
	tok, err := runtime.SignJWT("tester", []byte(secret), time.Minute)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	rec := do(t, e, http.MethodGet, "/api/learning-paths/"+knownID, "", "Authorization", fmt.Sprintf("Bearer %s", tok))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	e := New(&fakeService{}, Options{CORSOrigins: []string{"http://localhost:5173"}})
	rec := do(t, e, http.MethodOptions, "/api/learning-paths", "",
		"Origin", "http://localhost:5173", "Access-Control-Request-Method", "POST")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestMigrateRequiresDSN(t *testing.T) {
	if err := Migrate("", "", "up", 0); err == nil {
		t.Fatalf("expected error without dsn")
	}
}
