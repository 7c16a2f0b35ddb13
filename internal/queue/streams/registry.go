package streams

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Event types published by the service.
const (
	EventAgentRun      = "agent_run.completed"
	AgentRunVersion    = "v1"
	DefaultRunStream   = "learnpath:agent_runs"
	defaultStreamMaxLn = 10000
)

var agentRunSchema = []byte(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["request_id", "agent_name", "started_at", "ended_at", "output_summary", "warnings"],
  "properties": {
    "request_id": {"type": "string", "minLength": 1},
    "agent_name": {"enum": ["scout", "extract", "organize"]},
    "started_at": {"type": "string"},
    "ended_at": {"type": "string"},
    "output_summary": {
      "type": "object",
      "required": ["counts"],
      "properties": {
        "counts": {
          "type": "object",
          "required": ["raw_leads", "extracted_programs"],
          "properties": {
            "raw_leads": {"type": "integer", "minimum": 0},
            "extracted_programs": {"type": "integer", "minimum": 0}
          }
        },
        "selected_urls": {"type": "array", "items": {"type": "string"}, "maxItems": 10},
        "bucket_counts": {"type": "object", "additionalProperties": {"type": "integer", "minimum": 0}}
      }
    },
    "warnings": {"type": "array", "items": {"type": "string"}},
    "error": {"type": ["string", "null"]}
  },
  "additionalProperties": false
}`)

// SchemaRegistry stores compiled payload schemas keyed by event type and version.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewSchemaRegistry returns a registry preloaded with the agent run schema.
func NewSchemaRegistry() (*SchemaRegistry, error) {
	r := &SchemaRegistry{schemas: make(map[string]*jsonschema.Schema)}
	if err := r.Register(EventAgentRun, AgentRunVersion, agentRunSchema); err != nil {
		return nil, err
	}
	return r, nil
}

func registryKey(eventType, version string) string { return eventType + "." + version }

// Register compiles and stores a JSON schema for the given event type and version.
func (r *SchemaRegistry) Register(eventType, version string, schemaBytes []byte) error {
	if eventType == "" || version == "" {
		return fmt.Errorf("event type and version must be provided")
	}
	compiler := jsonschema.NewCompiler()
	name := registryKey(eventType, version) + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(schemaBytes)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	r.mu.Lock()
	r.schemas[registryKey(eventType, version)] = compiled
	r.mu.Unlock()
	return nil
}

// Validate checks payload against the schema registered for event type/version.
func (r *SchemaRegistry) Validate(eventType, version string, payload []byte) error {
	r.mu.RLock()
	schema, ok := r.schemas[registryKey(eventType, version)]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no schema registered for event %q version %q", eventType, version)
	}
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("payload validation failed: %w", err)
	}
	return nil
}
