package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const programSchemaName = "program_record"

//go:embed program_record.schema.json
var programSchemaJSON string

var (
	compileOnce   sync.Once
	programSchema *jsonschema.Schema
	compileErr    error
)

// ProgramSchema returns the compiled JSON Schema for program records.
func ProgramSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("program_record.schema.json", strings.NewReader(programSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("program_record.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile program schema: %w", err)
			return
		}
		programSchema = schema
	})
	return programSchema, compileErr
}

// ProgramSchemaJSON is the raw schema document sent to the record parser.
func ProgramSchemaJSON() json.RawMessage {
	return json.RawMessage(programSchemaJSON)
}

// ValidateProgramRecord checks rec against the program schema.
func ValidateProgramRecord(rec ProgramRecord) error {
	schema, err := ProgramSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("record is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
