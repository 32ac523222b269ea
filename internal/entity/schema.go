package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RecordJSONSchema returns the JSON-Schema of an ExtractedRecord as a generic map.
// Edited records coming back from users are validated against it before export or storage.
func RecordJSONSchema() map[string]any {
	heir := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"id":           map[string]any{"type": "string"},
			"name":         map[string]any{"type": "string"},
			"relationship": map[string]any{"type": "string"},
			"percentage":   map[string]any{"type": "string", "pattern": `^$|^\d+(\.\d{1,2})?$`},
		},
		"required": []string{"name", "percentage"},
	}
	date := map[string]any{"type": "string", "pattern": `^\d{2}/\d{2}/\d{4}$`}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"gross_amount":  map[string]any{"type": "number", "minimum": 0},
			"heirs":         map[string]any{"type": "array", "items": heir},
			"policy_number": map[string]any{"type": "string", "pattern": `^\d+$`},
			"insured_name":  map[string]any{"type": "string"},
			"fiscal_code":   map[string]any{"type": "string", "pattern": `^[A-Z0-9]{11,16}$`},
			"birth_date":    date,
			"death_date":    date,
		},
		"required": []string{"heirs"},
	}
}

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

func compiledRecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		b, err := json.Marshal(RecordJSONSchema())
		if err != nil {
			recordSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
			recordSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		recordSchema, recordSchemaErr = compiler.Compile("record.json")
		if recordSchemaErr != nil {
			recordSchemaErr = fmt.Errorf("compile schema: %w", recordSchemaErr)
		}
	})
	return recordSchema, recordSchemaErr
}

// ValidateRecordJSON validates raw JSON against the record schema.
func ValidateRecordJSON(data []byte) error {
	schema, err := compiledRecordSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// DecodeRecord validates and decodes an ExtractedRecord.
func DecodeRecord(data []byte) (ExtractedRecord, error) {
	if err := ValidateRecordJSON(data); err != nil {
		return ExtractedRecord{}, err
	}
	var rec ExtractedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ExtractedRecord{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// Validate checks an in-memory record against the schema.
func (r ExtractedRecord) Validate() error {
	if r.Heirs == nil {
		r.Heirs = []HeirShare{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return ValidateRecordJSON(b)
}
