package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fomo-labs/docproof/internal/template"
)

// BuildExtractionSchema returns a JSON-Schema (draft 2020-12 subset) for the
// expected model output: one object per template field id, each carrying
// value/confidence/notes. We send it to the model as an output constraint and
// also use it locally to validate.
func BuildExtractionSchema(tpl *template.Template) map[string]any {
	props := make(map[string]any, len(tpl.Fields))
	for _, f := range tpl.Fields {
		props[f.ID] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"value":      map[string]any{"type": "string"},
				"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
				"notes":      map[string]any{"type": "string"},
			},
			"required":             []string{"value", "confidence"},
			"additionalProperties": false,
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
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
