package gemini

import (
	"encoding/json"

	"github.com/fomo-labs/docproof/internal/template"
)

type fieldDescriptor struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Label        string `json:"label,omitempty"`
	Meaning      string `json:"meaning,omitempty"`
	Type         string `json:"type,omitempty"`
	LanguageHint string `json:"language_hint,omitempty"`
}

// buildPrompt renders the extraction instructions as a JSON document. The
// model maps source-document content onto target fields by meaning, not by
// label, and reports a confidence per field.
func buildPrompt(tpl *template.Template) string {
	fields := make([]fieldDescriptor, 0, len(tpl.Fields))
	for _, f := range tpl.Fields {
		fields = append(fields, fieldDescriptor{
			ID:           f.ID,
			Name:         f.Name,
			Label:        f.Label,
			Meaning:      f.Desc,
			Type:         f.Type,
			LanguageHint: f.OCR.Lang,
		})
	}

	instructions := map[string]any{
		"task": "You are extracting data from scanned identity and government documents " +
			"to fill a form template. Use SEMANTIC MAPPING: understand the MEANING of " +
			"source fields, not just their labels. The supplied pages may cover different " +
			"fields (e.g. front and back of an identity document); combine them. " +
			"If a target field has no matching source data, use an empty string with " +
			"confidence 0. Preserve non-Latin text exactly as it appears.",
		"output_schema": "{field_id: {value: string, confidence: float (0-1), notes: string}}",
		"target_fields": fields,
	}
	b, _ := json.Marshal(instructions)
	return string(b)
}
