package extract

import (
	"context"
	"time"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/template"
)

// FieldResult is one extracted value for a template field.
type FieldResult struct {
	Field      string             `json:"field"`
	Value      string             `json:"value"`
	Confidence float32            `json:"confidence"` // 0..1
	ImageIndex int                `json:"image_index"`
	Engine     constants.EngineID `json:"engine"`
	Notes      string             `json:"notes,omitempty"`
}

// Extraction maps template field ids to their extracted values. Keys come
// from the template schema; fields with no value from any source are absent,
// never zero-confidence placeholders.
type Extraction map[string]FieldResult

// Clone returns a shallow copy (FieldResult is a value type).
func (e Extraction) Clone() Extraction {
	out := make(Extraction, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Result is an Extraction plus its provenance envelope. Cached results keep
// each field's original engine; FromCache marks the envelope instead.
type Result struct {
	Fields    Extraction
	Engine    constants.EngineID
	FromCache bool
	CachedAt  time.Time
}

// Request is one orchestration call: an ordered sequence of page images and
// a template id. Construct with NewRequest; not mutated afterwards.
type Request struct {
	Images      [][]byte
	TemplateID  string
	BypassCache bool
}

// NewRequest copies the image buffers so later caller mutation cannot leak
// into an in-flight extraction.
func NewRequest(images [][]byte, templateID string, bypassCache bool) Request {
	copies := make([][]byte, len(images))
	for i, img := range images {
		copies[i] = append([]byte(nil), img...)
	}
	return Request{Images: copies, TemplateID: templateID, BypassCache: bypassCache}
}

// Engine extracts fields for a template from one or more page images.
// The primary implementation receives all images at once (it performs
// cross-image reasoning); the fallback is invoked per image by the
// orchestrator and merged there.
type Engine interface {
	Name() constants.EngineID
	Extract(ctx context.Context, images [][]byte, tpl *template.Template) (Extraction, error)
}
