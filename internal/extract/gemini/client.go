package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/extract"
	"github.com/fomo-labs/docproof/internal/template"
)

// Client implements extract.Engine against the Gemini generateContent REST
// API. It receives all page images in a single call because the model
// performs cross-image semantic reasoning.
type Client struct {
	cfg common.GeminiConfig
	hc  *http.Client
	log *slog.Logger
}

func NewClient(cfg common.GeminiConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	// strip the optional "models/" prefix; the endpoint path supplies it
	cfg.Model = strings.TrimPrefix(cfg.Model, "models/")
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
		log: logger,
	}
}

func (c *Client) Name() constants.EngineID { return constants.EngineGemini }

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type generationConfig struct {
	Temperature      float32 `json:"temperature"`
	ResponseMIMEType string  `json:"response_mime_type,omitempty"`
}

// Extract sends the template field descriptors plus every page image and
// parses the model's per-field JSON answer. Any transport, quota, or
// schema failure is reported as an engine-unavailable condition; the
// orchestrator decides what to do next.
func (c *Client) Extract(ctx context.Context, images [][]byte, tpl *template.Template) (extract.Extraction, error) {
	if c.cfg.APIKey == "" {
		return nil, common.NewAppError("GEMINI_NO_KEY", "api key not configured", common.ErrEngineUnavailable)
	}

	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("gemini.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"template", tpl.ID,
		"images", len(images),
	)

	parts := make([]part, 0, len(images)+1)
	parts = append(parts, part{Text: buildPrompt(tpl)})
	for _, img := range images {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: sniffMIME(img),
			Data:     base64.StdEncoding.EncodeToString(img),
		}})
	}

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			Temperature:      c.cfg.Temperature,
			ResponseMIMEType: "application/json",
		},
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	raw, err := c.post(ctx, rid, endpoint, body)
	if err != nil {
		c.log.Error("gemini.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewAppError("GEMINI_HTTP", err.Error(), common.ErrEngineUnavailable)
	}

	var gr struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &gr); err != nil {
		c.log.Error("gemini.extract.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return nil, common.NewAppError("GEMINI_DECODE", "decode response", common.ErrEngineUnavailable)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		c.log.Error("gemini.extract.no_candidates", "req_id", rid)
		return nil, common.NewAppError("GEMINI_EMPTY", "no candidates in response", common.ErrEngineUnavailable)
	}
	answer := []byte(strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text))

	schema := BuildExtractionSchema(tpl)
	if err := ValidateJSONAgainstSchema(schema, answer); err != nil {
		if !c.cfg.Lenient {
			c.log.Error("gemini.extract.schema_validation_failed", "req_id", rid, "error", err)
			return nil, common.NewAppError("GEMINI_SCHEMA", "schema validation failed", common.ErrEngineUnavailable)
		}
		cleaned, dropped, sErr := sanitizeAnswer(answer, tpl)
		if sErr != nil {
			c.log.Error("gemini.extract.sanitize_failed", "req_id", rid, "error", sErr)
			return nil, common.NewAppError("GEMINI_SCHEMA", "schema validation failed", common.ErrEngineUnavailable)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			c.log.Error("gemini.extract.schema_validation_failed", "req_id", rid, "error", vErr)
			return nil, common.NewAppError("GEMINI_SCHEMA", "schema validation failed", common.ErrEngineUnavailable)
		}
		c.log.Warn("gemini.extract.lenient_sanitize_applied", "req_id", rid, "dropped", dropped)
		answer = cleaned
	}

	result, err := toExtraction(answer)
	if err != nil {
		return nil, common.NewAppError("GEMINI_PARSE", "parse answer", common.ErrEngineUnavailable)
	}

	c.log.Info("gemini.extract.ok",
		"req_id", rid,
		"fields", len(result),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (c *Client) post(ctx context.Context, rid, url string, body any) ([]byte, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	c.log.Debug("gemini.http.request", "req_id", rid, "content_length", len(bs))
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("gemini.http.body_close_error", "req_id", rid, "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	c.log.Debug("gemini.http.response", "req_id", rid, "status", resp.StatusCode, "bytes", len(raw))
	if resp.StatusCode/100 != 2 {
		return raw, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, nil
}

// sanitizeAnswer drops unknown field ids and coerces near-miss entries
// (numeric values, missing/out-of-range confidence) so the document can
// still validate. Template-defined fields are never invented.
func sanitizeAnswer(doc []byte, tpl *template.Template) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	known := make(map[string]struct{}, len(tpl.Fields))
	for _, f := range tpl.Fields {
		known[f.ID] = struct{}{}
	}

	var dropped []string
	out := make(map[string]any, len(m))
	for id, v := range m {
		if _, ok := known[id]; !ok {
			dropped = append(dropped, id)
			continue
		}
		entry, ok := v.(map[string]any)
		if !ok {
			dropped = append(dropped, id)
			continue
		}
		clean := map[string]any{}
		switch val := entry["value"].(type) {
		case string:
			clean["value"] = val
		case float64:
			clean["value"] = fmt.Sprintf("%v", val)
		default:
			clean["value"] = ""
		}
		conf, _ := entry["confidence"].(float64)
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		clean["confidence"] = conf
		if notes, ok := entry["notes"].(string); ok {
			clean["notes"] = notes
		}
		out[id] = clean
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}

// toExtraction converts the validated answer into field results. Empty
// values are omitted entirely rather than kept as zero-confidence
// placeholders. ImageIndex is -1: the engine reasons across all pages at
// once, so a single source image cannot be attributed.
func toExtraction(answer []byte) (extract.Extraction, error) {
	var m map[string]struct {
		Value      string  `json:"value"`
		Confidence float32 `json:"confidence"`
		Notes      string  `json:"notes"`
	}
	if err := json.Unmarshal(answer, &m); err != nil {
		return nil, err
	}
	result := make(extract.Extraction, len(m))
	for id, entry := range m {
		value := strings.TrimSpace(entry.Value)
		if value == "" {
			continue
		}
		result[id] = extract.FieldResult{
			Field:      id,
			Value:      value,
			Confidence: entry.Confidence,
			ImageIndex: -1,
			Engine:     constants.EngineGemini,
			Notes:      entry.Notes,
		}
	}
	return result, nil
}

func sniffMIME(img []byte) string {
	return http.DetectContentType(img)
}
