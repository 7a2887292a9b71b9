package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/extract"
	"github.com/fomo-labs/docproof/internal/template"
)

// fallbackConfidence is reported for any non-empty OCR read. The engine has
// no per-field calibration; a flat score below typical vision-engine
// confidences keeps the merge rule preferring primary results.
const fallbackConfidence = 0.8

// Engine implements extract.Engine over a local Tesseract installation.
// Unlike the primary engine it has no cross-image reasoning: it crops each
// template field's bounding box out of the page image and recognizes the
// crop in isolation. The orchestrator invokes it once per image and merges.
type Engine struct {
	cfg           common.OCRConfig
	log           *slog.Logger
	clientFactory func() *gosseract.Client
}

func NewEngine(cfg common.OCRConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 7
	}
	return &Engine{cfg: cfg, log: logger, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() constants.EngineID { return constants.EngineTesseract }

// Extract runs bbox-crop OCR for every template field over each supplied
// image sequentially (the orchestrator parallelizes across images). Fields
// whose crop yields no text are omitted. A field-level failure is logged
// and skipped; only a total failure surfaces as an error.
func (e *Engine) Extract(ctx context.Context, images [][]byte, tpl *template.Template) (extract.Extraction, error) {
	start := time.Now()
	result := make(extract.Extraction)
	var lastErr error

	for idx, img := range images {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		fields, err := e.extractImage(ctx, img, tpl)
		if err != nil {
			e.log.Warn("tesseract.image_failed", "template", tpl.ID, "image_index", idx, "error", err)
			lastErr = err
			continue
		}
		for id, fr := range fields {
			fr.ImageIndex = idx
			if prev, ok := result[id]; !ok || fr.Confidence > prev.Confidence {
				result[id] = fr
			}
		}
	}

	if len(result) == 0 {
		if lastErr != nil {
			return nil, common.NewAppError("OCR_FAILED", "ocr failed on all images", common.ErrEngineUnavailable)
		}
		return nil, common.NewAppError("OCR_EMPTY", "ocr produced no fields", common.ErrEngineUnavailable)
	}

	e.log.Info("tesseract.extract.ok",
		"template", tpl.ID,
		"images", len(images),
		"fields", len(result),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (e *Engine) extractImage(ctx context.Context, img []byte, tpl *template.Template) (extract.Extraction, error) {
	c := e.clientFactory()
	defer c.Close()

	result := make(extract.Extraction)
	for _, f := range tpl.Fields {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if !f.BBox.Valid() {
			continue
		}

		crop, err := cropField(img, f.BBox, tpl.Size)
		if err != nil {
			e.log.Debug("tesseract.crop_failed", "field", f.ID, "error", err)
			continue
		}

		text, err := e.recognize(c, crop, f)
		if err != nil {
			e.log.Warn("tesseract.recognize_failed", "field", f.ID, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		result[f.ID] = extract.FieldResult{
			Field:      f.ID,
			Value:      text,
			Confidence: fallbackConfidence,
			Engine:     constants.EngineTesseract,
			Notes:      "ocr_fallback",
		}
	}
	return result, nil
}

func (e *Engine) recognize(c *gosseract.Client, crop []byte, f template.Field) (string, error) {
	if err := c.SetImageFromBytes(crop); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(e.languagesFor(f)...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	psm := f.OCR.PSM
	if psm <= 0 {
		psm = e.cfg.PSM
	}
	if err := c.SetVariable(gosseract.SettableVariable("tessedit_pageseg_mode"), strconv.Itoa(psm)); err != nil {
		return "", fmt.Errorf("set psm: %w", err)
	}
	if e.cfg.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(e.cfg.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	return c.Text()
}

// languagesFor honors a field's "nep+eng" style hint, falling back to the
// engine-wide configuration.
func (e *Engine) languagesFor(f template.Field) []string {
	if f.OCR.Lang == "" {
		return e.cfg.Languages
	}
	var langs []string
	for _, part := range strings.Split(f.OCR.Lang, "+") {
		if part = strings.TrimSpace(part); part != "" {
			langs = append(langs, part)
		}
	}
	if len(langs) == 0 {
		return e.cfg.Languages
	}
	return langs
}
