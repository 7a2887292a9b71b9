package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/extract"
	"github.com/fomo-labs/docproof/internal/repository"
	"github.com/fomo-labs/docproof/internal/template"
)

// Orchestrator runs the extraction pipeline: cache, primary engine,
// fallback engine, in that order. Concurrent requests for identical input
// coalesce into a single engine invocation.
type Orchestrator struct {
	primary   extract.Engine
	fallback  extract.Engine
	cache     repository.CacheRepository
	templates *template.Registry

	primaryTimeout time.Duration
	cacheTTL       time.Duration

	log    *slog.Logger
	flight *flightGroup
}

func NewOrchestrator(
	primary, fallback extract.Engine,
	cache repository.CacheRepository,
	templates *template.Registry,
	primaryTimeout, cacheTTL time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if primaryTimeout <= 0 {
		primaryTimeout = 60 * time.Second
	}
	return &Orchestrator{
		primary:        primary,
		fallback:       fallback,
		cache:          cache,
		templates:      templates,
		primaryTimeout: primaryTimeout,
		cacheTTL:       cacheTTL,
		log:            logger,
		flight:         newFlightGroup(),
	}
}

// Extract resolves a request to field values. Cached results are returned
// with their original per-field provenance and a marked envelope; fresh
// results are cached for subsequent identical requests. Only when both
// engines fail to produce a single field does the call error.
func (o *Orchestrator) Extract(ctx context.Context, req extract.Request) (*extract.Result, error) {
	tpl, err := o.templates.Get(req.TemplateID)
	if err != nil {
		return nil, err
	}

	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}

	fp := extract.Fingerprint(req.Images, req.TemplateID)
	log := o.log.With("req_id", rid, "template", req.TemplateID, "fingerprint", fp[:12])

	if req.BypassCache {
		log.Info("pipeline.extract.bypass_cache")
		return o.run(ctx, req, tpl, fp, log, false)
	}
	return o.flight.do(ctx, fp, func(ctx context.Context) (*extract.Result, error) {
		return o.run(ctx, req, tpl, fp, log, true)
	})
}

func (o *Orchestrator) run(ctx context.Context, req extract.Request, tpl *template.Template, fp string, log *slog.Logger, readCache bool) (*extract.Result, error) {
	start := time.Now()

	if readCache {
		if res := o.cachedResult(ctx, fp, constants.EngineGemini, log); res != nil {
			return res, nil
		}
	}

	primaryCtx, cancel := context.WithTimeout(ctx, o.primaryTimeout)
	fields, primaryErr := o.primary.Extract(primaryCtx, req.Images, tpl)
	cancel()
	if primaryErr == nil && len(fields) > 0 {
		o.store(ctx, fp, constants.EngineGemini, fields, log)
		log.Info("pipeline.extract.primary_ok",
			"fields", len(fields), "elapsed_ms", time.Since(start).Milliseconds())
		return &extract.Result{Fields: fields, Engine: constants.EngineGemini}, nil
	}
	log.Warn("pipeline.extract.primary_failed", "error", primaryErr)

	// a prior fallback run for the same input beats re-running OCR
	if readCache {
		if res := o.cachedResult(ctx, fp, constants.EngineTesseract, log); res != nil {
			return res, nil
		}
	}

	merged := o.runFallback(ctx, req.Images, tpl, log)
	if len(merged) == 0 {
		log.Error("pipeline.extract.exhausted", "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAppError("EXTRACTION_EXHAUSTED",
			"no engine produced any field", common.ErrExtractionUnavailable)
	}

	o.store(ctx, fp, constants.EngineTesseract, merged, log)
	log.Info("pipeline.extract.fallback_ok",
		"fields", len(merged), "elapsed_ms", time.Since(start).Milliseconds())
	return &extract.Result{Fields: merged, Engine: constants.EngineTesseract}, nil
}

// runFallback fans the fallback engine out across images and merges by
// confidence. A strictly higher confidence replaces; on ties the earliest
// image wins, which keeps the merge deterministic regardless of goroutine
// completion order.
func (o *Orchestrator) runFallback(ctx context.Context, images [][]byte, tpl *template.Template, log *slog.Logger) extract.Extraction {
	perImage := make([]extract.Extraction, len(images))
	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		go func(i int, img []byte) {
			defer wg.Done()
			fields, err := o.fallback.Extract(ctx, [][]byte{img}, tpl)
			if err != nil {
				log.Warn("pipeline.fallback.image_failed", "image_index", i, "error", err)
				return
			}
			for id, fr := range fields {
				fr.ImageIndex = i
				fields[id] = fr
			}
			perImage[i] = fields
		}(i, img)
	}
	wg.Wait()

	merged := make(extract.Extraction)
	for i := range perImage {
		for id, fr := range perImage[i] {
			if prev, ok := merged[id]; !ok || fr.Confidence > prev.Confidence {
				merged[id] = fr
			}
		}
	}
	return merged
}

// cachedResult returns a hit or nil. Cache failures degrade to a miss.
func (o *Orchestrator) cachedResult(ctx context.Context, fp string, engine constants.EngineID, log *slog.Logger) *extract.Result {
	res, err := o.cache.Get(ctx, fp, engine)
	if err != nil {
		log.Warn("pipeline.cache.read_failed", "engine", engine, "error", err)
		return nil
	}
	if res == nil {
		return nil
	}
	log.Info("pipeline.cache.hit", "engine", engine, "cached_at", res.CachedAt)
	return res
}

// store writes through on a context detached from the caller: a request
// cancelled after extraction finished should still populate the cache.
func (o *Orchestrator) store(ctx context.Context, fp string, engine constants.EngineID, fields extract.Extraction, log *slog.Logger) {
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.cache.Put(putCtx, fp, engine, fields, o.cacheTTL); err != nil {
		log.Warn("pipeline.cache.write_failed", "engine", engine, "error", err)
	}
}
