package template

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fomo-labs/docproof/internal/common"
)

// Registry holds every template loaded from a directory, keyed by id
// (the filename without extension). Templates are loaded once at startup
// and never reloaded.
type Registry struct {
	templates map[string]*Template
	ids       []string
}

// LoadDir loads all *.json templates under dir into a Registry.
func LoadDir(dir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}

	r := &Registry{templates: make(map[string]*Template)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		t, err := Load(path)
		if err != nil {
			logger.Warn("template.load_failed", "path", path, "error", err)
			continue
		}
		t.ID = strings.TrimSuffix(e.Name(), ".json")
		// background image paths are relative to the templates dir
		if t.BackgroundImage != "" && !filepath.IsAbs(t.BackgroundImage) {
			t.BackgroundImage = filepath.Join(dir, t.BackgroundImage)
		}
		r.templates[t.ID] = t
		r.ids = append(r.ids, t.ID)
		logger.Debug("template.loaded", "id", t.ID, "fields", len(t.Fields))
	}
	sort.Strings(r.ids)

	if len(r.templates) == 0 {
		return nil, fmt.Errorf("no templates found in %s", dir)
	}
	logger.Info("template.registry_ready", "count", len(r.templates))
	return r, nil
}

// Get returns the template for id.
func (r *Registry) Get(id string) (*Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, common.NewAppError("TEMPLATE_NOT_FOUND",
			fmt.Sprintf("unknown template %q", id), common.ErrNotFound)
	}
	return t, nil
}

// IDs returns the sorted template ids.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}
