package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/anchor"
	"github.com/fomo-labs/docproof/internal/artifact"
	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/extract/gemini"
	"github.com/fomo-labs/docproof/internal/extract/tesseract"
	"github.com/fomo-labs/docproof/internal/pipeline"
	"github.com/fomo-labs/docproof/internal/proof"
	"github.com/fomo-labs/docproof/internal/repository"
	"github.com/fomo-labs/docproof/internal/template"
)

// app wires configuration, storage, and the template registry for one
// command invocation.
type app struct {
	cfg       *common.Config
	db        *repository.DB
	templates *template.Registry
	log       *slog.Logger
}

func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log := slog.Default()
	db, err := repository.Open(cmd.Context(), cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(cmd.Context()); err != nil {
		db.Close()
		return nil, err
	}

	return &app{cfg: cfg, db: db, log: log}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("db.close_error", "error", err)
	}
}

// loadTemplates is deferred to the commands that need it; verify and cache
// maintenance work without a templates directory.
func (a *app) loadTemplates() error {
	reg, err := template.LoadDir(a.cfg.Templates.Dir, a.log)
	if err != nil {
		return err
	}
	a.templates = reg
	return nil
}

func (a *app) orchestrator() *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(
		gemini.NewClient(a.cfg.Gemini, a.log),
		tesseract.NewEngine(a.cfg.OCR, a.log),
		repository.NewCacheRepository(a.db),
		a.templates,
		a.cfg.Gemini.Timeout,
		a.cfg.Cache.TTL,
		a.log,
	)
}

func (a *app) ledger() proof.Ledger {
	return repository.NewLedgerRepository(a.db)
}

func (a *app) issuer() *proof.Issuer {
	return proof.NewIssuer(a.ledger(), a.cfg.Anchor.WalletAddress, a.log)
}

func (a *app) verifier() *proof.Verifier {
	return proof.NewVerifier(a.ledger(), artifact.ReadProofID, a.log)
}

func (a *app) generator() *artifact.Generator {
	return artifact.NewGenerator(a.cfg.Templates.FontPath, a.log)
}

func (a *app) anchorClient() *anchor.Client {
	return anchor.NewClient(a.cfg.Anchor, a.log)
}

// readImages loads page image files in argument order. Order matters: the
// cache fingerprint covers it.
func readImages(paths []string) ([][]byte, error) {
	images := make([][]byte, 0, len(paths))
	for _, p := range paths {
		ext := constants.NormalizeExt(filepath.Ext(p))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			return nil, common.NewAppError("BAD_IMAGE",
				fmt.Sprintf("unsupported image extension %q in %s", ext, p), common.ErrInvalidInput)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, common.WrapError(err, "read image")
		}
		images = append(images, b)
	}
	return images, nil
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}
