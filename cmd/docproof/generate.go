package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/extract"
	"github.com/fomo-labs/docproof/internal/proof"
	"github.com/fomo-labs/docproof/internal/repository"
)

func newGenerateCmd() *cobra.Command {
	var templateID, outPath string
	var fieldFlags []string
	var bypassCache, doAnchor bool

	cmd := &cobra.Command{
		Use:   "generate [image...]",
		Short: "Generate a proof-carrying artifact from extracted or given fields",
		Long: `Generate fills the template with field values and issues a proof for the
resulting artifact. Values come from extraction over the given page images,
from --field overrides, or both; overrides win.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.loadTemplates(); err != nil {
					return err
				}
				tpl, err := a.templates.Get(templateID)
				if err != nil {
					return err
				}

				values := map[string]string{}
				if len(args) > 0 {
					if err := a.cfg.Validate(); err != nil {
						return err
					}
					images, err := readImages(args)
					if err != nil {
						return err
					}
					res, err := a.orchestrator().Extract(ctx, extract.NewRequest(images, templateID, bypassCache))
					if err != nil {
						return err
					}
					for id, fr := range res.Fields {
						values[id] = fr.Value
					}
				}
				overrides, err := parseFieldFlags(fieldFlags, tpl.FieldIDs())
				if err != nil {
					return err
				}
				for id, v := range overrides {
					values[id] = v
				}
				if len(values) == 0 {
					return common.NewAppError("NO_FIELDS",
						"no field values: supply page images or --field overrides", common.ErrInvalidInput)
				}

				gen := a.generator()
				rec, artifactBytes, err := a.issuer().Issue(ctx, proof.StampFunc(
					func(_ context.Context, proofID string) ([]byte, error) {
						return gen.Build(tpl, values, proofID)
					}))
				if err != nil {
					return err
				}

				if outPath == "" {
					outPath = fmt.Sprintf("%s-%s.pdf", templateID, rec.ProofID[:8])
				}
				if err := os.WriteFile(outPath, artifactBytes, 0o644); err != nil {
					return common.WrapError(err, "write artifact")
				}

				sub := &repository.Submission{
					TemplateID:   templateID,
					ArtifactPath: outPath,
					Fields:       values,
					ProofID:      rec.ProofID,
				}
				if err := repository.NewSubmissionRepository(a.db).Insert(ctx, sub); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "artifact:     %s\n", outPath)
				fmt.Fprintf(cmd.OutOrStdout(), "proof id:     %s\n", rec.ProofID)
				fmt.Fprintf(cmd.OutOrStdout(), "content hash: %s\n", rec.ContentHash)

				if doAnchor {
					receipt, err := a.anchorClient().Anchor(ctx, rec.ContentHash, rec.ProofID)
					if err != nil {
						return err
					}
					ok, err := a.anchorClient().Confirmed(ctx, receipt.TxRef)
					if err == nil && ok {
						if err := a.ledger().MarkAnchored(ctx, rec.ProofID, receipt.TxRef, receipt.ExplorerLink, time.Now().UTC()); err != nil {
							return err
						}
					}
					fmt.Fprintf(cmd.OutOrStdout(), "anchor tx:    %s\n", receipt.TxRef)
					fmt.Fprintf(cmd.OutOrStdout(), "explorer:     %s\n", receipt.ExplorerLink)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", "", "template id")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "artifact output path")
	cmd.Flags().StringArrayVarP(&fieldFlags, "field", "f", nil, "field override as id=value (repeatable)")
	cmd.Flags().BoolVar(&bypassCache, "bypass-cache", false, "skip the extraction cache")
	cmd.Flags().BoolVar(&doAnchor, "anchor", false, "submit the proof to the anchoring service")
	cobra.CheckErr(cmd.MarkFlagRequired("template"))
	return cmd
}

func parseFieldFlags(flags []string, known []string) (map[string]string, error) {
	knownSet := make(map[string]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}
	out := make(map[string]string, len(flags))
	for _, f := range flags {
		id, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, common.NewAppError("BAD_FIELD",
				fmt.Sprintf("--field %q is not id=value", f), common.ErrInvalidInput)
		}
		if _, exists := knownSet[id]; !exists {
			return nil, common.NewAppError("BAD_FIELD",
				fmt.Sprintf("unknown field %q (known: %s)", id, strings.Join(known, ", ")), common.ErrInvalidInput)
		}
		out[id] = value
	}
	return out, nil
}
