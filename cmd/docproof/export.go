package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/export"
	"github.com/fomo-labs/docproof/internal/repository"
)

func newExportCmd() *cobra.Command {
	var outPath, templateID string

	cmd := &cobra.Command{
		Use:   "export (proofs|submissions)",
		Short: "Export ledger or submission data as an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				svc := export.NewService(a.ledger(), repository.NewSubmissionRepository(a.db), a.log)

				var b []byte
				var err error
				switch args[0] {
				case "proofs":
					b, err = svc.ProofsXLSX(ctx)
				case "submissions":
					b, err = svc.SubmissionsXLSX(ctx, templateID)
				default:
					return common.NewAppError("BAD_ARGS",
						fmt.Sprintf("unknown export %q, want proofs or submissions", args[0]), common.ErrInvalidInput)
				}
				if err != nil {
					return err
				}

				if outPath == "" {
					outPath = args[0] + ".xlsx"
				}
				if err := os.WriteFile(outPath, b, 0o644); err != nil {
					return common.WrapError(err, "write workbook")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path")
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "filter submissions by template")
	return cmd
}
