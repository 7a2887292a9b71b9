package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/proof"
)

func newVerifyCmd() *cobra.Command {
	var hash string

	cmd := &cobra.Command{
		Use:   "verify [artifact.pdf]",
		Short: "Verify an artifact (or a bare content hash) against the proof ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if (len(args) == 0) == (hash == "") {
					return common.NewAppError("BAD_ARGS",
						"supply either an artifact file or --hash", common.ErrInvalidInput)
				}

				var res *proof.VerificationResult
				var err error
				if hash != "" {
					res, err = a.verifier().VerifyHash(ctx, hash)
				} else {
					var artifact []byte
					artifact, err = os.ReadFile(args[0])
					if err != nil {
						return common.WrapError(err, "read artifact")
					}
					res, err = a.verifier().Verify(ctx, artifact)
				}
				if err != nil {
					return err
				}

				printVerification(cmd, res)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&hash, "hash", "", "verify a content hash instead of a file")
	return cmd
}

func printVerification(cmd *cobra.Command, res *proof.VerificationResult) {
	w := cmd.OutOrStdout()
	switch res.Kind {
	case proof.ExactMatch:
		fmt.Fprintln(w, "EXACT MATCH: artifact bytes are exactly as issued")
	case proof.FallbackMatch:
		fmt.Fprintln(w, "FALLBACK MATCH: registered issue, but the bytes were altered after issuance")
	default:
		fmt.Fprintln(w, "NO MATCH: no record of this artifact")
		return
	}

	rec := res.Record
	fmt.Fprintf(w, "  proof id:     %s\n", rec.ProofID)
	fmt.Fprintf(w, "  content hash: %s\n", rec.ContentHash)
	fmt.Fprintf(w, "  issued at:    %s\n", rec.IssuedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  status:       %s\n", rec.Status)
	if rec.TxRef != "" {
		fmt.Fprintf(w, "  anchor tx:    %s\n", rec.TxRef)
		fmt.Fprintf(w, "  explorer:     %s\n", rec.ExplorerLink)
	}
}
