package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fomo-labs/docproof/internal/anchor"
)

func newAnchorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anchor",
		Short: "Manage proof anchoring",
	}

	confirmCmd := &cobra.Command{
		Use:   "confirm",
		Short: "Submit unanchored proofs and mark confirmed transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				w := anchor.NewWorker(a.ledger(), a.anchorClient(), a.log)
				n, err := w.RunOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "anchored %d proof(s)\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(confirmCmd)
	return cmd
}
