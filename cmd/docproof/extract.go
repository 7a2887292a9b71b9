package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/fomo-labs/docproof/internal/extract"
)

func newExtractCmd() *cobra.Command {
	var templateID string
	var bypassCache bool

	cmd := &cobra.Command{
		Use:   "extract <image>...",
		Short: "Extract template fields from document page images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.cfg.Validate(); err != nil {
					return err
				}
				if err := a.loadTemplates(); err != nil {
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

				out := struct {
					Template  string             `json:"template"`
					Engine    string             `json:"engine"`
					FromCache bool               `json:"from_cache"`
					Fields    extract.Extraction `json:"fields"`
				}{templateID, string(res.Engine), res.FromCache, res.Fields}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			})
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", "", "template id")
	cmd.Flags().BoolVar(&bypassCache, "bypass-cache", false, "skip the extraction cache")
	cobra.CheckErr(cmd.MarkFlagRequired("template"))
	return cmd
}
