package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ownership/internal/digest"
	"ownership/internal/fingerprint"
	"ownership/internal/ingest"
)

type fingerprintResult struct {
	Path   string         `json:"path"`
	Digest *digest.Result `json:"digest,omitempty"`
	Error  string         `json:"error,omitempty"`
	Kind   string         `json:"kind,omitempty"`
}

func newFingerprintCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "fingerprint <file>...",
		Short: "Print identity and similarity digests without consulting the corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pipeline := ingest.NewPipeline(ingest.NewEngine(cfg), nil, nil, ctx.logger(), ingest.OptionsFromConfig(cfg))

			results := make([]fingerprintResult, 0, len(args))
			failed := 0
			for _, path := range args {
				res, err := pipeline.Fingerprint(path)
				if err != nil {
					failed++
					results = append(results, fingerprintResult{Path: path, Error: err.Error(), Kind: fingerprint.Kind(err)})
					continue
				}
				results = append(results, fingerprintResult{Path: path, Digest: &res})
			}

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
				return failureSummary(failed, len(args))
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				if r.Digest == nil {
					rows = append(rows, []string{r.Path, "-", "error (" + r.Kind + ")"})
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.Path, r.Error)
					continue
				}
				rows = append(rows, []string{
					r.Path,
					string(r.Digest.Category),
					r.Digest.IdentityHash,
					r.Digest.SimDigest.String(),
					r.Digest.Algorithm,
					sizeLabel(r.Digest.SizeBytes),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"File", "Category", "Identity Hash", "SimHash", "Algorithm", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return failureSummary(failed, len(args))
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
