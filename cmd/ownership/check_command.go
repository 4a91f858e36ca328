package main

import (
	"github.com/spf13/cobra"

	"ownership/internal/ingest"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Check files against the registered corpus without recording them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			results, failed := processFiles(args, func(path string) (ingest.Outcome, error) {
				return session.Access.CheckFile(cmd.Context(), path)
			})
			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				renderOutcomes(cmd, results, false)
			}
			return failureSummary(failed, len(args))
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
