package main

import (
	"github.com/spf13/cobra"

	"ownership/internal/ingest"
)

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var owner string
	cmd := &cobra.Command{
		Use:   "register <file>...",
		Short: "Record ownership of files and alert owners of matching content",
		Long: "Register fingerprints each file, stores a record for the owner and indexes it.\n" +
			"Registering identical content again for the same owner returns the existing record.\n" +
			"When --owner is omitted, ownership.default_owner from the config is used.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			results, failed := processFiles(args, func(path string) (ingest.Outcome, error) {
				return session.Access.Register(cmd.Context(), path, owner)
			})
			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				renderOutcomes(cmd, results, true)
			}
			return failureSummary(failed, len(args))
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner wallet address (0x…) or email")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
