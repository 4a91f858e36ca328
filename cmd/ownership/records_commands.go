package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ownership/internal/fingerprint"
	"ownership/internal/recordstore"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and annotate stored fingerprint records",
	}
	recordsCmd.AddCommand(newRecordsShowCommand(ctx))
	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsVerifyCommand(ctx))
	recordsCmd.AddCommand(newRecordsMintCommand(ctx))
	return recordsCmd
}

func newRecordsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <id|hash-prefix>",
		Short: "Show records by ID or identity hash prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *recordstore.Store) error {
				records, err := lookupRecords(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, records)
				}
				out := cmd.OutOrStdout()
				for _, rec := range records {
					fmt.Fprint(out, renderKeyValues("Record "+rec.ID, recordPairs(rec)))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var category string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter fingerprint.Category
			if strings.TrimSpace(category) != "" {
				parsed, err := fingerprint.ParseCategory(category)
				if err != nil {
					return err
				}
				filter = parsed
			}
			return ctx.withStore(func(store *recordstore.Store) error {
				all, err := store.LoadRecords(cmd.Context())
				if err != nil {
					return err
				}
				records := make([]fingerprint.Record, 0, len(all))
				for _, rec := range all {
					if filter != "" && rec.Category != filter {
						continue
					}
					records = append(records, rec)
					if limit > 0 && len(records) == limit {
						break
					}
				}
				if jsonOutput {
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No records")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						shortID(rec.ID),
						rec.HashPrefix(),
						string(rec.Category),
						rec.Owner.String(),
						rec.SourceName,
						yesNo(rec.Verified),
						rec.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Hash", "Category", "Owner", "Source", "Verified", "Created"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&category, "category", "", "Only list records of this content category")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records to list (0 for all)")
	return cmd
}

func newRecordsVerifyCommand(ctx *commandContext) *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Mark a record's ownership as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *recordstore.Store) error {
				if err := store.SetVerified(cmd.Context(), args[0], !unset); err != nil {
					return err
				}
				state := "verified"
				if unset {
					state = "unverified"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Record %s marked %s\n", args[0], state)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "Clear the verified flag instead")
	return cmd
}

func newRecordsMintCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <id> <ref>",
		Short: "Attach the external token reference a record was minted as (empty ref clears it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *recordstore.Store) error {
				if err := store.SetMintedRef(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				if strings.TrimSpace(args[1]) == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Record %s mint reference cleared\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Record %s minted as %s\n", args[0], strings.TrimSpace(args[1]))
				}
				return nil
			})
		},
	}
}

// lookupRecords resolves an exact record ID first, then an identity hash prefix.
func lookupRecords(ctx context.Context, store *recordstore.Store, key string) ([]fingerprint.Record, error) {
	key = strings.TrimSpace(key)
	rec, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return []fingerprint.Record{*rec}, nil
	}
	if strings.Contains(key, "-") {
		return nil, fingerprint.Wrap(fingerprint.ErrNotFound, "records", "show", fmt.Sprintf("no record with id %s", key), nil)
	}
	records, err := store.FindByPrefix(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fingerprint.Wrap(fingerprint.ErrNotFound, "records", "show", fmt.Sprintf("no record matches %s", key), nil)
	}
	return records, nil
}

func recordPairs(rec fingerprint.Record) [][2]string {
	minted := rec.MintedRef
	if minted == "" {
		minted = "-"
	}
	return [][2]string{
		{"Identity hash", rec.IdentityHash},
		{"SimHash", rec.SimDigest.String()},
		{"Category", string(rec.Category)},
		{"Owner", rec.Owner.String() + " (" + rec.Owner.Kind() + ")"},
		{"Source", rec.SourceName},
		{"Size", sizeLabel(rec.SizeBytes)},
		{"Algorithm", rec.Algorithm},
		{"Verified", yesNo(rec.Verified)},
		{"Minted", minted},
		{"Created", rec.CreatedAt.Local().Format("2006-01-02 15:04:05")},
		{"Updated", rec.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
	}
}
