package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ownership/internal/daemonctl"
	"ownership/internal/fingerprint"
	"ownership/internal/matching"
	"ownership/internal/recordstore"
)

type statsOutput struct {
	TotalRecords  int                          `json:"totalRecords"`
	PerCategory   map[fingerprint.Category]int `json:"perCategoryCounts"`
	VerdictCounts map[matching.Status]int64    `json:"verdictCounts,omitempty"`
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record counts, plus verdict counters when the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out statsOutput
			err := ctx.withStore(func(store *recordstore.Store) error {
				total, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				perCategory, err := store.CountByCategory(cmd.Context())
				if err != nil {
					return err
				}
				out.TotalRecords = total
				out.PerCategory = perCategory
				return nil
			})
			if err != nil {
				return err
			}
			if client, dialErr := daemonctl.Connect(ctx.socketPath()); dialErr == nil {
				if stats, statsErr := client.Stats(); statsErr == nil {
					out.VerdictCounts = stats.VerdictCounts
				}
				client.Close()
			}

			if jsonOutput {
				return writeJSON(cmd, out)
			}
			rows := [][]string{}
			for _, category := range fingerprint.Categories() {
				rows = append(rows, []string{string(category), strconv.Itoa(out.PerCategory[category])})
			}
			rows = append(rows, []string{"total", strconv.Itoa(out.TotalRecords)})
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Category", "Records"}, rows, []columnAlignment{alignLeft, alignRight}))

			if len(out.VerdictCounts) > 0 {
				statuses := matching.Statuses()
				vrows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					vrows = append(vrows, []string{string(status), strconv.FormatInt(out.VerdictCounts[status], 10)})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Verdict", "Count"}, vrows, []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
