package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ownership/internal/fingerprint"
	"ownership/internal/ingest"
)

// fileResult is one line of check/register output.
type fileResult struct {
	Path    string          `json:"path"`
	Outcome *ingest.Outcome `json:"outcome,omitempty"`
	Error   string          `json:"error,omitempty"`
	Kind    string          `json:"kind,omitempty"`
}

func processFiles(paths []string, fn func(path string) (ingest.Outcome, error)) ([]fileResult, int) {
	results := make([]fileResult, 0, len(paths))
	failed := 0
	for _, path := range paths {
		out, err := fn(path)
		if err != nil {
			failed++
			results = append(results, fileResult{Path: path, Error: err.Error(), Kind: fingerprint.Kind(err)})
			continue
		}
		results = append(results, fileResult{Path: path, Outcome: &out})
	}
	return results, failed
}

func renderOutcomes(cmd *cobra.Command, results []fileResult, showRecord bool) {
	colorize := shouldColorize(cmd.OutOrStdout())
	headers := []string{"File", "Category", "Verdict", "Matches", "Best Match", "Confidence", "Owner"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft}
	if showRecord {
		headers = append(headers, "Record")
		aligns = append(aligns, alignLeft)
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r.Outcome == nil {
			rows = append(rows, []string{r.Path, "-", "error (" + r.Kind + ")"})
			continue
		}
		v := r.Outcome.Verdict
		row := []string{r.Path, string(r.Outcome.Digest.Category), verdictLabel(v.Status, colorize), strconv.Itoa(v.TotalMatches), "", "", ""}
		if len(v.Matches) > 0 {
			best := v.Matches[0]
			row[4] = shortID(best.RecordID) + " (" + string(best.MatchType) + ")"
			row[5] = fmt.Sprintf("%.1f%%", best.Confidence)
			row[6] = best.Owner.String()
		}
		if showRecord {
			rec := ""
			if r.Outcome.Record != nil {
				rec = shortID(r.Outcome.Record.ID)
				if r.Outcome.Existing {
					rec += " (existing)"
				}
			}
			row = append(row, rec)
		}
		rows = append(rows, row)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable(headers, rows, aligns))

	for _, r := range results {
		if r.Outcome == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.Path, r.Error)
		}
	}
}

func failureSummary(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d file%s failed", failed, total, plural(total))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sizeLabel(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
