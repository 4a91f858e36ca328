package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ownership/internal/daemonctl"
	"ownership/internal/fingerprint"
	"ownership/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, readiness and corpus status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := daemonctl.BuildSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, snap)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			if snap.Daemon == nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
			} else {
				d := snap.Daemon
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d, up %s)", d.PID, time.Since(d.StartedAt).Round(time.Second)), colorize))
				watch := "disabled"
				kind := statusInfo
				if d.Watching {
					watch, kind = "watching "+d.WatchDir, statusOK
				}
				fmt.Fprintln(out, renderStatusLine("Inbox", kind, watch, colorize))
				if !d.LastReload.IsZero() {
					fmt.Fprintln(out, renderStatusLine("Last reload", statusInfo,
						fmt.Sprintf("%d records, %s", d.LoadedRecords, humanize.Time(d.LastReload)), colorize))
				}
				if d.LastError != "" {
					fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, d.LastError, colorize))
				}
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Readiness", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, check := range snap.Checks {
				fmt.Fprintln(out, renderStatusLine(check.Name, checkKind(check), check.Detail, colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Corpus", colorize) {
				fmt.Fprintln(out, line)
			}
			rows := make([][]string, 0, len(fingerprint.Categories())+1)
			for _, category := range fingerprint.Categories() {
				rows = append(rows, []string{string(category), strconv.Itoa(snap.PerCategory[category])})
			}
			rows = append(rows, []string{"total", strconv.Itoa(snap.StoredRecords)})
			fmt.Fprint(out, renderTable([]string{"Category", "Records"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func checkKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}
