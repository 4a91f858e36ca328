package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"ownership/internal/matching"
	"ownership/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColorKeepsText(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "running", true)
	if !strings.Contains(got, "[OK] running") {
		t.Fatalf("expected status text in %q", got)
	}
}

func TestVerdictLabelPlain(t *testing.T) {
	for _, status := range matching.Statuses() {
		if got := verdictLabel(status, false); got != string(status) {
			t.Fatalf("verdictLabel(%s) = %q", status, got)
		}
	}
}

func TestCheckKind(t *testing.T) {
	tests := []struct {
		result preflight.Result
		want   statusKind
	}{
		{preflight.Result{Passed: true}, statusOK},
		{preflight.Result{Optional: true}, statusWarn},
		{preflight.Result{}, statusError},
	}
	for _, tc := range tests {
		if got := checkKind(tc.result); got != tc.want {
			t.Fatalf("checkKind(%+v) = %v, want %v", tc.result, got, tc.want)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B", "C"}, [][]string{{"only"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "only") || strings.Count(out, "\n") < 4 {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}
