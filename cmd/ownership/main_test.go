package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ownership/internal/daemonctl"
	"ownership/internal/fingerprint"
	"ownership/internal/matching"
)

func TestFingerprintJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	a := env.writeFile(t, "a.txt", "The quick brown fox")
	b := env.writeFile(t, "b.txt", "The quick brown fox.")

	stdout, _, err := env.run(t, "fingerprint", "--json", a, b)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	var results []fingerprintResult
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	if len(results) != 2 || results[0].Digest == nil || results[1].Digest == nil {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[0].Digest.IdentityHash != results[1].Digest.IdentityHash {
		t.Fatal("expected trailing punctuation to normalize away")
	}
	if results[0].Digest.Category != fingerprint.CategoryText {
		t.Fatalf("expected text category, got %s", results[0].Digest.Category)
	}
}

func TestFingerprintReportsUnsupported(t *testing.T) {
	env := setupCLITestEnv(t)
	blob := env.writeFile(t, "blob.xyz", "opaque")

	stdout, stderr, err := env.run(t, "fingerprint", blob)
	if err == nil {
		t.Fatal("expected failure summary error")
	}
	requireContains(t, err.Error(), "1 of 1 file failed")
	requireContains(t, stdout, "unsupported_content")
	requireContains(t, stderr, blob)
}

func TestRegisterThenCheckWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	original := env.writeFile(t, "poem.txt", "Two roads diverged in a yellow wood")

	stdout, _, err := env.run(t, "register", "--owner", "alice@example.com", "--json", original)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	var registered []fileResult
	if err := json.Unmarshal([]byte(stdout), &registered); err != nil {
		t.Fatalf("decode register output: %v", err)
	}
	if len(registered) != 1 || registered[0].Outcome == nil || registered[0].Outcome.Record == nil {
		t.Fatalf("unexpected register output %+v", registered)
	}
	recordID := registered[0].Outcome.Record.ID

	stdout, _, err = env.run(t, "check", "--json", original)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var checked []fileResult
	if err := json.Unmarshal([]byte(stdout), &checked); err != nil {
		t.Fatalf("decode check output: %v", err)
	}
	verdict := checked[0].Outcome.Verdict
	if verdict.Status != matching.StatusDuplicate || verdict.Matches[0].RecordID != recordID {
		t.Fatalf("expected duplicate of %s, got %+v", recordID, verdict)
	}
	if verdict.Matches[0].Owner.Email != "alice@example.com" {
		t.Fatalf("unexpected owner %+v", verdict.Matches[0].Owner)
	}

	stdout, _, err = env.run(t, "check", original)
	if err != nil {
		t.Fatalf("check table: %v", err)
	}
	requireContains(t, stdout, "duplicate")
	requireContains(t, stdout, recordID[:8])
}

func TestRegisterUsesDefaultOwner(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeFile(t, "note.txt", "a note from the default owner")

	stdout, _, err := env.run(t, "register", path)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	requireContains(t, stdout, "unique")

	stdout, _, err = env.run(t, "records", "list", "--json")
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	var records []fingerprint.Record
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Owner.Email != env.cfg.Ownership.DefaultOwner {
		t.Fatalf("expected one record for the default owner, got %+v", records)
	}
}

func TestRecordsCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeFile(t, "main.go", "package main\n\nfunc main() { println(\"hi\") }\n")

	stdout, _, err := env.run(t, "register", "--owner", "0x52908400098527886E0F7030069857D2E4169EE7", "--json", path)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	var registered []fileResult
	if err := json.Unmarshal([]byte(stdout), &registered); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec := registered[0].Outcome.Record
	if rec.Category != fingerprint.CategoryCode {
		t.Fatalf("expected code category, got %s", rec.Category)
	}

	if _, _, err := env.run(t, "records", "verify", rec.ID); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, _, err := env.run(t, "records", "mint", rec.ID, "token-42"); err != nil {
		t.Fatalf("mint: %v", err)
	}

	stdout, _, err = env.run(t, "records", "show", "--json", rec.IdentityHash[:10])
	if err != nil {
		t.Fatalf("show by prefix: %v", err)
	}
	var shown []fingerprint.Record
	if err := json.Unmarshal([]byte(stdout), &shown); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(shown) != 1 || !shown[0].Verified || shown[0].MintedRef != "token-42" {
		t.Fatalf("unexpected record %+v", shown)
	}
	if shown[0].Owner.Wallet != "0x52908400098527886e0f7030069857d2e4169ee7" {
		t.Fatalf("expected lowercased wallet, got %+v", shown[0].Owner)
	}

	stdout, _, err = env.run(t, "records", "show", rec.ID)
	if err != nil {
		t.Fatalf("show by id: %v", err)
	}
	requireContains(t, stdout, "token-42")

	_, _, err = env.run(t, "records", "show", "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, fingerprint.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, _, err = env.run(t, "records", "verify", "missing")
	if !errors.Is(err, fingerprint.ErrNotFound) {
		t.Fatalf("expected not found for verify, got %v", err)
	}
}

func TestStatsCountsStoredRecords(t *testing.T) {
	env := setupCLITestEnv(t)
	for i, content := range []string{"first text body", "second text body here"} {
		path := env.writeFile(t, "f"+string(rune('a'+i))+".txt", content)
		if _, _, err := env.run(t, "register", path); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	stdout, _, err := env.run(t, "stats", "--json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var out statsOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalRecords != 2 || out.PerCategory[fingerprint.CategoryText] != 2 || out.VerdictCounts != nil {
		t.Fatalf("unexpected stats %+v", out)
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, stdout, "not running")
	requireContains(t, stdout, "Data directory")

	stdout, _, err = env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var snap daemonctl.Snapshot
	if err := json.Unmarshal([]byte(stdout), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.DaemonRunning {
		t.Fatal("expected daemon not running")
	}
}

func TestReloadRequiresDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t, "reload")
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, stdout, "not configured")
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "ownership.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite guard, got %v", err)
	}

	env := setupCLITestEnv(t)
	stdout, _, err = env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, env.configPath)
	requireContains(t, stdout, "Configuration valid")
}

func TestInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[matching]\nmax_distance = 99\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"stats"}, "", path); err == nil {
		t.Fatal("expected validation error")
	}
}
