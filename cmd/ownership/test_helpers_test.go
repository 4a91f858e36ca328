package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ownership/internal/config"
	"ownership/internal/daemon"
	"ownership/internal/ipc"
	"ownership/internal/logging"
	"ownership/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	socketPath string
	baseDir    string
	daemon     *daemon.Daemon
}

// setupCLITestEnv writes a config file for a fresh temp tree. No daemon runs
// unless startDaemon is called.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("OWNERSHIP_NTFY_TOPIC", "")
	t.Setenv("OWNERSHIP_OWNER", "")

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		socketPath: cfg.SocketPath(),
		baseDir:    base,
	}
}

func (e *cliTestEnv) startDaemon(t *testing.T) {
	t.Helper()
	store := testsupport.MustOpenStore(t, e.cfg)
	logger := logging.NewNop()
	d, err := daemon.New(e.cfg, store, logger, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	srv, err := ipc.NewServer(ctx, e.socketPath, d, logger)
	if err != nil {
		cancel()
		d.Stop()
		t.Skipf("skipping daemon-backed CLI test: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
	})
	e.daemon = d
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, e.socketPath, e.configPath)
}

func (e *cliTestEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "files", name)
	testsupport.WriteText(t, path, content)
	return path
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\nwatch_dir = %q\n\n[ownership]\ndefault_owner = %q\n\n[watch]\nsettle_seconds = 0\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.WatchDir,
		cfg.Ownership.DefaultOwner,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
