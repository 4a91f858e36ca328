package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ownership/internal/access"
	"ownership/internal/config"
	"ownership/internal/daemonctl"
	"ownership/internal/ipc"
	"ownership/internal/logging"
	"ownership/internal/recordstore"
)

type commandContext struct {
	socketFlag  *string
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		socketFlag:  socketFlag,
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
		return strings.TrimSpace(*c.socketFlag)
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return ""
	}
	return cfg.SocketPath()
}

// logger is quiet by default; pipeline activity is the daemon's to log.
func (c *commandContext) logger() *slog.Logger {
	level := "warn"
	if c.verboseFlag != nil && *c.verboseFlag {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := daemonctl.Connect(c.socketPath())
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) openStore() (*recordstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return recordstore.Open(cfg)
}

func (c *commandContext) withStore(fn func(*recordstore.Store) error) error {
	store, err := c.openStore()
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) openSession(ctx context.Context) (access.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return access.Session{}, err
	}
	return access.OpenWithFallback(ctx, cfg, c.logger(),
		func() (*ipc.Client, error) { return daemonctl.Connect(c.socketPath()) },
		c.openStore,
	)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
