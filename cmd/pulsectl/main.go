// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Command pulsectl inspects and seeds the prompt and agent stores directly,
// using the same configuration as the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulse-training/pulse-gw/pkg/bootstrap"
	"github.com/pulse-training/pulse-gw/pkg/core/config"
	"github.com/pulse-training/pulse-gw/pkg/observability/logging"
)

var (
	// Version is set via ldflags during build
	Version = "dev"
)

type app struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "pulsectl",
		Short:        "Administer the PULSE prompt and agent stores",
		Version:      Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "Path to configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		a.promptsCmd(),
		a.agentsCmd(),
		a.seedCmd(),
		a.tokenCmd(),
	)
	return root
}

// loadConfig reads the config file, falling back to defaults plus
// environment when the file does not exist.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) logger(cmd *cobra.Command) *logging.Logger {
	return logging.New(logging.Config{Level: a.logLevel, Format: "text", Output: cmd.ErrOrStderr()})
}

// withStores opens the configured stores for the duration of fn.
func (a *app) withStores(cmd *cobra.Command, fn func(ctx context.Context, s *bootstrap.Stores) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stores, err := bootstrap.OpenStores(ctx, cfg, a.logger(cmd))
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())
	return fn(ctx, stores)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
