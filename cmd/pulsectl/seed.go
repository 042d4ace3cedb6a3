// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulse-training/pulse-gw/pkg/bootstrap"
	"github.com/pulse-training/pulse-gw/pkg/seed"
)

func (a *app) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load default prompts and agents; existing records are left untouched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}
			return a.withStores(cmd, func(ctx context.Context, s *bootstrap.Stores) error {
				seeder := seed.New(s.Prompts, s.Agents, a.logger(cmd).Component("seed").Logger)
				res, err := seeder.Apply(ctx, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "prompts created: %d\nagents written: %d\nskipped: %d\n",
					res.Prompts, res.Agents, res.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML seed file (default: built-in seed data)")
	return cmd
}
