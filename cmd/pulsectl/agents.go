// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pulse-training/pulse-gw/pkg/bootstrap"
)

func (a *app) agentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect the agent list",
	}

	var version int
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the agent list, or one of its versions with --version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStores(cmd, func(ctx context.Context, s *bootstrap.Stores) error {
				if version > 0 {
					set, err := s.Agents.GetVersion(ctx, version)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), set)
				}
				set, err := s.Agents.Get(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), set)
			})
		},
	}
	show.Flags().IntVar(&version, "version", 0, "Version to print (default: current)")

	history := &cobra.Command{
		Use:   "history",
		Short: "List the stored versions of the agent list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStores(cmd, func(ctx context.Context, s *bootstrap.Stores) error {
				versions, err := s.Agents.ListVersions(ctx)
				if err != nil {
					return err
				}
				return printVersions(cmd, versions)
			})
		},
	}

	cmd.AddCommand(show, history)
	return cmd
}
