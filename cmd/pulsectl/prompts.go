// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulse-training/pulse-gw/pkg/bootstrap"
	"github.com/pulse-training/pulse-gw/pkg/configstore"
)

func (a *app) promptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect stored prompts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List current prompts, including deleted ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStores(cmd, func(ctx context.Context, s *bootstrap.Stores) error {
				items, err := s.Prompts.ListCurrent(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTYPE\tAGENT\tVERSION\tUPDATED\tDELETED")
				for _, p := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%t\n",
						p.ID, p.Type, dash(p.AgentID), p.Version, p.UpdatedAt.Format(time.RFC3339), p.Deleted)
				}
				return tw.Flush()
			})
		},
	}

	var version int
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a prompt, or one of its versions with --version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStores(cmd, func(ctx context.Context, s *bootstrap.Stores) error {
				if version > 0 {
					snap, err := s.Prompts.GetVersion(ctx, args[0], version)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), snap)
				}
				p, err := s.Prompts.GetCurrent(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}
	show.Flags().IntVar(&version, "version", 0, "Version to print (default: current)")

	history := &cobra.Command{
		Use:   "history <id>",
		Short: "List the stored versions of a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStores(cmd, func(ctx context.Context, s *bootstrap.Stores) error {
				versions, err := s.Prompts.ListVersions(ctx, args[0])
				if err != nil {
					return err
				}
				return printVersions(cmd, versions)
			})
		},
	}

	cmd.AddCommand(list, show, history)
	return cmd
}

func printVersions(cmd *cobra.Command, versions []configstore.VersionInfo) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tUPDATED\tBY")
	for _, v := range versions {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", v.Version, v.UpdatedAt.Format(time.RFC3339), v.UpdatedBy)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
