// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the netgrid CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "netgrid",
		Short: "netgrid - breach-driven capability unlock engine",
		Long: `netgrid replays breach scenarios against a device network and tracks
the per-category capability grants, spatial influence, and penalty locks
they produce.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewReplayCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
