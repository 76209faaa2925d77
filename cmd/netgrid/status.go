// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/store"
	"github.com/netgrid/netgrid/internal/xdg"
)

// statusConfig holds configuration for the status command.
type statusConfig struct {
	storePath string
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	scfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show persisted session state",
		Long:  `Show the capability grants, breach records, and penalty locks in the session database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, scfg)
		},
	}

	cmd.Flags().StringVar(&scfg.storePath, "store_path", "", "session database path (default: XDG data dir)")

	return cmd
}

func runStatus(cmd *cobra.Command, scfg *statusConfig) error {
	path := scfg.storePath
	if path == "" {
		path = xdg.DefaultStorePath()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := store.Open(ctx, path, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()

	state, err := db.Load(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Store: %s\n", path)
	cmd.Printf("Breach records: %d\n", len(state.Breaches))
	cmd.Printf("Penalty locks: %d\n", len(state.Penalties))

	if len(state.Capabilities) == 0 {
		cmd.Println("No capability grants")
		return nil
	}

	entities := make([]capability.EntityID, 0, len(state.Capabilities))
	for entity := range state.Capabilities {
		entities = append(entities, entity)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tCATEGORY\tUNLOCKED_AT")
	for _, entity := range entities {
		for _, cat := range capability.Categories() {
			ts, ok := state.Capabilities[entity][cat]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%g\n", entity, cat.String(), ts)
		}
	}
	if err := w.Flush(); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}
