// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/netgrid/netgrid/internal/config"
	"github.com/netgrid/netgrid/internal/logging"
	"github.com/netgrid/netgrid/internal/observability"
	"github.com/netgrid/netgrid/internal/scenario"
	"github.com/netgrid/netgrid/internal/session"
	"github.com/netgrid/netgrid/internal/store"
	"github.com/netgrid/netgrid/internal/xdg"
)

// replayConfig holds configuration for the replay command.
type replayConfig struct {
	scenarioPath string
	save         bool
}

// NewReplayCmd creates the replay subcommand.
func NewReplayCmd() *cobra.Command {
	rcfg := &replayConfig{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a scenario file through a fresh session",
		Long: `Replay drives the events of a scenario file through a session in
order and prints the outcome of each step. With --save the resulting
session state is persisted to the store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReplay(cmd, rcfg)
		},
	}

	cmd.Flags().StringVar(&rcfg.scenarioPath, "scenario", "", "scenario YAML file (required)")
	cmd.Flags().BoolVar(&rcfg.save, "save", false, "persist session state after the run")
	addEngineFlags(cmd)
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

// addEngineFlags registers the engine option flags. The names match the
// config file keys so flag values override file values.
func addEngineFlags(cmd *cobra.Command) {
	defaults := config.Default()
	cmd.Flags().Float64("unlock_duration_hours", defaults.UnlockDurationHours, "grant lifetime in hours (0 = no expiry)")
	cmd.Flags().Float64("influence_radius_meters", defaults.InfluenceRadiusMeters, "breach influence radius in meters")
	cmd.Flags().Float64("penalty_duration_minutes", defaults.PenaltyDurationMinutes, "penalty lock lifetime in minutes (0 = no expiry)")
	cmd.Flags().Bool("require_all_categories", defaults.RequireAllCategories, "require every supported category for device access")
	cmd.Flags().Int("max_breach_records", defaults.MaxBreachRecords, "breach index capacity")
	cmd.Flags().Int("prune_count", defaults.PruneCount, "records evicted on index overflow")
	cmd.Flags().String("log_format", defaults.LogFormat, "log format (json or text)")
	cmd.Flags().String("metrics_addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("store_path", defaults.StorePath, "session database path (empty = XDG default when saving)")
}

func runReplay(cmd *cobra.Command, rcfg *replayConfig) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	logging.SetDefault("netgrid", version, cfg.LogFormat)

	sc, err := scenario.Load(rcfg.scenarioPath)
	if err != nil {
		return err
	}
	graph, err := sc.BuildGraph()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []session.Option{session.WithLogger(slog.Default())}

	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool { return true })
		if _, err := obsServer.Start(); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
				slog.Warn("error stopping observability server", "error", stopErr)
			}
		}()
		opts = append(opts, session.WithMetrics(obsServer.Metrics()))
	}

	var db *store.Store
	if rcfg.save || cfg.StorePath != "" {
		path := cfg.StorePath
		if path == "" {
			if err := xdg.EnsureDir(xdg.DataDir()); err != nil {
				return oops.Code("STORE_DIR_FAILED").Wrap(err)
			}
			path = xdg.DefaultStorePath()
		}
		db, err = store.Open(ctx, path, slog.Default())
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Warn("error closing store", "error", closeErr)
			}
		}()
		opts = append(opts, session.WithStore(db))
	}

	sess := session.New(cfg, graph, opts...)
	slog.Info("replaying scenario",
		"scenario", sc.Name,
		"devices", len(sc.Devices),
		"events", len(sc.Events),
	)

	results, err := scenario.Run(sess, sc)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tKIND\tENTITY\tOUTCOME")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Step, r.Kind, r.Entity, r.Outcome)
	}
	if err := w.Flush(); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}

	if rcfg.save {
		if err := sess.Save(ctx); err != nil {
			return err
		}
		cmd.Println("Session state saved")
	}
	return nil
}
