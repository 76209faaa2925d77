// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

// Package session owns the per-session engine state and sequences the
// event handlers over it.
//
// A Session holds one capability store, one breach index, and one penalty
// table, all bound to a device directory. Event ordering is fixed: a
// resolved breach is gated on penalties, filtered, granted and propagated,
// and only then recorded spatially.
package session

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/config"
	"github.com/netgrid/netgrid/internal/filter"
	"github.com/netgrid/netgrid/internal/geo"
	"github.com/netgrid/netgrid/internal/network"
	"github.com/netgrid/netgrid/internal/observability"
	"github.com/netgrid/netgrid/internal/penalty"
	"github.com/netgrid/netgrid/internal/spatial"
	"github.com/netgrid/netgrid/internal/store"
)

// Session is the engine state for one play session.
type Session struct {
	id       string
	cfg      config.Config
	dir      network.Directory
	caps     *capability.StateStore
	breaches *spatial.Index
	prop     *network.Propagator
	penalty  *penalty.Manager
	pipeline *filter.Pipeline
	db       *store.Store
	metrics  *observability.Metrics
	log      *slog.Logger
}

// Option configures optional session collaborators.
type Option func(*options)

type options struct {
	log      *slog.Logger
	db       *store.Store
	metrics  *observability.Metrics
	base     filter.BaseEvaluator
	observer filter.Observer
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithStore enables persistence through the given store.
func WithStore(db *store.Store) Option {
	return func(o *options) { o.db = db }
}

// WithMetrics enables Prometheus event counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithBaseEvaluator sets the host-supplied generic filter stage.
func WithBaseEvaluator(base filter.BaseEvaluator) Option {
	return func(o *options) { o.base = base }
}

// WithObserver sets the filter observability sink.
func WithObserver(obs filter.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// New creates a Session over the given directory. All engine stores are
// created fresh; use Load to rehydrate a persisted session.
func New(cfg config.Config, dir network.Directory, opts ...Option) *Session {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}

	id := ulid.Make().String()
	log := o.log.With("session", id)

	caps := capability.NewStateStore()
	breaches := spatial.NewIndex(cfg.MaxBreachRecords, cfg.PruneCount)
	prop := network.NewPropagator(dir, caps, log)

	pipeOpts := []filter.PipelineOption{filter.WithLogger(log)}
	if o.base != nil {
		pipeOpts = append(pipeOpts, filter.WithBaseEvaluator(o.base))
	}
	if o.observer != nil {
		pipeOpts = append(pipeOpts, filter.WithObserver(o.observer))
	}
	pipeline := filter.NewPipeline(filter.Config{
		UnlockDurationHours:   cfg.UnlockDurationHours,
		InfluenceRadiusMeters: cfg.InfluenceRadiusMeters,
	}, caps, dir, prop, breaches, pipeOpts...)

	return &Session{
		id:       id,
		cfg:      cfg,
		dir:      dir,
		caps:     caps,
		breaches: breaches,
		prop:     prop,
		penalty:  penalty.NewManager(dir, prop, cfg.InfluenceRadiusMeters, log),
		pipeline: pipeline,
		db:       o.db,
		metrics:  o.metrics,
		log:      log,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Capabilities exposes the capability store for read access.
func (s *Session) Capabilities() *capability.StateStore { return s.caps }

// Breaches exposes the spatial breach index for read access.
func (s *Session) Breaches() *spatial.Index { return s.breaches }

// Penalties exposes the penalty manager for read access.
func (s *Session) Penalties() *penalty.Manager { return s.penalty }

// BreachOutcome summarizes one handled breach resolution.
type BreachOutcome struct {
	// Filter is the kept/removed directive partition. Empty on failure.
	Filter filter.Result

	// Granted lists the categories unlocked on the target, in kept order.
	Granted []capability.Category
}

// HandleBreachResolved processes a resolved breach attempt.
//
// A penalty-locked target rejects the attempt outright, success or not. On
// success the directive pool is filtered, each surviving category grant is
// applied to the target and propagated through its network, and finally the
// position is recorded in the breach index. Filtering always completes
// before propagation, and propagation before spatial recording. On failure
// the penalty fan-out locks the target's graph and neighborhood.
func (s *Session) HandleBreachResolved(req filter.Request, success bool) (BreachOutcome, error) {
	if s.penalty.IsLocked(req.Target, req.Now, s.cfg.PenaltyDurationMinutes) {
		return BreachOutcome{}, oops.
			Code("TARGET_PENALTY_LOCKED").
			With("target", string(req.Target)).
			Errorf("breach target is penalty locked")
	}

	if !success {
		s.penalty.RecordFailure(req.Target, req.Position, req.Now)
		s.log.Info("breach failed, penalty recorded", "target", string(req.Target))
		if s.metrics != nil {
			s.metrics.BreachesTotal.WithLabelValues("failure").Inc()
			s.metrics.PenaltiesTotal.Inc()
		}
		return BreachOutcome{}, nil
	}

	result := s.pipeline.Run(req)

	granted := make([]capability.Category, 0, len(result.Kept))
	for _, d := range result.Kept {
		cat, ok := d.UnlockCategory()
		if !ok {
			continue
		}
		s.caps.Grant(req.Target, cat, req.Now)
		s.prop.PropagateGrant(req.Target, cat, req.Now)
		granted = append(granted, cat)
	}

	s.breaches.RecordSuccess(req.Position, uint64(req.Now))

	s.log.Info("breach resolved",
		"target", string(req.Target),
		"kept", len(result.Kept),
		"removed", len(result.Removed),
		"granted", len(granted),
	)
	if s.metrics != nil {
		s.metrics.BreachesTotal.WithLabelValues("success").Inc()
	}
	return BreachOutcome{Filter: result, Granted: granted}, nil
}

// HandleScanFinished maps a finished scan back to the breach record that
// lent it influence, if one is close enough. Read-only.
func (s *Session) HandleScanFinished(pos geo.Point3) (spatial.BreachRecord, bool) {
	rec, ok := s.breaches.FindNearestRecord(pos, spatial.NearestTolerance)
	if ok {
		s.log.Debug("scan matched breach record",
			"x", rec.Position.X, "y", rec.Position.Y, "z", rec.Position.Z)
	}
	return rec, ok
}

// HandleEntityIncapacitated revokes every grant on the entity in place.
func (s *Session) HandleEntityIncapacitated(entity capability.EntityID) {
	s.caps.Reset(entity)
	s.log.Info("entity incapacitated, grants revoked", "entity", string(entity))
}

// DeviceAccessible reports whether the device accepts remote actions now.
//
// Penalty locks veto everything. Otherwise the device is accessible through
// its own grants, checked per category the class supports; with
// RequireAllCategories set every supported category must hold, else any one
// suffices. A standalone device without a backdoor falls back to spatial
// influence from past breaches.
func (s *Session) DeviceAccessible(id capability.EntityID, now float64) bool {
	if s.penalty.IsLocked(id, now, s.cfg.PenaltyDurationMinutes) {
		return false
	}
	device, ok := s.dir.Device(id)
	if !ok {
		return false
	}

	cats := []capability.Category{capability.CategoryBasic}
	if c := device.Class.Category(); c != capability.CategoryBasic {
		cats = append(cats, c)
	}

	unlocked := s.cfg.RequireAllCategories
	for _, cat := range cats {
		check := s.caps.CheckExpiration(id, cat, now, s.cfg.UnlockDurationHours)
		if check.WasExpired {
			s.log.Debug("grant expired", "entity", string(id), "category", cat.String())
		}
		if s.cfg.RequireAllCategories {
			unlocked = unlocked && check.Unlocked
		} else {
			unlocked = unlocked || check.Unlocked
		}
	}
	if unlocked {
		return true
	}

	if device.Standalone() && !device.HasBackdoor {
		return s.breaches.IsWithinInfluence(device.Position, s.cfg.InfluenceRadiusMeters)
	}
	return false
}

// Save persists the session stores. A session without a store is a no-op.
func (s *Session) Save(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Save(ctx, store.SessionState{
		Capabilities: s.caps.Snapshot(),
		Breaches:     s.breaches.Records(),
		Penalties:    s.penalty.Snapshot(),
	})
}

// Load replaces the session stores with the persisted snapshot. A session
// without a store is a no-op.
func (s *Session) Load(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	state, err := s.db.Load(ctx)
	if err != nil {
		return err
	}
	s.caps.Restore(state.Capabilities)
	s.breaches.Restore(state.Breaches)
	s.penalty.Restore(state.Penalties)
	s.log.Info("session state loaded",
		"entities", len(state.Capabilities),
		"breaches", len(state.Breaches),
		"penalties", len(state.Penalties),
	)
	return nil
}
