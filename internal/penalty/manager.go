// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

// Package penalty gates re-attempts after a failed breach.
//
// A failure locks the failed entity, everything reachable from it through
// the controller graph regardless of distance, and everything inside the
// configured radius of the failure position. Locks expire lazily: the
// timestamp is only reset when a read finds it stale.
package penalty

import (
	"errors"
	"log/slog"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/geo"
	"github.com/netgrid/netgrid/internal/network"
)

// secondsPerMinute converts the configured duration into engine seconds.
const secondsPerMinute = 60

// Manager owns the per-entity failure timestamps for one session.
type Manager struct {
	dir    network.Directory
	prop   *network.Propagator
	radius float64
	locks  map[capability.EntityID]float64
	log    *slog.Logger
}

// NewManager creates a Manager. The radius bounds the spatial lock pass; a
// nil logger falls back to slog.Default().
func NewManager(dir network.Directory, prop *network.Propagator, radius float64, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		dir:    dir,
		prop:   prop,
		radius: radius,
		locks:  make(map[capability.EntityID]float64),
		log:    log,
	}
}

// RecordFailure locks the failed entity and its graph and spatial
// neighborhood at the given time.
//
// Graph first: every entity reachable from the source is locked with no
// distance limit. Then the spatial pass locks whatever sits inside the
// radius of the failure position, skipping the source by identity; entities
// locked by both passes just get the same timestamp twice. Vehicles are
// excluded from the generic radius query and get a dedicated pass. A
// failing spatial backend degrades to the graph-only lock.
func (m *Manager) RecordFailure(source capability.EntityID, pos geo.Point3, now float64) {
	m.lock(source, now)

	for _, d := range m.prop.ReachableEntities(source, true) {
		m.lock(d.ID, now)
	}

	devices, err := m.dir.DevicesInRadius(pos, m.radius)
	if err != nil {
		if errors.Is(err, network.ErrSpatialUnavailable) {
			m.log.Warn("spatial service unavailable, skipping radius lock pass", "source", string(source))
		} else {
			m.log.Error("radius query failed", "error", err)
		}
	}
	for _, d := range devices {
		if d.ID == source {
			continue
		}
		m.lock(d.ID, now)
	}

	vehicles, err := m.dir.VehiclesInRadius(pos, m.radius)
	if err != nil {
		m.log.Warn("vehicle radius query failed", "error", err)
	}
	for _, d := range vehicles {
		if d.ID == source {
			continue
		}
		m.lock(d.ID, now)
	}
}

// IsLocked reports whether the entity is still penalty-locked.
//
// The check is lazy: reading an expired timestamp resets it to zero as a
// side effect, and there is no background expiration. A zero duration means
// locks never expire.
func (m *Manager) IsLocked(entity capability.EntityID, now, durationMinutes float64) bool {
	ts := m.locks[entity]
	if ts <= 0 {
		return false
	}
	if durationMinutes == 0 {
		return true
	}
	if now-ts > durationMinutes*secondsPerMinute {
		m.locks[entity] = 0
		return false
	}
	return true
}

// Timestamp returns the raw stored failure timestamp, zero if unlocked.
func (m *Manager) Timestamp(entity capability.EntityID) float64 {
	return m.locks[entity]
}

func (m *Manager) lock(entity capability.EntityID, now float64) {
	if now > m.locks[entity] {
		m.locks[entity] = now
	}
}

// Snapshot returns a copy of all non-zero locks for persistence.
func (m *Manager) Snapshot() map[capability.EntityID]float64 {
	out := make(map[capability.EntityID]float64, len(m.locks))
	for entity, ts := range m.locks {
		if ts > 0 {
			out[entity] = ts
		}
	}
	return out
}

// Restore replaces the lock table with a previously snapshotted state.
func (m *Manager) Restore(locks map[capability.EntityID]float64) {
	m.locks = make(map[capability.EntityID]float64, len(locks))
	for entity, ts := range locks {
		m.locks[entity] = ts
	}
}
