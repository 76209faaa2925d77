// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package network

import (
	"log/slog"

	"github.com/netgrid/netgrid/internal/capability"
)

// Propagator walks the controller graph to spread capability grants from a
// breached entity to everything reachable through its controllers.
type Propagator struct {
	dir  Directory
	caps *capability.StateStore
	log  *slog.Logger
}

// NewPropagator creates a Propagator. A nil logger falls back to
// slog.Default().
func NewPropagator(dir Directory, caps *capability.StateStore, log *slog.Logger) *Propagator {
	if log == nil {
		log = slog.Default()
	}
	return &Propagator{dir: dir, caps: caps, log: log}
}

// ReachableEntities returns every entity reachable from source through the
// controller graph, in deterministic discovery order.
//
// If the source reports one or more controllers, the result is the union of
// the children of every reported controller: a multi-homed entity can be
// reachable through more than one parent, and skipping any controller would
// under-propagate. If the source reports none but acts as a hub, its own
// children are returned instead. The source itself is dropped from the
// result when excludeSource is set.
func (p *Propagator) ReachableEntities(source capability.EntityID, excludeSource bool) []*Device {
	controllers := p.dir.ControllersOf(source)

	var candidates []*Device
	if len(controllers) > 0 {
		for _, ctrl := range controllers {
			candidates = append(candidates, p.dir.ChildrenOf(ctrl.ID)...)
		}
	} else {
		candidates = p.dir.HubChildren(source)
	}

	seen := make(map[capability.EntityID]struct{}, len(candidates))
	out := make([]*Device, 0, len(candidates))
	for _, d := range candidates {
		if excludeSource && d.ID == source {
			continue
		}
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out
}

// PropagateGrant applies a category grant to every entity reachable from
// source whose class matches the granted category. A camera-only grant does
// not unlock basic actions on a non-camera sibling.
func (p *Propagator) PropagateGrant(source capability.EntityID, cat capability.Category, now float64) {
	reachable := p.ReachableEntities(source, false)
	granted := 0
	for _, d := range reachable {
		if d.Class.Category() != cat {
			continue
		}
		p.caps.Grant(d.ID, cat, now)
		granted++
	}
	p.log.Debug("propagated grant",
		"source", string(source),
		"category", cat.String(),
		"reachable", len(reachable),
		"granted", granted,
	)
}
