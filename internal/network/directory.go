// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package network

import (
	"errors"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/geo"
)

// ErrSpatialUnavailable is returned by Directory implementations when the
// spatial query backend cannot be reached. Callers degrade to treating
// everything as out of range rather than failing the whole operation.
var ErrSpatialUnavailable = errors.New("spatial query service unavailable")

// Directory is the host-provided view of the entity graph. The engine only
// reads through it; all lookups are synchronous and assumed fast.
//
// Radius queries exclude vehicles, which the host indexes separately;
// VehiclesInRadius is the dedicated variant for them.
type Directory interface {
	// Device looks up an entity by ID.
	Device(id capability.EntityID) (*Device, bool)

	// ControllersOf returns every controller the entity reports, in a
	// stable order. Empty means standalone.
	ControllersOf(id capability.EntityID) []*Controller

	// ChildrenOf returns the entities aggregated by a controller.
	ChildrenOf(id ControllerID) []*Device

	// HubChildren returns the entities a standalone device controls when
	// it acts as its own controller, or nil when it is not a hub.
	HubChildren(id capability.EntityID) []*Device

	// DevicesInRadius returns all non-vehicle entities within radius
	// meters of the point.
	DevicesInRadius(p geo.Point3, radius float64) ([]*Device, error)

	// VehiclesInRadius returns all vehicles within radius meters of the
	// point.
	VehiclesInRadius(p geo.Point3, radius float64) ([]*Device, error)
}
