// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package network

import (
	"github.com/samber/oops"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/geo"
)

// Graph is an in-memory Directory backed by plain maps. It serves scenario
// replay and tests; a live host would implement Directory against its own
// entity services.
//
// A device whose ID matches a registered controller ID is a hub: standalone
// itself, but acting as the controller of its own children.
type Graph struct {
	devices     map[capability.EntityID]*Device
	controllers map[ControllerID]*Controller

	// deviceOrder and controllerOrder preserve registration order so that
	// traversal results are deterministic.
	deviceOrder     []capability.EntityID
	controllerOrder []ControllerID

	spatialDown bool
}

// Compile-time check that Graph implements Directory.
var _ Directory = (*Graph)(nil)

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		devices:     make(map[capability.EntityID]*Device),
		controllers: make(map[ControllerID]*Controller),
	}
}

// AddController registers a controller. Re-registering an ID replaces it.
func (g *Graph) AddController(c *Controller) error {
	if c == nil || c.ID == "" {
		return oops.Code("INVALID_CONTROLLER").Errorf("controller must have an ID")
	}
	if _, exists := g.controllers[c.ID]; !exists {
		g.controllerOrder = append(g.controllerOrder, c.ID)
	}
	g.controllers[c.ID] = c
	return nil
}

// AddDevice registers a device. Re-registering an ID replaces it.
func (g *Graph) AddDevice(d *Device) error {
	if d == nil || d.ID == "" {
		return oops.Code("INVALID_DEVICE").Errorf("device must have an ID")
	}
	if _, exists := g.devices[d.ID]; !exists {
		g.deviceOrder = append(g.deviceOrder, d.ID)
	}
	g.devices[d.ID] = d
	return nil
}

// SetSpatialDown toggles simulated spatial-backend failure. Radius queries
// return ErrSpatialUnavailable while set.
func (g *Graph) SetSpatialDown(down bool) {
	g.spatialDown = down
}

// Device looks up an entity by ID.
func (g *Graph) Device(id capability.EntityID) (*Device, bool) {
	d, ok := g.devices[id]
	return d, ok
}

// ControllersOf returns the controllers the device reports, skipping
// dangling references. An entity claiming zero resolvable controllers is
// simply standalone, not an error.
func (g *Graph) ControllersOf(id capability.EntityID) []*Controller {
	d, ok := g.devices[id]
	if !ok {
		return nil
	}
	out := make([]*Controller, 0, len(d.Controllers))
	for _, cid := range d.Controllers {
		if c, ok := g.controllers[cid]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenOf returns the resolvable children of a controller in declaration
// order.
func (g *Graph) ChildrenOf(id ControllerID) []*Device {
	c, ok := g.controllers[id]
	if !ok {
		return nil
	}
	out := make([]*Device, 0, len(c.Children))
	for _, child := range c.Children {
		if d, ok := g.devices[child]; ok {
			out = append(out, d)
		}
	}
	return out
}

// HubChildren returns the children of a device that doubles as a controller
// under the same identifier.
func (g *Graph) HubChildren(id capability.EntityID) []*Device {
	return g.ChildrenOf(ControllerID(id))
}

// DevicesInRadius scans all registered non-vehicle devices. Linear; the
// scenario graphs this backs are small.
func (g *Graph) DevicesInRadius(p geo.Point3, radius float64) ([]*Device, error) {
	if g.spatialDown {
		return nil, ErrSpatialUnavailable
	}
	var out []*Device
	for _, id := range g.deviceOrder {
		d := g.devices[id]
		if d.Class == ClassVehicle {
			continue
		}
		if geo.Within(d.Position, p, radius) {
			out = append(out, d)
		}
	}
	return out, nil
}

// VehiclesInRadius scans all registered vehicles.
func (g *Graph) VehiclesInRadius(p geo.Point3, radius float64) ([]*Device, error) {
	if g.spatialDown {
		return nil, ErrSpatialUnavailable
	}
	var out []*Device
	for _, id := range g.deviceOrder {
		d := g.devices[id]
		if d.Class != ClassVehicle {
			continue
		}
		if geo.Within(d.Position, p, radius) {
			out = append(out, d)
		}
	}
	return out, nil
}
