// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

// Package network models the device/controller reachability graph and the
// propagation of capability grants across it.
package network

import (
	"fmt"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/geo"
)

// ControllerID is the stable identifier of a network controller.
type ControllerID string

// Class is the tagged-variant classification of an entity, computed once at
// registration and cached on the Device. Queries branch on this tag instead
// of re-probing the underlying entity kind.
type Class int

// Class constants define the recognized entity kinds.
const (
	ClassDevice      Class = iota // device
	ClassCamera                   // camera
	ClassTurret                   // turret
	ClassVehicle                  // vehicle
	ClassAgent                    // agent
	ClassAccessPoint              // access_point
)

var classStrings = [...]string{
	"device",
	"camera",
	"turret",
	"vehicle",
	"agent",
	"access_point",
}

func (c Class) String() string {
	if c >= 0 && int(c) < len(classStrings) {
		return classStrings[c]
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// ParseClass converts a serialized class name back to its Class.
func ParseClass(s string) (Class, error) {
	for i, name := range classStrings {
		if name == s {
			return Class(i), nil
		}
	}
	return 0, fmt.Errorf("unknown entity class %q", s)
}

// Category returns the capability category that governs remote actions
// against entities of this class. Generic devices, vehicles, and access
// points fall under the basic category.
func (c Class) Category() capability.Category {
	switch c {
	case ClassCamera:
		return capability.CategoryCamera
	case ClassTurret:
		return capability.CategoryTurret
	case ClassAgent:
		return capability.CategoryAgent
	default:
		return capability.CategoryBasic
	}
}

// Device is a controllable entity: an addressable node that can hold
// per-category unlock state.
type Device struct {
	ID       capability.EntityID
	Class    Class
	Position geo.Point3

	// Controllers lists the parents this device reports. Empty means the
	// device is standalone.
	Controllers []ControllerID

	// HasBackdoor marks a standalone device that exposes a physical access
	// point of its own and can therefore be breached directly.
	HasBackdoor bool
}

// Standalone reports whether the device has no network parent.
func (d *Device) Standalone() bool {
	return len(d.Controllers) == 0
}

// Controller aggregates devices into a reachability graph. A device may be
// a child of zero, one, or several controllers.
type Controller struct {
	ID       ControllerID
	Position geo.Point3
	Children []capability.EntityID
}
