// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

// Package scenario loads replayable session scripts from YAML: a device
// network plus an ordered list of events to drive through a session.
package scenario

import (
	"bytes"
	"os"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/filter"
	"github.com/netgrid/netgrid/internal/geo"
	"github.com/netgrid/netgrid/internal/network"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Name        string           `yaml:"name"`
	Controllers []ControllerSpec `yaml:"controllers"`
	Devices     []DeviceSpec     `yaml:"devices"`
	Events      []Event          `yaml:"events"`
}

// ControllerSpec declares one controller and its children.
type ControllerSpec struct {
	ID       string     `yaml:"id"`
	Position geo.Point3 `yaml:"position"`
	Children []string   `yaml:"children"`
}

// DeviceSpec declares one device.
type DeviceSpec struct {
	ID          string     `yaml:"id"`
	Class       string     `yaml:"class"`
	Position    geo.Point3 `yaml:"position"`
	Controllers []string   `yaml:"controllers"`
	Backdoor    bool       `yaml:"backdoor"`
}

// Event is a one-of wrapper; exactly one field must be set.
type Event struct {
	Breach       *BreachEvent       `yaml:"breach,omitempty"`
	Scan         *ScanEvent         `yaml:"scan,omitempty"`
	Incapacitate *IncapacitateEvent `yaml:"incapacitate,omitempty"`
	Check        *CheckEvent        `yaml:"check,omitempty"`
}

// BreachEvent resolves a breach attempt against a target.
type BreachEvent struct {
	Target          string     `yaml:"target"`
	Context         string     `yaml:"context"`
	Success         bool       `yaml:"success"`
	At              float64    `yaml:"at"`
	Position        geo.Point3 `yaml:"position"`
	Directives      []string   `yaml:"directives"`
	ActorCategories []string   `yaml:"actor_categories"`
}

// ScanEvent probes the breach index at a position.
type ScanEvent struct {
	Position geo.Point3 `yaml:"position"`
}

// IncapacitateEvent revokes every grant on an entity.
type IncapacitateEvent struct {
	Entity string `yaml:"entity"`
}

// CheckEvent probes device accessibility at a point in time.
type CheckEvent struct {
	Entity string  `yaml:"entity"`
	At     float64 `yaml:"at"`
}

// Load parses and validates the scenario file at path. Unknown YAML keys
// are rejected.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // scenario path is operator input
	if err != nil {
		return nil, oops.Code("SCENARIO_READ_FAILED").With("path", path).Wrap(err)
	}
	return Parse(data)
}

// Parse parses and validates scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, oops.Code("SCENARIO_PARSE_FAILED").Wrap(err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	errb := oops.Code("SCENARIO_INVALID").With("scenario", sc.Name)

	known := make(map[string]bool, len(sc.Devices))
	for i, d := range sc.Devices {
		if d.ID == "" {
			return errb.Errorf("device %d has no id", i)
		}
		if known[d.ID] {
			return errb.Errorf("duplicate device id %q", d.ID)
		}
		known[d.ID] = true
		if _, err := network.ParseClass(d.Class); err != nil {
			return errb.With("device", d.ID).Wrap(err)
		}
	}
	for i, c := range sc.Controllers {
		if c.ID == "" {
			return errb.Errorf("controller %d has no id", i)
		}
	}

	for i, ev := range sc.Events {
		set := 0
		for _, present := range []bool{
			ev.Breach != nil, ev.Scan != nil, ev.Incapacitate != nil, ev.Check != nil,
		} {
			if present {
				set++
			}
		}
		if set != 1 {
			return errb.Errorf("event %d must set exactly one kind, got %d", i, set)
		}
		if b := ev.Breach; b != nil {
			if _, err := filter.ParseBreachContext(b.Context); err != nil {
				return errb.With("event", i).Wrap(err)
			}
			for _, name := range b.ActorCategories {
				if _, err := capability.ParseCategory(name); err != nil {
					return errb.With("event", i).Wrap(err)
				}
			}
		}
	}
	return nil
}

// BuildGraph materializes the declared network into a Graph.
func (sc *Scenario) BuildGraph() (*network.Graph, error) {
	g := network.NewGraph()
	for _, c := range sc.Controllers {
		children := make([]capability.EntityID, len(c.Children))
		for i, id := range c.Children {
			children[i] = capability.EntityID(id)
		}
		if err := g.AddController(&network.Controller{
			ID:       network.ControllerID(c.ID),
			Position: c.Position,
			Children: children,
		}); err != nil {
			return nil, err
		}
	}
	for _, d := range sc.Devices {
		class, err := network.ParseClass(d.Class)
		if err != nil {
			return nil, oops.Code("SCENARIO_INVALID").With("device", d.ID).Wrap(err)
		}
		controllers := make([]network.ControllerID, len(d.Controllers))
		for i, id := range d.Controllers {
			controllers[i] = network.ControllerID(id)
		}
		if err := g.AddDevice(&network.Device{
			ID:          capability.EntityID(d.ID),
			Class:       class,
			Position:    d.Position,
			Controllers: controllers,
			HasBackdoor: d.Backdoor,
		}); err != nil {
			return nil, err
		}
	}
	return g, nil
}
