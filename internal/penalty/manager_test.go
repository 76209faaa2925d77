// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package penalty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/geo"
	"github.com/netgrid/netgrid/internal/network"
)

// buildHybridGraph reproduces the canonical hybrid lock scenario:
//
//	A at the origin, child of ap-1 together with C at 1000 m.
//	B standalone at 30 m, E standalone at 80 m.
//	D networked elsewhere, out of radius, not reachable from A.
//	V vehicle at 20 m.
func buildHybridGraph(t *testing.T) *network.Graph {
	t.Helper()
	g := network.NewGraph()

	require.NoError(t, g.AddController(&network.Controller{
		ID:       "ap-1",
		Children: []capability.EntityID{"A", "C"},
	}))
	require.NoError(t, g.AddController(&network.Controller{
		ID:       "ap-2",
		Children: []capability.EntityID{"D"},
	}))

	devices := []*network.Device{
		{ID: "A", Class: network.ClassDevice, Position: geo.Point3{}, Controllers: []network.ControllerID{"ap-1"}},
		{ID: "B", Class: network.ClassDevice, Position: geo.Point3{X: 30}},
		{ID: "C", Class: network.ClassDevice, Position: geo.Point3{X: 1000}, Controllers: []network.ControllerID{"ap-1"}},
		{ID: "D", Class: network.ClassDevice, Position: geo.Point3{X: 2000}, Controllers: []network.ControllerID{"ap-2"}},
		{ID: "E", Class: network.ClassDevice, Position: geo.Point3{X: 80}},
		{ID: "V", Class: network.ClassVehicle, Position: geo.Point3{X: 20}},
	}
	for _, d := range devices {
		require.NoError(t, g.AddDevice(d))
	}
	return g
}

func newManager(t *testing.T, g *network.Graph) *Manager {
	t.Helper()
	prop := network.NewPropagator(g, capability.NewStateStore(), nil)
	return NewManager(g, prop, 50, nil)
}

func TestHybridLockScenario(t *testing.T) {
	g := buildHybridGraph(t)
	m := newManager(t, g)

	m.RecordFailure("A", geo.Point3{}, 1000)

	assert.True(t, m.IsLocked("A", 1000, 10), "source locked unconditionally")
	assert.True(t, m.IsLocked("B", 1000, 10), "standalone neighbor at 30 m locked")
	assert.False(t, m.IsLocked("E", 1000, 10), "standalone neighbor at 80 m not locked")
	assert.True(t, m.IsLocked("C", 1000, 10), "networked sibling locked regardless of distance")
	assert.False(t, m.IsLocked("D", 1000, 10), "unrelated networked device stays unlocked")
	assert.True(t, m.IsLocked("V", 1000, 10), "vehicle locked by dedicated pass")
}

func TestLazyExpiration(t *testing.T) {
	g := buildHybridGraph(t)
	m := newManager(t, g)

	m.RecordFailure("A", geo.Point3{}, 1000)
	require.Equal(t, 1000.0, m.Timestamp("A"))

	// Within duration: still locked, timestamp untouched.
	assert.True(t, m.IsLocked("A", 1000+599, 10))
	assert.Equal(t, 1000.0, m.Timestamp("A"))

	// Expired, but not yet read: timestamp still in place.
	assert.Equal(t, 1000.0, m.Timestamp("B"))

	// The expiring read resets the timestamp as a side effect.
	assert.False(t, m.IsLocked("A", 1000+601, 10))
	assert.Equal(t, 0.0, m.Timestamp("A"))

	// B was never read, so it still carries the stale timestamp.
	assert.Equal(t, 1000.0, m.Timestamp("B"))
	assert.False(t, m.IsLocked("B", 1000+601, 10))
	assert.Equal(t, 0.0, m.Timestamp("B"))
}

func TestZeroDurationNeverExpires(t *testing.T) {
	g := buildHybridGraph(t)
	m := newManager(t, g)

	m.RecordFailure("A", geo.Point3{}, 1)
	assert.True(t, m.IsLocked("A", 1e12, 0))
}

func TestSpatialUnavailableDegradesToGraphLock(t *testing.T) {
	g := buildHybridGraph(t)
	m := newManager(t, g)
	g.SetSpatialDown(true)

	m.RecordFailure("A", geo.Point3{}, 1000)

	assert.True(t, m.IsLocked("A", 1000, 10))
	assert.True(t, m.IsLocked("C", 1000, 10), "graph pass unaffected by spatial outage")
	assert.False(t, m.IsLocked("B", 1000, 10), "radius pass skipped")
	assert.False(t, m.IsLocked("V", 1000, 10), "vehicle pass skipped")
}

func TestIsLockedUnknownEntity(t *testing.T) {
	g := buildHybridGraph(t)
	m := newManager(t, g)

	assert.False(t, m.IsLocked("nobody", 100, 10))
}

func TestSnapshotRestore(t *testing.T) {
	g := buildHybridGraph(t)
	m := newManager(t, g)
	m.RecordFailure("A", geo.Point3{}, 1000)

	snap := m.Snapshot()
	restored := newManager(t, g)
	restored.Restore(snap)

	assert.True(t, restored.IsLocked("A", 1000, 10))
	assert.True(t, restored.IsLocked("B", 1000, 10))
	assert.False(t, restored.IsLocked("E", 1000, 10))
}
