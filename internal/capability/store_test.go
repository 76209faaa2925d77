// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, cat := range Categories() {
		parsed, err := ParseCategory(cat.String())
		require.NoError(t, err)
		assert.Equal(t, cat, parsed)
	}

	_, err := ParseCategory("router")
	assert.Error(t, err)
}

func TestGrantAndIsUnlocked(t *testing.T) {
	s := NewStateStore()

	assert.False(t, s.IsUnlocked("cam-1", CategoryCamera, 100, 0), "unknown entity is locked")

	s.Grant("cam-1", CategoryCamera, 100)
	assert.True(t, s.IsUnlocked("cam-1", CategoryCamera, 100, 0))
	assert.False(t, s.IsUnlocked("cam-1", CategoryBasic, 100, 0), "categories are orthogonal")
	assert.False(t, s.IsUnlocked("cam-2", CategoryCamera, 100, 0))
}

func TestGrantIsMonotonic(t *testing.T) {
	s := NewStateStore()

	s.Grant("dev", CategoryBasic, 500)
	s.Grant("dev", CategoryBasic, 200)
	assert.Equal(t, 500.0, s.Timestamp("dev", CategoryBasic), "timestamps never decrease")

	s.Grant("dev", CategoryBasic, 700)
	assert.Equal(t, 700.0, s.Timestamp("dev", CategoryBasic))

	s.Grant("dev", CategoryBasic, 0)
	assert.Equal(t, 700.0, s.Timestamp("dev", CategoryBasic), "zero grant time is ignored")
}

func TestIsUnlockedDuration(t *testing.T) {
	tests := []struct {
		name          string
		grantedAt     float64
		now           float64
		durationHours float64
		want          bool
	}{
		{"zero duration never expires", 10, 1e9, 0, true},
		{"within duration", 1000, 1000 + 3599, 1, true},
		{"exactly at duration boundary", 1000, 1000 + 3600, 1, true},
		{"past duration", 1000, 1000 + 3601, 1, false},
		{"fractional hours", 1000, 1000 + 1800, 0.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStateStore()
			s.Grant("dev", CategoryTurret, tt.grantedAt)
			assert.Equal(t, tt.want, s.IsUnlocked("dev", CategoryTurret, tt.now, tt.durationHours))
		})
	}
}

func TestCheckExpirationLazyReset(t *testing.T) {
	s := NewStateStore()
	s.Grant("dev", CategoryCamera, 1000)

	// Still valid: no reset, no transition reported.
	check := s.CheckExpiration("dev", CategoryCamera, 1000+3600, 1)
	assert.True(t, check.Unlocked)
	assert.False(t, check.WasExpired)
	assert.Equal(t, 1000.0, s.Timestamp("dev", CategoryCamera))

	// The timestamp survives past the deadline until someone reads it.
	assert.False(t, s.IsUnlocked("dev", CategoryCamera, 1000+7200, 1))
	assert.Equal(t, 1000.0, s.Timestamp("dev", CategoryCamera), "IsUnlocked does not reset")

	// First expiring read reports the transition and zeroes the timestamp.
	check = s.CheckExpiration("dev", CategoryCamera, 1000+7200, 1)
	assert.False(t, check.Unlocked)
	assert.True(t, check.WasExpired)
	assert.Equal(t, 0.0, s.Timestamp("dev", CategoryCamera))

	// Second read sees a plain locked pair.
	check = s.CheckExpiration("dev", CategoryCamera, 1000+7200, 1)
	assert.False(t, check.Unlocked)
	assert.False(t, check.WasExpired, "transition is reported exactly once")
}

func TestCheckExpirationZeroDuration(t *testing.T) {
	s := NewStateStore()
	s.Grant("dev", CategoryAgent, 50)

	check := s.CheckExpiration("dev", CategoryAgent, 1e12, 0)
	assert.True(t, check.Unlocked)
	assert.False(t, check.WasExpired)
}

func TestReset(t *testing.T) {
	s := NewStateStore()
	s.Grant("dev", CategoryBasic, 10)
	s.Grant("dev", CategoryCamera, 20)

	s.Reset("dev")
	assert.Equal(t, 0.0, s.Timestamp("dev", CategoryBasic))
	assert.Equal(t, 0.0, s.Timestamp("dev", CategoryCamera))
}

func TestSnapshotRestore(t *testing.T) {
	s := NewStateStore()
	s.Grant("a", CategoryBasic, 10)
	s.Grant("a", CategoryCamera, 20)
	s.Grant("b", CategoryTurret, 30)
	s.Grant("c", CategoryAgent, 40)
	s.Reset("c")

	snap := s.Snapshot()
	assert.Len(t, snap, 2, "zeroed entries are not snapshotted")

	restored := NewStateStore()
	restored.Restore(snap)
	assert.Equal(t, 10.0, restored.Timestamp("a", CategoryBasic))
	assert.Equal(t, 20.0, restored.Timestamp("a", CategoryCamera))
	assert.Equal(t, 30.0, restored.Timestamp("b", CategoryTurret))
	assert.Equal(t, 0.0, restored.Timestamp("c", CategoryAgent))

	// Mutating the snapshot must not leak into the restored store.
	snap["a"][CategoryBasic] = 999
	assert.Equal(t, 10.0, restored.Timestamp("a", CategoryBasic))
}
