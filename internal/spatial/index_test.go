// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package spatial

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netgrid/netgrid/internal/geo"
)

func TestRecordSuccessDedup(t *testing.T) {
	ix := NewIndex(0, 0)

	ix.RecordSuccess(geo.Point3{X: 10}, 100)
	require.Equal(t, 1, ix.Len())

	// A second success within 1 m refreshes the existing record in place.
	ix.RecordSuccess(geo.Point3{X: 10.5}, 200)
	assert.Equal(t, 1, ix.Len(), "near-duplicate must not grow the list")

	rec, ok := ix.FindNearestRecord(geo.Point3{X: 10}, NearestTolerance)
	require.True(t, ok)
	assert.Equal(t, uint64(200), rec.Timestamp, "timestamp refreshed to latest")

	// Beyond the tolerance a new record is appended.
	ix.RecordSuccess(geo.Point3{X: 12}, 300)
	assert.Equal(t, 2, ix.Len())
}

func TestBoundedGrowth(t *testing.T) {
	ix := NewIndex(50, 10)

	// 50 distinct positions, all more than 1 m apart.
	for i := 0; i < 50; i++ {
		ix.RecordSuccess(geo.Point3{X: float64(i) * 10}, uint64(i+1))
	}
	require.Equal(t, 50, ix.Len())

	// The 51st insertion triggers one prune cycle: 51 - 10 = 41.
	ix.RecordSuccess(geo.Point3{X: 1000}, 51)
	assert.Equal(t, 41, ix.Len())

	// The evicted records are the ten oldest by timestamp.
	for i := 0; i < 10; i++ {
		_, ok := ix.FindNearestRecord(geo.Point3{X: float64(i) * 10}, NearestTolerance)
		assert.False(t, ok, "record %d should have been pruned", i)
	}
	_, ok := ix.FindNearestRecord(geo.Point3{X: 100}, NearestTolerance)
	assert.True(t, ok, "eleventh-oldest record survives")
}

func TestPruneUsesTimestampNotInsertionOrder(t *testing.T) {
	ix := NewIndex(50, 10)

	for i := 0; i < 50; i++ {
		ix.RecordSuccess(geo.Point3{X: float64(i) * 10}, uint64(i+1))
	}

	// Refresh the very first insertion so it becomes the youngest record.
	ix.RecordSuccess(geo.Point3{X: 0}, 1000)
	require.Equal(t, 50, ix.Len())

	ix.RecordSuccess(geo.Point3{X: 2000}, 1001)
	assert.Equal(t, 41, ix.Len())

	_, ok := ix.FindNearestRecord(geo.Point3{X: 0}, NearestTolerance)
	assert.True(t, ok, "refreshed record survives pruning despite oldest slot")

	// Insertions 2..11 are now the oldest and got evicted.
	_, ok = ix.FindNearestRecord(geo.Point3{X: 10}, NearestTolerance)
	assert.False(t, ok)
}

func TestSizeNeverExceedsCapacity(t *testing.T) {
	ix := NewIndex(50, 10)

	for i := 0; i < 500; i++ {
		ix.RecordSuccess(geo.Point3{X: float64(i) * 5, Y: float64(i % 7)}, uint64(i))
		assert.LessOrEqual(t, ix.Len(), 50, "iteration %d", i)
	}
}

func TestIsWithinInfluence(t *testing.T) {
	ix := NewIndex(0, 0)
	ix.RecordSuccess(geo.Point3{}, 1)

	assert.True(t, ix.IsWithinInfluence(geo.Point3{X: 30}, 50))
	assert.True(t, ix.IsWithinInfluence(geo.Point3{X: 50}, 50))
	assert.False(t, ix.IsWithinInfluence(geo.Point3{X: 80}, 50))
	assert.False(t, NewIndex(0, 0).IsWithinInfluence(geo.Point3{}, 50), "empty index matches nothing")
}

func TestFindNearestRecordPicksClosest(t *testing.T) {
	ix := NewIndex(0, 0)
	ix.RecordSuccess(geo.Point3{X: 3}, 1)
	ix.RecordSuccess(geo.Point3{X: 6}, 2)

	rec, ok := ix.FindNearestRecord(geo.Point3{X: 4}, NearestTolerance)
	require.True(t, ok)
	assert.Equal(t, 3.0, rec.Position.X)

	_, ok = ix.FindNearestRecord(geo.Point3{X: 100}, NearestTolerance)
	assert.False(t, ok)
}

func TestRestoreReappliesBound(t *testing.T) {
	records := make([]BreachRecord, 60)
	for i := range records {
		records[i] = BreachRecord{
			Position:  geo.Point3{X: float64(i) * 10},
			Timestamp: uint64(i),
		}
	}

	ix := NewIndex(50, 10)
	ix.Restore(records)
	assert.LessOrEqual(t, ix.Len(), 50)
}

func ExampleIndex_RecordSuccess() {
	ix := NewIndex(0, 0)
	ix.RecordSuccess(geo.Point3{X: 1}, 10)
	ix.RecordSuccess(geo.Point3{X: 1.2}, 20)
	fmt.Println(ix.Len())
	// Output: 1
}
