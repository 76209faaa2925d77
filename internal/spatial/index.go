// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

// Package spatial maintains the bounded index of past breach positions.
//
// Standalone entities with no network parent are unlocked by proximity to a
// prior successful breach, so the engine remembers where breaches happened.
// The list is deliberately small: nearby repeats refresh an existing record
// instead of appending, and overflow evicts the oldest records by timestamp.
package spatial

import (
	"sort"

	"github.com/netgrid/netgrid/internal/geo"
)

// Default index bounds and match tolerances, in records and meters.
const (
	DefaultMaxRecords = 50
	DefaultPruneCount = 10

	// DedupTolerance is the radius within which a new success refreshes an
	// existing record instead of growing the list.
	DedupTolerance = 1.0

	// NearestTolerance is the wider radius used to match a query point back
	// to a known breach position for diagnostics.
	NearestTolerance = 5.0
)

// BreachRecord is a recorded success position with the time of the latest
// success near it.
type BreachRecord struct {
	Position  geo.Point3
	Timestamp uint64
}

// Index is the session-scoped list of breach records.
type Index struct {
	records    []BreachRecord
	maxRecords int
	pruneCount int
}

// NewIndex creates an Index with the given bounds. Non-positive bounds fall
// back to the defaults.
func NewIndex(maxRecords, pruneCount int) *Index {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if pruneCount <= 0 {
		pruneCount = DefaultPruneCount
	}
	if pruneCount > maxRecords {
		pruneCount = maxRecords
	}
	return &Index{
		maxRecords: maxRecords,
		pruneCount: pruneCount,
	}
}

// RecordSuccess records a successful breach at the given position.
//
// If an existing record lies within DedupTolerance of the position, its
// timestamp is refreshed in place and the list does not grow. Otherwise a
// new record is appended; if that pushes the list past capacity, the oldest
// pruneCount records by timestamp are evicted.
func (ix *Index) RecordSuccess(pos geo.Point3, now uint64) {
	for i := range ix.records {
		if geo.Within(ix.records[i].Position, pos, DedupTolerance) {
			ix.records[i].Timestamp = now
			return
		}
	}

	ix.records = append(ix.records, BreachRecord{Position: pos, Timestamp: now})
	if len(ix.records) > ix.maxRecords {
		ix.prune()
	}
}

// prune evicts the pruneCount oldest records by timestamp. Timestamp order,
// not insertion order: records refreshed in place are younger than their
// slot position suggests.
func (ix *Index) prune() {
	sort.SliceStable(ix.records, func(i, j int) bool {
		return ix.records[i].Timestamp < ix.records[j].Timestamp
	})
	ix.records = ix.records[ix.pruneCount:]
}

// IsWithinInfluence reports whether the point lies within radius meters of
// any recorded breach. A single match is sufficient.
func (ix *Index) IsWithinInfluence(p geo.Point3, radius float64) bool {
	for i := range ix.records {
		if geo.Within(ix.records[i].Position, p, radius) {
			return true
		}
	}
	return false
}

// FindNearestRecord returns the closest record within tolerance meters of
// the point, if any. Read-only; intended for diagnostics that map a query
// point back to a known breach position.
func (ix *Index) FindNearestRecord(p geo.Point3, tolerance float64) (BreachRecord, bool) {
	bestSq := tolerance * tolerance
	bestIdx := -1
	for i := range ix.records {
		if d := geo.DistSq(ix.records[i].Position, p); d <= bestSq {
			bestSq = d
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return BreachRecord{}, false
	}
	return ix.records[bestIdx], true
}

// Len returns the number of stored records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Records returns a copy of the stored records for persistence.
func (ix *Index) Records() []BreachRecord {
	out := make([]BreachRecord, len(ix.records))
	copy(out, ix.records)
	return out
}

// Restore replaces the index contents with previously persisted records,
// re-applying the capacity bound.
func (ix *Index) Restore(records []BreachRecord) {
	ix.records = make([]BreachRecord, len(records))
	copy(ix.records, records)
	for len(ix.records) > ix.maxRecords {
		ix.prune()
	}
}
