// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package capability

// secondsPerHour converts the configured duration into engine seconds.
const secondsPerHour = 3600

// StateStore holds the unlock timestamps for every known entity.
//
// Entries are created lazily on first grant and never deleted; expiration
// resets the timestamp to zero in place. The store is owned by a single
// session context and assumes one logical writer at a time.
type StateStore struct {
	grants map[EntityID]map[Category]float64
}

// NewStateStore creates an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{
		grants: make(map[EntityID]map[Category]float64),
	}
}

// ExpirationCheck reports the outcome of a CheckExpiration call.
type ExpirationCheck struct {
	Unlocked   bool
	WasExpired bool
}

// Grant records an unlock for the (entity, category) pair at the given time.
// Timestamps never move backwards: re-granting with an earlier time keeps
// the existing grant.
func (s *StateStore) Grant(entity EntityID, cat Category, now float64) {
	if now <= 0 {
		return
	}
	byCat := s.grants[entity]
	if byCat == nil {
		byCat = make(map[Category]float64)
		s.grants[entity] = byCat
	}
	if now > byCat[cat] {
		byCat[cat] = now
	}
}

// Timestamp returns the raw stored timestamp, zero if the pair is locked.
func (s *StateStore) Timestamp(entity EntityID, cat Category) float64 {
	return s.grants[entity][cat]
}

// IsUnlocked reports whether the capability is currently granted.
//
// A pair is unlocked iff its timestamp is positive and either durationHours
// is zero (grants never expire) or the grant is younger than the duration.
// This is a pure read; expired timestamps are only reset by CheckExpiration.
func (s *StateStore) IsUnlocked(entity EntityID, cat Category, now, durationHours float64) bool {
	ts := s.grants[entity][cat]
	if ts <= 0 {
		return false
	}
	if durationHours == 0 {
		return true
	}
	return now-ts <= durationHours*secondsPerHour
}

// CheckExpiration reads the unlock state and, exactly when the duration has
// elapsed, resets the stored timestamp to zero. The WasExpired flag reports
// that transition once; subsequent calls see a plain locked pair.
func (s *StateStore) CheckExpiration(entity EntityID, cat Category, now, durationHours float64) ExpirationCheck {
	ts := s.grants[entity][cat]
	if ts <= 0 {
		return ExpirationCheck{}
	}
	if durationHours == 0 || now-ts <= durationHours*secondsPerHour {
		return ExpirationCheck{Unlocked: true}
	}
	s.grants[entity][cat] = 0
	return ExpirationCheck{WasExpired: true}
}

// Reset locks every category of the given entity in place.
func (s *StateStore) Reset(entity EntityID) {
	byCat := s.grants[entity]
	for cat := range byCat {
		byCat[cat] = 0
	}
}

// Snapshot returns a deep copy of all non-zero grants, keyed by entity then
// category. Used by the persistence layer.
func (s *StateStore) Snapshot() map[EntityID]map[Category]float64 {
	out := make(map[EntityID]map[Category]float64, len(s.grants))
	for entity, byCat := range s.grants {
		for cat, ts := range byCat {
			if ts <= 0 {
				continue
			}
			if out[entity] == nil {
				out[entity] = make(map[Category]float64)
			}
			out[entity][cat] = ts
		}
	}
	return out
}

// Restore replaces the store contents with a previously snapshotted state.
func (s *StateStore) Restore(grants map[EntityID]map[Category]float64) {
	s.grants = make(map[EntityID]map[Category]float64, len(grants))
	for entity, byCat := range grants {
		inner := make(map[Category]float64, len(byCat))
		for cat, ts := range byCat {
			inner[cat] = ts
		}
		s.grants[entity] = inner
	}
}
