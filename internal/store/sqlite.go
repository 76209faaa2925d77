// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

// Package store persists session state to an embedded SQLite database:
// per-entity category timestamps, the bounded breach record list, and
// per-entity penalty timestamps.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/geo"
	"github.com/netgrid/netgrid/internal/spatial"
)

// schema is applied on every open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS capability_state (
	entity      TEXT NOT NULL,
	category    TEXT NOT NULL,
	unlocked_at REAL NOT NULL,
	PRIMARY KEY (entity, category)
);

CREATE TABLE IF NOT EXISTS breach_records (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	x           REAL NOT NULL,
	y           REAL NOT NULL,
	z           REAL NOT NULL,
	recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS penalty_state (
	entity    TEXT PRIMARY KEY,
	failed_at REAL NOT NULL
);
`

// Retry tuning for transient SQLITE_BUSY failures.
const (
	retryBase  = 10 * time.Millisecond
	retryCount = 5
)

// SessionState is the persisted snapshot of one session's stores.
type SessionState struct {
	Capabilities map[capability.EntityID]map[capability.Category]float64
	Breaches     []spatial.BreachRecord
	Penalties    map[capability.EntityID]float64
}

// Store wraps the SQLite database holding session state.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. A nil logger falls back to slog.Default().
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").With("path", path).Wrap(err)
	}
	// A single writer; parallel connections only contend.
	db.SetMaxOpenConns(1)

	if err := withBusyRetry(ctx, func() error {
		_, execErr := db.ExecContext(ctx, schema)
		return execErr
	}); err != nil {
		_ = db.Close()
		return nil, oops.Code("STORE_MIGRATE_FAILED").With("path", path).Wrap(err)
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return oops.Code("STORE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Save replaces the persisted snapshot with the given state in one
// transaction.
func (s *Store) Save(ctx context.Context, state SessionState) error {
	err := withBusyRetry(ctx, func() error {
		return s.saveOnce(ctx, state)
	})
	if err != nil {
		return oops.Code("STORE_SAVE_FAILED").Wrap(err)
	}
	s.log.Debug("session state saved",
		"entities", len(state.Capabilities),
		"breaches", len(state.Breaches),
		"penalties", len(state.Penalties),
	)
	return nil
}

func (s *Store) saveOnce(ctx context.Context, state SessionState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, table := range []string{"capability_state", "breach_records", "penalty_state"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	for entity, byCat := range state.Capabilities {
		for cat, ts := range byCat {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO capability_state (entity, category, unlocked_at) VALUES (?, ?, ?)",
				string(entity), cat.String(), ts,
			); err != nil {
				return err
			}
		}
	}
	for _, rec := range state.Breaches {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO breach_records (x, y, z, recorded_at) VALUES (?, ?, ?, ?)",
			rec.Position.X, rec.Position.Y, rec.Position.Z, int64(rec.Timestamp),
		); err != nil {
			return err
		}
	}
	for entity, ts := range state.Penalties {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO penalty_state (entity, failed_at) VALUES (?, ?)",
			string(entity), ts,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Load reads the persisted snapshot. Rows with an unknown category are
// skipped with a log line rather than failing the whole load.
func (s *Store) Load(ctx context.Context) (SessionState, error) {
	state := SessionState{
		Capabilities: make(map[capability.EntityID]map[capability.Category]float64),
		Penalties:    make(map[capability.EntityID]float64),
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT entity, category, unlocked_at FROM capability_state")
	if err != nil {
		return state, oops.Code("STORE_LOAD_FAILED").Wrap(err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	for rows.Next() {
		var entity, catName string
		var ts float64
		if err := rows.Scan(&entity, &catName, &ts); err != nil {
			return state, oops.Code("STORE_LOAD_FAILED").Wrap(err)
		}
		cat, err := capability.ParseCategory(catName)
		if err != nil {
			s.log.Warn("skipping unknown category row", "category", catName)
			continue
		}
		id := capability.EntityID(entity)
		if state.Capabilities[id] == nil {
			state.Capabilities[id] = make(map[capability.Category]float64)
		}
		state.Capabilities[id][cat] = ts
	}
	if err := rows.Err(); err != nil {
		return state, oops.Code("STORE_LOAD_FAILED").Wrap(err)
	}

	breachRows, err := s.db.QueryContext(ctx,
		"SELECT x, y, z, recorded_at FROM breach_records ORDER BY seq")
	if err != nil {
		return state, oops.Code("STORE_LOAD_FAILED").Wrap(err)
	}
	defer breachRows.Close() //nolint:errcheck // read-only cursor

	for breachRows.Next() {
		var p geo.Point3
		var ts int64
		if err := breachRows.Scan(&p.X, &p.Y, &p.Z, &ts); err != nil {
			return state, oops.Code("STORE_LOAD_FAILED").Wrap(err)
		}
		state.Breaches = append(state.Breaches, spatial.BreachRecord{
			Position:  p,
			Timestamp: uint64(ts),
		})
	}
	if err := breachRows.Err(); err != nil {
		return state, oops.Code("STORE_LOAD_FAILED").Wrap(err)
	}

	penaltyRows, err := s.db.QueryContext(ctx,
		"SELECT entity, failed_at FROM penalty_state")
	if err != nil {
		return state, oops.Code("STORE_LOAD_FAILED").Wrap(err)
	}
	defer penaltyRows.Close() //nolint:errcheck // read-only cursor

	for penaltyRows.Next() {
		var entity string
		var ts float64
		if err := penaltyRows.Scan(&entity, &ts); err != nil {
			return state, oops.Code("STORE_LOAD_FAILED").Wrap(err)
		}
		state.Penalties[capability.EntityID(entity)] = ts
	}
	if err := penaltyRows.Err(); err != nil {
		return state, oops.Code("STORE_LOAD_FAILED").Wrap(err)
	}

	return state, nil
}

// withBusyRetry retries fn with fibonacci backoff while SQLite reports the
// database as busy or locked.
func withBusyRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(retryCount, retry.NewFibonacci(retryBase))
	return retry.Do(ctx, backoff, func(_ context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
