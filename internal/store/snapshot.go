// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     store
// Description: SQLite snapshot persistence for entity component registries
// Author:      Mike Stoffels
// Created:     2026-03-17
// License:     MIT
// ============================================================================

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	"github.com/msto63/ecsq/foundation/query/registry"
	"github.com/msto63/ecsq/pkg/core/logging"

	_ "github.com/mattn/go-sqlite3"
)

// SnapshotStore persists registry snapshots
type SnapshotStore interface {
	Save(ctx context.Context, reg *registry.Memory) error
	Load(ctx context.Context) (*registry.Memory, error)
	Statistics(ctx context.Context) (map[string]interface{}, error)
	Close() error
}

// Config holds configuration for the SQLite store
type Config struct {
	Path   string
	Logger *logging.Logger
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Path: "./data/world.db",
	}
}

// SQLiteStore implements SnapshotStore using SQLite. Entity id halves are
// stored as their int64 bit patterns.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *logging.Logger
}

var _ SnapshotStore = (*SQLiteStore)(nil)

// New opens (and if needed creates) the snapshot database
func New(cfg Config) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("store")
	}

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Component types
	CREATE TABLE IF NOT EXISTS components (
		type INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		size INTEGER NOT NULL
	);

	-- Entities in creation order
	CREATE TABLE IF NOT EXISTS entities (
		high INTEGER NOT NULL,
		low INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		PRIMARY KEY (high, low)
	);

	-- Attached component data
	CREATE TABLE IF NOT EXISTS entity_components (
		high INTEGER NOT NULL,
		low INTEGER NOT NULL,
		type INTEGER NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (high, low, type)
	);

	-- Snapshot metadata
	CREATE TABLE IF NOT EXISTS snapshot_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entities_seq ON entities(seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the stored snapshot with the contents of reg
func (s *SQLiteStore) Save(ctx context.Context, reg *registry.Memory) error {
	if reg == nil {
		return mdwerror.New("registry is required").WithCode(mdwerror.CodeInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError(err, "begin snapshot")
	}
	defer tx.Rollback()

	for _, table := range []string{"entity_components", "entities", "components", "snapshot_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return dbError(err, "clear "+table)
		}
	}

	defs := reg.Components()
	for _, def := range defs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO components (type, name, size) VALUES (?, ?, ?)",
			int64(def.Type), def.Name, def.Size,
		); err != nil {
			return dbError(err, "insert component "+def.Name)
		}
	}

	entityStmt, err := tx.PrepareContext(ctx, "INSERT INTO entities (high, low, seq) VALUES (?, ?, ?)")
	if err != nil {
		return dbError(err, "prepare entities")
	}
	defer entityStmt.Close()

	dataStmt, err := tx.PrepareContext(ctx, "INSERT INTO entity_components (high, low, type, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return dbError(err, "prepare entity components")
	}
	defer dataStmt.Close()

	entities := reg.Entities()
	for seq, id := range entities {
		high, low := int64(id.High), int64(id.Low)
		if _, err := entityStmt.ExecContext(ctx, high, low, seq); err != nil {
			return dbError(err, "insert entity "+id.String())
		}
		for _, def := range defs {
			data, ok := reg.Component(id, def.Type)
			if !ok {
				continue
			}
			if _, err := dataStmt.ExecContext(ctx, high, low, int64(def.Type), data); err != nil {
				return dbError(err, "insert component data")
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshot_meta (key, value) VALUES ('saved_at', ?)",
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return dbError(err, "write metadata")
	}

	if err := tx.Commit(); err != nil {
		return dbError(err, "commit snapshot")
	}

	s.logger.Info("Snapshot saved",
		"entities", len(entities),
		"components", len(defs),
		"duration", time.Since(start),
	)
	return nil
}

// Load rebuilds a registry from the stored snapshot. An empty database
// yields an empty registry.
func (s *SQLiteStore) Load(ctx context.Context) (*registry.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg := registry.NewMemory(registry.Options{Logger: s.logger.Logger})

	rows, err := s.db.QueryContext(ctx, "SELECT type, name, size FROM components ORDER BY type")
	if err != nil {
		return nil, dbError(err, "query components")
	}
	types := make(map[int64]registry.ComponentType)
	for rows.Next() {
		var stored int64
		var name string
		var size int
		if err := rows.Scan(&stored, &name, &size); err != nil {
			rows.Close()
			return nil, dbError(err, "scan component")
		}
		t, err := reg.RegisterComponent(name, size)
		if err != nil {
			rows.Close()
			return nil, corrupt(err)
		}
		types[stored] = t
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "read components")
	}

	rows, err = s.db.QueryContext(ctx, "SELECT high, low FROM entities ORDER BY seq")
	if err != nil {
		return nil, dbError(err, "query entities")
	}
	for rows.Next() {
		var high, low int64
		if err := rows.Scan(&high, &low); err != nil {
			rows.Close()
			return nil, dbError(err, "scan entity")
		}
		if err := reg.CreateEntityWithID(registry.EntityID{High: uint64(high), Low: uint64(low)}); err != nil {
			rows.Close()
			return nil, corrupt(err)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "read entities")
	}

	rows, err = s.db.QueryContext(ctx, "SELECT high, low, type, data FROM entity_components")
	if err != nil {
		return nil, dbError(err, "query entity components")
	}
	defer rows.Close()
	for rows.Next() {
		var high, low, stored int64
		var data []byte
		if err := rows.Scan(&high, &low, &stored, &data); err != nil {
			return nil, dbError(err, "scan entity component")
		}
		t, ok := types[stored]
		if !ok {
			return nil, corrupt(fmt.Errorf("unknown component type %d", stored))
		}
		id := registry.EntityID{High: uint64(high), Low: uint64(low)}
		if err := reg.AddComponent(id, t, data); err != nil {
			return nil, corrupt(err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "read entity components")
	}

	stats := reg.Stats()
	s.logger.Debug("Snapshot loaded", "entities", stats.Entities, "components", stats.Components)
	return reg, nil
}

// Statistics returns row counts and the time of the last save
func (s *SQLiteStore) Statistics(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})
	for _, table := range []string{"components", "entities", "entity_components"} {
		var count int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, dbError(err, "count "+table)
		}
		stats[table] = count
	}

	var savedAt string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM snapshot_meta WHERE key = 'saved_at'").Scan(&savedAt)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, dbError(err, "read metadata")
	default:
		stats["saved_at"] = savedAt
	}

	return stats, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func dbError(err error, operation string) error {
	return mdwerror.Wrap(err, "snapshot store").
		WithCode(mdwerror.CodeDatabaseError).
		WithOperation(operation)
}

func corrupt(err error) error {
	return mdwerror.Wrap(err, "snapshot is inconsistent").WithCode(mdwerror.CodeDataCorruption)
}
