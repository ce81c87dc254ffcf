package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cabinmix/pkg/db"
	"cabinmix/pkg/zone"
)

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	VehicleStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Vehicles ---

func (s *SQLiteStore) GetVehicle(ctx context.Context, id string) (zone.Config, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT config FROM vehicle_configs WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var cfg zone.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode vehicle %s: %w", id, err)
	}
	return cfg, nil
}

func (s *SQLiteStore) SaveVehicle(ctx context.Context, id string, cfg zone.Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode vehicle %s: %w", id, err)
	}
	query := `INSERT INTO vehicle_configs (id, config, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`
	_, err = s.db.ExecContext(ctx, query, id, string(data), time.Now())
	return err
}

// ListVehicles returns every persisted vehicle. Rows that fail to decode are
// logged and skipped.
func (s *SQLiteStore) ListVehicles(ctx context.Context) ([]VehicleRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, config, updated_at FROM vehicle_configs ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VehicleRecord
	for rows.Next() {
		var (
			id, raw string
			updated sql.NullTime
		)
		if err := rows.Scan(&id, &raw, &updated); err != nil {
			return nil, err
		}
		var cfg zone.Config
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			slog.Warn("Skipping corrupt vehicle config", "vehicle", id, "error", err)
			continue
		}
		rec := VehicleRecord{ID: id, Config: cfg}
		if updated.Valid {
			rec.UpdatedAt = updated.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteVehicle(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM vehicle_configs WHERE id = ?", id)
	return err
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Debug("State lookup failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
