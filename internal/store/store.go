// Package store owns the persisted housing history. It is the single
// source of truth: append is the only write path, and the persisted state
// is one JSON document matching the HousingHistory contract exactly.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"bedpulse/pkg/contracts/domain"
)

// ErrDuplicateTimestamp is returned when an appended snapshot's timestamp
// exactly equals an existing one. Automated callers treat this as an
// idempotent no-op, not a failure.
var ErrDuplicateTimestamp = errors.New("snapshot with identical timestamp already exists")

// Store persists the housing history as a single JSON document on disk.
// Appends are serialized internally; the external scheduler is expected to
// run one ingestion at a time, but the mutex keeps the append contract safe
// if that assumption is ever violated. Reads are pure functions of the
// loaded state.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates a store backed by the JSON document at path.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		logger: logger.With(slog.String("component", "store")),
	}
}

// Load returns the full current history. A missing or corrupt backing file
// degrades to an empty history rather than failing: first run and transient
// corruption are expected, recoverable conditions. The only returned error
// is context cancellation.
func (s *Store) Load(ctx context.Context) (domain.HousingHistory, error) {
	if err := ctx.Err(); err != nil {
		return emptyHistory(), err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("history file unreadable, starting empty",
				slog.String("path", s.path),
				slog.String("error", err.Error()))
		}
		return emptyHistory(), nil
	}

	var history domain.HousingHistory
	if err := json.Unmarshal(data, &history); err != nil {
		s.logger.Warn("history file corrupt, starting empty",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return emptyHistory(), nil
	}
	if history.Snapshots == nil {
		history.Snapshots = []domain.Snapshot{}
	}
	return history, nil
}

// Append adds a snapshot to the end of the history and updates LastUpdated,
// rejecting exact duplicate timestamps with ErrDuplicateTimestamp. The
// write is durable (temp file plus rename) before Append reports success,
// so readers never observe a partial document. On success the updated
// history is returned.
func (s *Store) Append(ctx context.Context, snapshot domain.Snapshot) (domain.HousingHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.Load(ctx)
	if err != nil {
		return emptyHistory(), err
	}

	for _, existing := range history.Snapshots {
		if existing.Timestamp.Equal(snapshot.Timestamp) {
			s.logger.Info("duplicate snapshot rejected",
				slog.Time("timestamp", snapshot.Timestamp))
			return history, ErrDuplicateTimestamp
		}
	}

	history.Snapshots = append(history.Snapshots, snapshot)
	ts := snapshot.Timestamp
	history.LastUpdated = &ts

	if err := s.write(history); err != nil {
		return emptyHistory(), fmt.Errorf("persist housing history: %w", err)
	}

	s.logger.Info("snapshot appended",
		slog.Time("timestamp", snapshot.Timestamp),
		slog.Int("rows", len(snapshot.Rows)),
		slog.Int("snapshot_count", len(history.Snapshots)))
	return history, nil
}

// write marshals the history and replaces the backing file atomically.
func (s *Store) write(history domain.HousingHistory) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

func emptyHistory() domain.HousingHistory {
	return domain.HousingHistory{Snapshots: []domain.Snapshot{}}
}
