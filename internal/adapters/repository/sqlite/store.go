// Package sqlite stores rating snapshots in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/goratings/internal/adapters/repository"
	"github.com/okian/goratings/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/goratings/internal/domain/glicko2"
	"github.com/okian/goratings/internal/domain/model"
	"github.com/okian/goratings/pkg/metrics"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Snapshotter persists whole player stores as numbered snapshots.
type Snapshotter struct {
	sqlDB *sql.DB
}

var _ repository.Snapshotter = (*Snapshotter)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite snapshot file and applies embedded migrations.
func Open(ctx context.Context, path string) (*Snapshotter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Snapshotter{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Snapshotter) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save writes every entry of store in one transaction.
func (s *Snapshotter) Save(ctx context.Context, meta repository.SnapshotMeta, store repository.Store) error {
	start := time.Now()
	if meta.TakenAt.IsZero() {
		meta.TakenAt = time.Now()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", repository.ErrSnapshotWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, games_processed, last_ended_at, taken_at) VALUES (?, ?, ?, ?)`,
		meta.RunID, meta.GamesProcessed, meta.LastEndedAt, toMillis(meta.TakenAt),
	)
	if err != nil {
		return fmt.Errorf("%w: insert snapshot: %w", repository.ErrSnapshotWrite, err)
	}
	snapshotID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: snapshot id: %w", repository.ErrSnapshotWrite, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_entries (snapshot_id, player_id, rating, deviation, volatility) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", repository.ErrSnapshotWrite, err)
	}
	defer func() { _ = stmt.Close() }()

	var count int
	var insertErr error
	store.Range(ctx, func(id model.PlayerID, e glicko2.Entry) bool {
		if _, insertErr = stmt.ExecContext(ctx, snapshotID, int64(id), e.Rating, e.Deviation, e.Volatility); insertErr != nil {
			return false
		}
		count++
		return true
	})
	if insertErr != nil {
		return fmt.Errorf("%w: insert entry: %w", repository.ErrSnapshotWrite, insertErr)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", repository.ErrSnapshotWrite, err)
	}
	metrics.RecordSnapshot(float64(time.Since(start).Milliseconds()), count)
	return nil
}

// Load restores the most recent snapshot into store.
func (s *Snapshotter) Load(ctx context.Context, store repository.Store) (repository.SnapshotMeta, error) {
	start := time.Now()

	var (
		snapshotID int64
		meta       repository.SnapshotMeta
		takenAt    int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, run_id, games_processed, last_ended_at, taken_at FROM snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&snapshotID, &meta.RunID, &meta.GamesProcessed, &meta.LastEndedAt, &takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.SnapshotMeta{}, repository.ErrNoSnapshot
	}
	if err != nil {
		return repository.SnapshotMeta{}, fmt.Errorf("query snapshot: %w", err)
	}
	meta.TakenAt = fromMillis(takenAt)

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT player_id, rating, deviation, volatility FROM snapshot_entries WHERE snapshot_id = ? ORDER BY player_id`,
		snapshotID,
	)
	if err != nil {
		return repository.SnapshotMeta{}, fmt.Errorf("query snapshot entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var count int
	for rows.Next() {
		var (
			id int64
			e  glicko2.Entry
		)
		if err := rows.Scan(&id, &e.Rating, &e.Deviation, &e.Volatility); err != nil {
			return repository.SnapshotMeta{}, fmt.Errorf("scan snapshot entry: %w", err)
		}
		if err := e.Validate(); err != nil {
			return repository.SnapshotMeta{}, fmt.Errorf("snapshot entry %d: %w", id, err)
		}
		store.Set(ctx, model.PlayerID(id), e)
		count++
	}
	if err := rows.Err(); err != nil {
		return repository.SnapshotMeta{}, fmt.Errorf("read snapshot entries: %w", err)
	}
	metrics.RecordSnapshot(float64(time.Since(start).Milliseconds()), count)
	return meta, nil
}
