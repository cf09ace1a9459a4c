// Package postgres stores rating snapshots in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/goratings/internal/adapters/repository"
	"github.com/okian/goratings/internal/domain/glicko2"
	"github.com/okian/goratings/internal/domain/model"
	"github.com/okian/goratings/pkg/metrics"
)

//go:embed schema.sql
var schema embed.FS

// Snapshotter persists whole player stores through a connection pool.
type Snapshotter struct{ pool *pgxpool.Pool }

var _ repository.Snapshotter = (*Snapshotter)(nil)

// Open connects to dsn and creates the snapshot tables if needed.
func Open(ctx context.Context, dsn string) (*Snapshotter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Snapshotter{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Snapshotter) migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Snapshotter) Close() error {
	s.pool.Close()
	return nil
}

// Save writes every entry of store in one transaction, bulk copying the
// entries.
func (s *Snapshotter) Save(ctx context.Context, meta repository.SnapshotMeta, store repository.Store) error {
	start := time.Now()
	if meta.TakenAt.IsZero() {
		meta.TakenAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", repository.ErrSnapshotWrite, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var snapshotID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO rating_snapshots (run_id, games_processed, last_ended_at, taken_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, meta.RunID, meta.GamesProcessed, meta.LastEndedAt, meta.TakenAt.UTC()).Scan(&snapshotID)
	if err != nil {
		return fmt.Errorf("%w: insert snapshot: %w", repository.ErrSnapshotWrite, err)
	}

	rows := make([][]any, 0, store.Len(ctx))
	store.Range(ctx, func(id model.PlayerID, e glicko2.Entry) bool {
		rows = append(rows, []any{snapshotID, int64(id), e.Rating, e.Deviation, e.Volatility})
		return true
	})
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"rating_snapshot_entries"},
		[]string{"snapshot_id", "player_id", "rating", "deviation", "volatility"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("%w: copy entries: %w", repository.ErrSnapshotWrite, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", repository.ErrSnapshotWrite, err)
	}
	metrics.RecordSnapshot(float64(time.Since(start).Milliseconds()), len(rows))
	return nil
}

// Load restores the most recent snapshot into store.
func (s *Snapshotter) Load(ctx context.Context, store repository.Store) (repository.SnapshotMeta, error) {
	start := time.Now()

	var (
		snapshotID int64
		meta       repository.SnapshotMeta
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, run_id, games_processed, last_ended_at, taken_at
		  FROM rating_snapshots
		 ORDER BY id DESC
		 LIMIT 1
	`).Scan(&snapshotID, &meta.RunID, &meta.GamesProcessed, &meta.LastEndedAt, &meta.TakenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.SnapshotMeta{}, repository.ErrNoSnapshot
	}
	if err != nil {
		return repository.SnapshotMeta{}, fmt.Errorf("query snapshot: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT player_id, rating, deviation, volatility
		  FROM rating_snapshot_entries
		 WHERE snapshot_id = $1
		 ORDER BY player_id
	`, snapshotID)
	if err != nil {
		return repository.SnapshotMeta{}, fmt.Errorf("query snapshot entries: %w", err)
	}
	defer rows.Close()

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
