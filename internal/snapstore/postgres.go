// File: internal/snapstore/postgres.go
// Description: PostgreSQL-backed snapshot store. Versions increase
// monotonically per session via an atomic read-modify-write inside the
// INSERT statement.

package snapstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"domainlens/api/schemas"
)

// DBPool abstracts pgxpool.Pool for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists snapshots in the snapshots table, scoped to one
// session.
type PostgresStore struct {
	pool      DBPool
	sessionID string
	log       *zap.Logger
}

const createSnapshotsTable = `
    CREATE TABLE IF NOT EXISTS snapshots (
        session_id TEXT NOT NULL,
        stage TEXT NOT NULL,
        version BIGINT NOT NULL,
        data JSONB NOT NULL,
        state JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (session_id, stage, version)
    );
`

const insertSnapshot = `
    INSERT INTO snapshots (session_id, stage, version, data, state, created_at)
    VALUES ($1, $2, (SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE session_id = $1), $3, $4, $5)
    RETURNING version;
`

const selectLatestSnapshot = `
    SELECT stage, version, data, state, created_at
    FROM snapshots
    WHERE session_id = $1 AND stage = $2
    ORDER BY version DESC
    LIMIT 1;
`

// NewPostgresStore verifies the connection, ensures the schema exists, and
// returns a store bound to the given session.
func NewPostgresStore(ctx context.Context, pool DBPool, sessionID string, logger *zap.Logger) (*PostgresStore, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createSnapshotsTable); err != nil {
		return nil, fmt.Errorf("failed to ensure snapshots table: %w", err)
	}
	return &PostgresStore{
		pool:      pool,
		sessionID: sessionID,
		log:       logger.Named("snapstore.postgres"),
	}, nil
}

// Save persists a new snapshot for the named stage and returns its version.
func (s *PostgresStore) Save(ctx context.Context, stage string, data, state json.RawMessage) (int64, error) {
	if stage == "" {
		return 0, fmt.Errorf("snapshot stage must not be empty")
	}
	data = orEmptyObject(data)
	state = orEmptyObject(state)

	var version int64
	err := s.pool.QueryRow(ctx, insertSnapshot,
		s.sessionID, stage, data, state, time.Now().UTC(),
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot for stage %q: %w", stage, err)
	}

	s.log.Debug("Snapshot persisted",
		zap.String("stage", stage),
		zap.Int64("version", version),
	)
	return version, nil
}

// Load returns the latest snapshot for the named stage.
func (s *PostgresStore) Load(ctx context.Context, stage string) (schemas.Snapshot, error) {
	var snap schemas.Snapshot
	err := s.pool.QueryRow(ctx, selectLatestSnapshot, s.sessionID, stage).Scan(
		&snap.Stage, &snap.Version, &snap.Data, &snap.State, &snap.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return schemas.Snapshot{}, fmt.Errorf("stage %q: %w", stage, ErrSnapshotNotFound)
	}
	if err != nil {
		return schemas.Snapshot{}, fmt.Errorf("failed to load snapshot for stage %q: %w", stage, err)
	}
	return snap, nil
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("{}")
	}
	return raw
}
