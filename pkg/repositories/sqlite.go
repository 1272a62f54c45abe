package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gametypes "github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/repositories/models"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string, migrations string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	pending, err := readMigrations(migrations)
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, m := range pending {
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute migration %s: %v", m.path, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, timestamp int64, playerCount int, data []byte) error {
	q := `
	INSERT INTO snapshots (timestamp, player_count, data)
	VALUES (?, ?, ?);
	`
	if _, err := r.db.ExecContext(ctx, q, timestamp, playerCount, data); err != nil {
		return fmt.Errorf("failed to insert snapshot: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadLatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	q := `
	SELECT id, timestamp, player_count, data FROM snapshots
	ORDER BY timestamp DESC, id DESC
	LIMIT 1;
	`
	snapshot := &models.Snapshot{}
	if err := r.db.QueryRowContext(ctx, q).Scan(&snapshot.ID, &snapshot.Timestamp, &snapshot.PlayerCount, &snapshot.Data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no snapshot recorded: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan snapshot: %v", err)
	}
	return snapshot, nil
}

func (r *SQLiteRepository) SaveSessionEvent(ctx context.Context, event gametypes.SessionEvent) error {
	q := `
	INSERT INTO session_events (kind, player_id, player_count, timestamp)
	VALUES (?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q, string(event.Kind), event.PlayerID, event.PlayerCount, event.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert session event: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) ListSessionEvents(ctx context.Context, limit int) ([]*models.SessionEvent, error) {
	q := `
	SELECT id, kind, player_id, player_count, timestamp FROM session_events
	ORDER BY id DESC
	LIMIT ?;
	`
	rows, err := r.db.QueryContext(ctx, q, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %v", err)
	}
	defer rows.Close()

	events := make([]*models.SessionEvent, 0)
	for rows.Next() {
		event := &models.SessionEvent{}
		if err := rows.Scan(&event.ID, &event.Kind, &event.PlayerID, &event.PlayerCount, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %v", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session events: %v", err)
	}
	return events, nil
}
