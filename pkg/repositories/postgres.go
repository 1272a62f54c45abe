package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gametypes "github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/repositories/models"
	"github.com/jackc/pgx/v5"
)

type PostgresRepository struct {
	// a pgx.Conn is not safe for concurrent use
	lock sync.Mutex
	conn *pgx.Conn
}

// NewPostgresRepository connects to Postgres and applies the migrations.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string, migrations string) (Repository, error) {
	conn, err := connectDb(ctx, connStr)
	if err != nil {
		return nil, err
	}

	pending, err := readMigrations(migrations)
	if err != nil {
		conn.Close(ctx)
		return nil, err
	}
	for _, m := range pending {
		if _, err := conn.Exec(ctx, m.sql); err != nil {
			conn.Close(ctx)
			return nil, fmt.Errorf("failed to execute migration %s: %v", m.path, err)
		}
	}

	return &PostgresRepository{
		conn: conn,
	}, nil
}

func connectDb(ctx context.Context, connStr string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	var username string
	var database string
	err = conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("unable to query database: %v", err)
	}

	log.Info("Connected to %s as %s", database, username)

	return conn, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.conn.Close(ctx)
}

func (r *PostgresRepository) SaveSnapshot(ctx context.Context, timestamp int64, playerCount int, data []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	q := `
	INSERT INTO snapshots (timestamp, player_count, data) VALUES ($1, $2, $3);
	`
	if _, err := r.conn.Exec(ctx, q, timestamp, playerCount, data); err != nil {
		return fmt.Errorf("failed to insert snapshot: %v", err)
	}
	return nil
}

func (r *PostgresRepository) LoadLatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	q := `
	SELECT id, timestamp, player_count, data FROM snapshots
	ORDER BY timestamp DESC, id DESC
	LIMIT 1;
	`
	snapshot := &models.Snapshot{}
	if err := r.conn.QueryRow(ctx, q).Scan(&snapshot.ID, &snapshot.Timestamp, &snapshot.PlayerCount, &snapshot.Data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no snapshot recorded: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan snapshot: %v", err)
	}
	return snapshot, nil
}

func (r *PostgresRepository) SaveSessionEvent(ctx context.Context, event gametypes.SessionEvent) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	q := `
	INSERT INTO session_events (kind, player_id, player_count, timestamp) VALUES ($1, $2, $3, $4);
	`
	_, err := r.conn.Exec(ctx, q, string(event.Kind), event.PlayerID, event.PlayerCount, event.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert session event: %v", err)
	}
	return nil
}

func (r *PostgresRepository) ListSessionEvents(ctx context.Context, limit int) ([]*models.SessionEvent, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	q := `
	SELECT id, kind, player_id, player_count, timestamp FROM session_events
	ORDER BY id DESC
	LIMIT $1;
	`
	rows, err := r.conn.Query(ctx, q, listLimit(limit))
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
