package repositories

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	gametypes "github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/repositories/models"
)

const (
	// DefaultListLimit caps ListSessionEvents when no limit is given
	DefaultListLimit = 100
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Repository stores the flight recorder: periodic snapshots of the player
// table and the log of joins and leaves. Nothing is ever read back into a
// live session.
type Repository interface {
	Close(ctx context.Context) error
	SaveSnapshot(ctx context.Context, timestamp int64, playerCount int, data []byte) error
	// LoadLatestSnapshot returns ErrNotFound when nothing has been recorded.
	LoadLatestSnapshot(ctx context.Context) (*models.Snapshot, error)
	SaveSessionEvent(ctx context.Context, event gametypes.SessionEvent) error
	// ListSessionEvents returns up to limit events, newest first.
	ListSessionEvents(ctx context.Context, limit int) ([]*models.SessionEvent, error)
}

// NewRepository opens the repository named by connStr, either
// sqlite://path or postgresql://..., and applies the migrations found in
// migrationsDir/<driver>.
func NewRepository(ctx context.Context, connStr string, migrationsDir string) (Repository, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %v", err)
	}

	switch u.Scheme {
	case "sqlite":
		path := u.Host + u.Path
		if path == "" {
			return nil, fmt.Errorf("sqlite connection string has no path: %s", connStr)
		}
		return NewSQLiteRepository(ctx, path, filepath.Join(migrationsDir, "sqlite"))
	case "postgres", "postgresql":
		return NewPostgresRepository(ctx, u.String(), filepath.Join(migrationsDir, "postgres"))
	default:
		return nil, fmt.Errorf("unknown database type %s", u.Scheme)
	}
}

// readMigrations returns the .sql files of dir in lexical order.
func readMigrations(dir string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", path, err)
		}
		migrations = append(migrations, migration{path: path, sql: string(b)})
	}
	return migrations, nil
}

type migration struct {
	path string
	sql  string
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
