package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Dry1ceD7/AAELink-sub002/internal/models"
)

// SQLiteStore handles SQLite database operations. It backs local development
// and single-node deployments where Postgres is not configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/realtime.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/realtime.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		created_by TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_active_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		message_count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_channels_last_active ON channels(last_active_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateChannel creates a new channel record.
func (s *SQLiteStore) CreateChannel(ctx context.Context, name string, createdBy *uuid.UUID) (*models.Channel, error) {
	id := uuid.New()
	var creator interface{}
	if createdBy != nil {
		creator = createdBy.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (id, name, created_by) VALUES (?, ?, ?)
	`, id.String(), name, creator)
	if err != nil {
		return nil, err
	}
	return s.GetChannel(ctx, id)
}

// GetChannel retrieves a channel by ID.
func (s *SQLiteStore) GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	return s.scanChannel(s.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, created_at, last_active_at, message_count
		FROM channels WHERE id = ?
	`, id.String()))
}

// GetChannelByName retrieves a channel by its unique name.
func (s *SQLiteStore) GetChannelByName(ctx context.Context, name string) (*models.Channel, error) {
	return s.scanChannel(s.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, created_at, last_active_at, message_count
		FROM channels WHERE name = ?
	`, name))
}

func (s *SQLiteStore) scanChannel(row *sql.Row) (*models.Channel, error) {
	var (
		idStr      string
		name       string
		creatorStr sql.NullString
		createdAt  time.Time
		lastActive time.Time
		count      int64
	)
	err := row.Scan(&idStr, &name, &creatorStr, &createdAt, &lastActive, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	ch := &models.Channel{
		ID:           id,
		Name:         name,
		CreatedAt:    createdAt,
		LastActiveAt: lastActive,
		MessageCount: count,
	}
	if creatorStr.Valid {
		if creator, err := uuid.Parse(creatorStr.String); err == nil {
			ch.CreatedBy = &creator
		}
	}
	return ch, nil
}

// ListChannels retrieves channels with pagination, most recently active first.
func (s *SQLiteStore) ListChannels(ctx context.Context, limit, offset int) ([]models.Channel, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_by, created_at, last_active_at, message_count
		FROM channels
		ORDER BY last_active_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var (
			idStr      string
			name       string
			creatorStr sql.NullString
			createdAt  time.Time
			lastActive time.Time
			count      int64
		)
		if err := rows.Scan(&idStr, &name, &creatorStr, &createdAt, &lastActive, &count); err != nil {
			return nil, 0, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		ch := models.Channel{
			ID:           id,
			Name:         name,
			CreatedAt:    createdAt,
			LastActiveAt: lastActive,
			MessageCount: count,
		}
		if creatorStr.Valid {
			if creator, err := uuid.Parse(creatorStr.String); err == nil {
				ch.CreatedBy = &creator
			}
		}
		channels = append(channels, ch)
	}

	return channels, total, nil
}

// UpdateChannelActivity updates the last_active_at timestamp.
func (s *SQLiteStore) UpdateChannelActivity(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE channels SET last_active_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id.String())
	return err
}

// IncrementMessageCount increments the message count and updates activity.
func (s *SQLiteStore) IncrementMessageCount(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE channels
		SET message_count = message_count + 1, last_active_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id.String())
	return err
}

// CountChannels returns the total number of channels.
func (s *SQLiteStore) CountChannels(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&n)
	return n, err
}

// SumMessageCount returns the total number of messages across channels.
func (s *SQLiteStore) SumMessageCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(message_count), 0) FROM channels`).Scan(&n)
	return n, err
}
