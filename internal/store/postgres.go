package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dry1ceD7/AAELink-sub002/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateChannel creates a new channel record.
func (s *PostgresStore) CreateChannel(ctx context.Context, name string, createdBy *uuid.UUID) (*models.Channel, error) {
	ch := &models.Channel{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO channels (name, created_by)
		VALUES ($1, $2)
		RETURNING id, name, created_by, created_at, last_active_at, message_count
	`, name, createdBy).Scan(
		&ch.ID,
		&ch.Name,
		&ch.CreatedBy,
		&ch.CreatedAt,
		&ch.LastActiveAt,
		&ch.MessageCount,
	)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// GetChannel retrieves a channel by ID.
func (s *PostgresStore) GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	ch := &models.Channel{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_by, created_at, last_active_at, message_count
		FROM channels WHERE id = $1
	`, id).Scan(
		&ch.ID,
		&ch.Name,
		&ch.CreatedBy,
		&ch.CreatedAt,
		&ch.LastActiveAt,
		&ch.MessageCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ch, nil
}

// GetChannelByName retrieves a channel by its unique name.
func (s *PostgresStore) GetChannelByName(ctx context.Context, name string) (*models.Channel, error) {
	ch := &models.Channel{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_by, created_at, last_active_at, message_count
		FROM channels WHERE name = $1
	`, name).Scan(
		&ch.ID,
		&ch.Name,
		&ch.CreatedBy,
		&ch.CreatedAt,
		&ch.LastActiveAt,
		&ch.MessageCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ch, nil
}

// ListChannels retrieves channels with pagination, most recently active first.
func (s *PostgresStore) ListChannels(ctx context.Context, limit, offset int) ([]models.Channel, int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM channels`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_by, created_at, last_active_at, message_count
		FROM channels
		ORDER BY last_active_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		err := rows.Scan(
			&ch.ID,
			&ch.Name,
			&ch.CreatedBy,
			&ch.CreatedAt,
			&ch.LastActiveAt,
			&ch.MessageCount,
		)
		if err != nil {
			return nil, 0, err
		}
		channels = append(channels, ch)
	}

	return channels, total, nil
}

// UpdateChannelActivity updates the last_active_at timestamp.
func (s *PostgresStore) UpdateChannelActivity(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE channels SET last_active_at = NOW() WHERE id = $1
	`, id)
	return err
}

// IncrementMessageCount increments the message count and updates activity.
func (s *PostgresStore) IncrementMessageCount(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE channels
		SET message_count = message_count + 1, last_active_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

// CountChannels returns the total number of channels.
func (s *PostgresStore) CountChannels(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM channels`).Scan(&n)
	return n, err
}

// SumMessageCount returns the total number of messages across channels.
func (s *PostgresStore) SumMessageCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(message_count), 0) FROM channels`).Scan(&n)
	return n, err
}
