package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/Dry1ceD7/AAELink-sub002/internal/models"
)

// DataStore defines the interface for the durable channel catalog.
// Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Channel operations
	CreateChannel(ctx context.Context, name string, createdBy *uuid.UUID) (*models.Channel, error)
	GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error)
	GetChannelByName(ctx context.Context, name string) (*models.Channel, error)
	ListChannels(ctx context.Context, limit, offset int) ([]models.Channel, int, error)
	UpdateChannelActivity(ctx context.Context, id uuid.UUID) error
	IncrementMessageCount(ctx context.Context, id uuid.UUID) error
	CountChannels(ctx context.Context) (int64, error)
	SumMessageCount(ctx context.Context) (int64, error)
}
