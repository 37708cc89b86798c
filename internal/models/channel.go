package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel represents a named group-communication scope in the catalog.
// Live membership is owned by the hub; the catalog holds durable metadata.
type Channel struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	CreatedBy    *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	MessageCount int64      `json:"message_count"`
}
