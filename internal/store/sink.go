package store

import (
	"context"

	"github.com/Dry1ceD7/AAELink-sub002/internal/models"
)

// Sink is the persistence target for realtime traffic: message history and
// read state go to Redis, aggregate counters to the channel catalog.
type Sink struct {
	redis *RedisStore
	ds    DataStore
}

// NewSink composes the Redis history store with the channel catalog. ds may
// be nil; catalog counters are then skipped.
func NewSink(redis *RedisStore, ds DataStore) *Sink {
	return &Sink{redis: redis, ds: ds}
}

// PersistMessage stores the message and bumps the channel's catalog counters.
// A counter failure is not a persistence failure; the history write decides.
func (s *Sink) PersistMessage(ctx context.Context, env *models.Envelope) error {
	if err := s.redis.PersistMessage(ctx, env); err != nil {
		return err
	}
	if s.ds != nil {
		if ch, err := s.ds.GetChannelByName(ctx, env.ChannelID); err == nil && ch != nil {
			_ = s.ds.IncrementMessageCount(ctx, ch.ID)
		}
	}
	return nil
}

// PersistRead stores the read marker and refreshes the channel's activity
// timestamp for channel-scoped reads.
func (s *Sink) PersistRead(ctx context.Context, env *models.Envelope) error {
	if err := s.redis.PersistRead(ctx, env); err != nil {
		return err
	}
	if env.ChannelID != "" && s.ds != nil {
		if ch, err := s.ds.GetChannelByName(ctx, env.ChannelID); err == nil && ch != nil {
			_ = s.ds.UpdateChannelActivity(ctx, ch.ID)
		}
	}
	return nil
}
