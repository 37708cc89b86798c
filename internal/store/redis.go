package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Dry1ceD7/AAELink-sub002/internal/models"
)

const (
	messageTTL   = 24 * time.Hour
	readStateTTL = 7 * 24 * time.Hour
)

// RedisStore handles Redis operations: the fire-and-forget message history
// sink, per-channel read state, and rate limit counters.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for the rate limiter middleware.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// channelMessagesKey returns the key for a channel's message sorted set.
func channelMessagesKey(channelID string) string {
	return fmt.Sprintf("channel:%s:messages", channelID)
}

// readStateKey returns the key for a channel's read-state hash.
func readStateKey(channelID string) string {
	return fmt.Sprintf("channel:%s:read", channelID)
}

// dmReadStateKey returns the read-state key for a 1:1 conversation.
func dmReadStateKey(userID string) string {
	return fmt.Sprintf("dm:%s:read", userID)
}

// AddMessage stores a message in the channel's history.
func (s *RedisStore) AddMessage(ctx context.Context, msg *models.Message) error {
	// Generate ULID if not set
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}

	// Set timestamp if not set
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := channelMessagesKey(msg.ChannelID)

	err = s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(msg.Timestamp),
		Member: string(data),
	}).Err()
	if err != nil {
		return err
	}

	s.client.Expire(ctx, key, messageTTL)
	return nil
}

// ChannelMessages retrieves recent messages, newest first.
func (s *RedisStore) ChannelMessages(ctx context.Context, channelID string, limit int, before int64) ([]models.Message, error) {
	key := channelMessagesKey(channelID)

	var maxScore string
	if before > 0 {
		maxScore = fmt.Sprintf("(%d", before) // exclusive
	} else {
		maxScore = "+inf"
	}

	results, err := s.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   maxScore,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// MarkRead records the newest message a user has read in a channel.
func (s *RedisStore) MarkRead(ctx context.Context, channelID, userID, messageID string) error {
	key := readStateKey(channelID)
	if err := s.client.HSet(ctx, key, userID, messageID).Err(); err != nil {
		return err
	}
	s.client.Expire(ctx, key, readStateTTL)
	return nil
}

// MarkReadDirect records read state for a 1:1 conversation.
func (s *RedisStore) MarkReadDirect(ctx context.Context, readerID, peerID, messageID string) error {
	key := dmReadStateKey(peerID)
	if err := s.client.HSet(ctx, key, readerID, messageID).Err(); err != nil {
		return err
	}
	s.client.Expire(ctx, key, readStateTTL)
	return nil
}

// ReadState returns the per-user read positions of a channel.
func (s *RedisStore) ReadState(ctx context.Context, channelID string) (map[string]string, error) {
	return s.client.HGetAll(ctx, readStateKey(channelID)).Result()
}

// PersistMessage implements the router's sink for "message" envelopes.
func (s *RedisStore) PersistMessage(ctx context.Context, env *models.Envelope) error {
	var p models.MessagePayload
	if err := env.DecodeData(&p); err != nil {
		return err
	}
	msg := &models.Message{
		ID:        p.ID,
		ChannelID: env.ChannelID,
		FromID:    env.UserID,
		Body:      p.Body,
		ParentID:  p.ParentID,
	}
	if ts, err := time.Parse(time.RFC3339, env.Timestamp); err == nil {
		msg.Timestamp = ts.UnixMilli()
	}
	return s.AddMessage(ctx, msg)
}

// PersistRead implements the router's sink for "read" envelopes.
func (s *RedisStore) PersistRead(ctx context.Context, env *models.Envelope) error {
	var p models.ReadPayload
	if err := env.DecodeData(&p); err != nil {
		return err
	}
	if env.ChannelID != "" {
		return s.MarkRead(ctx, env.ChannelID, env.UserID, p.MessageID)
	}
	if p.To != "" {
		return s.MarkReadDirect(ctx, env.UserID, p.To, p.MessageID)
	}
	return models.ErrBadEnvelope
}
