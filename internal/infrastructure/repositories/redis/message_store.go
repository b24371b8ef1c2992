package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"
	"echolink/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// maxConversationLength bounds every conversation list so an abandoned
// conversation cannot grow without limit.
const maxConversationLength = 10000

type RedisMessageStore struct {
	client *redis.Client
	prefix string
}

func NewRedisMessageStore(client *redis.Client) ports.MessageStore {
	return &RedisMessageStore{
		client: client,
		prefix: "echolink:",
	}
}

// directKey builds one key per unordered peer pair so both directions
// of a conversation land in the same list.
func (r *RedisMessageStore) directKey(a, b domain.PeerID) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%sdm:%s:%s", r.prefix, a, b)
}

func (r *RedisMessageStore) roomKey(roomID domain.RoomID) string {
	return fmt.Sprintf("%sroom:%s:messages", r.prefix, roomID)
}

func (r *RedisMessageStore) SaveMessage(ctx context.Context, msg *domain.Message) (string, error) {
	stored := *msg
	if stored.ID == "" {
		stored.ID = utils.GenerateMessageID()
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	var key string
	if stored.Direct() {
		key = r.directKey(stored.SenderPeerID, stored.TargetPeerID)
	} else {
		key = r.roomKey(stored.RoomID)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxConversationLength, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to append message in Redis: %w", err)
	}
	return stored.ID, nil
}

func (r *RedisMessageStore) DirectMessages(ctx context.Context, a, b domain.PeerID, limit int) ([]*domain.Message, error) {
	return r.rangeMessages(ctx, r.directKey(a, b), limit)
}

func (r *RedisMessageStore) RoomMessages(ctx context.Context, roomID domain.RoomID, limit int) ([]*domain.Message, error) {
	return r.rangeMessages(ctx, r.roomKey(roomID), limit)
}

func (r *RedisMessageStore) rangeMessages(ctx context.Context, key string, limit int) ([]*domain.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := r.client.LRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read messages from Redis: %w", err)
	}

	messages := make([]*domain.Message, 0, len(raw))
	for _, item := range raw {
		var msg domain.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			// Skip corrupted entries rather than failing the whole read.
			continue
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}
