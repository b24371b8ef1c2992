package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisRoomStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRoomStore(client *redis.Client) ports.RoomStore {
	return &RedisRoomStore{
		client: client,
		prefix: "echolink:room:",
	}
}

func (r *RedisRoomStore) roomKey(roomID domain.RoomID) string {
	return r.prefix + string(roomID)
}

func (r *RedisRoomStore) membersKey(roomID domain.RoomID) string {
	return fmt.Sprintf("%s%s:members", r.prefix, roomID)
}

func (r *RedisRoomStore) SaveRoom(ctx context.Context, room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}
	if err := r.client.Set(ctx, r.roomKey(room.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set room in Redis: %w", err)
	}
	return nil
}

func (r *RedisRoomStore) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	if err := r.client.SAdd(ctx, r.membersKey(roomID), string(userID)).Err(); err != nil {
		return fmt.Errorf("failed to add room member in Redis: %w", err)
	}
	return nil
}

func (r *RedisRoomStore) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	if err := r.client.SRem(ctx, r.membersKey(roomID), string(userID)).Err(); err != nil {
		return fmt.Errorf("failed to remove room member in Redis: %w", err)
	}
	return nil
}

func (r *RedisRoomStore) RoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	raw, err := r.client.SMembers(ctx, r.membersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read room members from Redis: %w", err)
	}
	members := make([]domain.UserID, 0, len(raw))
	for _, item := range raw {
		members = append(members, domain.UserID(item))
	}
	return members, nil
}
