package memory

import (
	"context"
	"sort"
	"sync"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"
)

type MemoryRoomStore struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomID]*domain.Room
	members map[domain.RoomID]map[domain.UserID]struct{}
}

func NewMemoryRoomStore() ports.RoomStore {
	return &MemoryRoomStore{
		rooms:   make(map[domain.RoomID]*domain.Room),
		members: make(map[domain.RoomID]map[domain.UserID]struct{}),
	}
}

func (s *MemoryRoomStore) SaveRoom(ctx context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *room
	s.rooms[room.ID] = &copied
	return nil
}

func (s *MemoryRoomStore) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.members[roomID] == nil {
		s.members[roomID] = make(map[domain.UserID]struct{})
	}
	s.members[roomID][userID] = struct{}{}
	return nil
}

func (s *MemoryRoomStore) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if members, ok := s.members[roomID]; ok {
		delete(members, userID)
	}
	return nil
}

func (s *MemoryRoomStore) RoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.members[roomID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.UserID, 0, len(members))
	for userID := range members {
		out = append(out, userID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
