package memory

import (
	"context"
	"sync"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"
	"echolink/pkg/utils"
)

// MemoryMessageStore keeps relayed messages in process memory. The
// default backend for development and tests.
type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages []*domain.Message
}

func NewMemoryMessageStore() ports.MessageStore {
	return &MemoryMessageStore{}
}

func (s *MemoryMessageStore) SaveMessage(ctx context.Context, msg *domain.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *msg
	if stored.ID == "" {
		stored.ID = utils.GenerateMessageID()
	}
	s.messages = append(s.messages, &stored)
	return stored.ID, nil
}

func (s *MemoryMessageStore) DirectMessages(ctx context.Context, a, b domain.PeerID, limit int) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Message
	for _, msg := range s.messages {
		if !msg.Direct() {
			continue
		}
		if (msg.SenderPeerID == a && msg.TargetPeerID == b) ||
			(msg.SenderPeerID == b && msg.TargetPeerID == a) {
			out = append(out, msg)
		}
	}
	return tail(out, limit), nil
}

func (s *MemoryMessageStore) RoomMessages(ctx context.Context, roomID domain.RoomID, limit int) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Message
	for _, msg := range s.messages {
		if msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	return tail(out, limit), nil
}

// tail returns the most recent limit messages, oldest first.
func tail(msgs []*domain.Message, limit int) []*domain.Message {
	if limit > 0 && len(msgs) > limit {
		return msgs[len(msgs)-limit:]
	}
	return msgs
}
