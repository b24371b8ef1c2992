package services

import (
	"context"
	"errors"
	"time"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"
	"echolink/pkg/utils"

	"go.uber.org/zap"
)

// messageService constructs envelopes, hands them to the storage
// collaborator and delivers them to online recipients. The order is
// fixed: persist first (bounded by the storage timeout), then deliver,
// so a received envelope carries its persisted id whenever the write
// succeeded in time.
type messageService struct {
	registry ports.Registry
	rooms    ports.Rooms
	store    ports.MessageStore
	sender   ports.Sender
	metrics  ports.MetricsRecorder
	logger   *zap.SugaredLogger

	storeTimeout time.Duration
}

func NewMessageRelay(registry ports.Registry, rooms ports.Rooms, store ports.MessageStore, sender ports.Sender, metrics ports.MetricsRecorder, storeTimeout time.Duration, logger *zap.SugaredLogger) ports.MessageRelay {
	return &messageService{
		registry:     registry,
		rooms:        rooms,
		store:        store,
		sender:       sender,
		metrics:      metrics,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

func (s *messageService) SendDirect(ctx context.Context, senderSessionID domain.SessionID, target string, content string, msgType domain.MessageType, parentID string) (*domain.Message, error) {
	sender, err := s.registry.Session(ctx, senderSessionID)
	if err != nil {
		return nil, err
	}
	content = utils.SanitizeContent(content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}

	msg := &domain.Message{
		SenderPeerID: sender.PeerID,
		SenderUserID: sender.UserID,
		TargetPeerID: domain.PeerID(target),
		Content:      content,
		Type:         normalizeType(msgType),
		ParentID:     parentID,
		Timestamp:    time.Now(),
	}

	s.persist(ctx, msg)

	// Delivery and the sender ack are independent of both the target's
	// presence and the storage outcome.
	if targetSID, err := s.registry.ResolveSession(ctx, target); err == nil {
		if err := s.sender.Send(targetSID, domain.EventDirectMessage, msg); err != nil {
			s.logger.Debugw("direct message delivery failed", "target", target, "error", err)
		}
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}

	s.metrics.RecordMessageRelayed("direct")
	if err := s.sender.Send(senderSessionID, domain.EventDirectMessageSent, msg); err != nil {
		s.logger.Debugw("direct message ack failed", "session_id", senderSessionID, "error", err)
	}
	return msg, nil
}

func (s *messageService) SendToRoom(ctx context.Context, senderSessionID domain.SessionID, roomID domain.RoomID, content string, msgType domain.MessageType, parentID string) (*domain.Message, error) {
	sender, err := s.registry.Session(ctx, senderSessionID)
	if err != nil {
		return nil, err
	}
	if !s.rooms.IsMember(ctx, senderSessionID, roomID) {
		return nil, domain.ErrNotRoomMember
	}
	content = utils.SanitizeContent(content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}

	msg := &domain.Message{
		SenderPeerID: sender.PeerID,
		SenderUserID: sender.UserID,
		RoomID:       roomID,
		Content:      content,
		Type:         normalizeType(msgType),
		ParentID:     parentID,
		Timestamp:    time.Now(),
	}

	s.persist(ctx, msg)

	// The sender is included in the room broadcast; receiving its own
	// message back is the group-path delivery confirmation.
	s.metrics.RecordMessageRelayed("group")
	s.rooms.BroadcastToRoom(ctx, roomID, domain.EventGroupMessage, msg)
	return msg, nil
}

// persist attaches the storage id to the envelope when the write
// completes within the timeout. Failure is logged and counted, never
// surfaced: delivery proceeds with an empty id.
func (s *messageService) persist(ctx context.Context, msg *domain.Message) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	id, err := s.store.SaveMessage(storeCtx, msg)
	if err != nil {
		s.metrics.RecordStorageFailure("save_message")
		s.logger.Warnw("message persist failed",
			"sender_peer_id", msg.SenderPeerID,
			"room_id", msg.RoomID,
			"error", err,
		)
		return
	}
	msg.ID = id
}

func normalizeType(t domain.MessageType) domain.MessageType {
	if t == "" {
		return domain.MessageTypeText
	}
	return t
}
