package services

import (
	"context"
	"encoding/json"
	"errors"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"

	"go.uber.org/zap"
)

// signalService is a pure relay. It keeps no state of its own and
// never looks inside SDP or candidate data.
type signalService struct {
	registry ports.Registry
	rooms    ports.Rooms
	sender   ports.Sender
	metrics  ports.MetricsRecorder
	logger   *zap.SugaredLogger
}

func NewSignalRouter(registry ports.Registry, rooms ports.Rooms, sender ports.Sender, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) ports.SignalRouter {
	return &signalService{
		registry: registry,
		rooms:    rooms,
		sender:   sender,
		metrics:  metrics,
		logger:   logger,
	}
}

type roomSignalPayload struct {
	RoomID       domain.RoomID   `json:"groupId"`
	SignalType   string          `json:"signalType"`
	SignalData   json.RawMessage `json:"signalData,omitempty"`
	SenderPeerID domain.PeerID   `json:"senderPeerId"`
	SenderUserID domain.UserID   `json:"senderUserId,omitempty"`
}

func (s *signalService) Relay(ctx context.Context, senderSessionID domain.SessionID, signalType domain.SignalType, target string, sdp, candidate json.RawMessage) error {
	sender, err := s.registry.Session(ctx, senderSessionID)
	if err != nil {
		return err
	}

	targetSID, err := s.registry.ResolveSession(ctx, target)
	if errors.Is(err, domain.ErrSessionNotFound) {
		// Target offline: negotiation is time-sensitive, so the signal is
		// dropped without retry or queueing.
		s.metrics.RecordSignalDropped()
		s.logger.Debugw("signal dropped, target offline",
			"signal_type", signalType,
			"sender_peer_id", sender.PeerID,
			"target", target,
		)
		return nil
	}
	if err != nil {
		return err
	}

	signal := domain.Signal{
		Type:         signalType,
		SenderPeerID: sender.PeerID,
		SenderUserID: sender.UserID,
		SDP:          sdp,
		Candidate:    candidate,
	}

	s.metrics.RecordSignalRelayed(string(signalType))
	s.logger.Debugw("routing signal",
		"signal_type", signalType,
		"sender_peer_id", sender.PeerID,
		"target", target,
	)
	return s.sender.Send(targetSID, string(signalType), signal)
}

func (s *signalService) RelayToRoom(ctx context.Context, senderSessionID domain.SessionID, roomID domain.RoomID, signalType string, data json.RawMessage) error {
	sender, err := s.registry.Session(ctx, senderSessionID)
	if err != nil {
		return err
	}
	if !s.rooms.IsMember(ctx, senderSessionID, roomID) {
		return domain.ErrNotRoomMember
	}

	payload := roomSignalPayload{
		RoomID:       roomID,
		SignalType:   signalType,
		SignalData:   data,
		SenderPeerID: sender.PeerID,
		SenderUserID: sender.UserID,
	}

	s.metrics.RecordSignalRelayed(signalType)
	s.rooms.BroadcastToRoom(ctx, roomID, domain.EventGroupSignal, payload, senderSessionID)
	return nil
}
