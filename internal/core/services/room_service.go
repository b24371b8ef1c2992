package services

import (
	"context"
	"sync"
	"time"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"

	"go.uber.org/zap"
)

// roomService owns the live membership tables. The forward
// (room -> sessions) and reverse (session -> rooms) views are mutated
// under one lock so they always agree. A room exists only while its
// member set is non-empty.
type roomService struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]map[domain.SessionID]struct{}
	joined map[domain.SessionID]map[domain.RoomID]struct{}

	registry ports.Registry
	store    ports.RoomStore
	sender   ports.Sender
	metrics  ports.MetricsRecorder
	logger   *zap.SugaredLogger

	storeTimeout time.Duration
}

func NewRooms(registry ports.Registry, store ports.RoomStore, sender ports.Sender, metrics ports.MetricsRecorder, storeTimeout time.Duration, logger *zap.SugaredLogger) ports.Rooms {
	return &roomService{
		rooms:        make(map[domain.RoomID]map[domain.SessionID]struct{}),
		joined:       make(map[domain.SessionID]map[domain.RoomID]struct{}),
		registry:     registry,
		store:        store,
		sender:       sender,
		metrics:      metrics,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

type memberJoinedPayload struct {
	RoomID domain.RoomID `json:"groupId"`
	domain.Identity
}

type memberLeftPayload struct {
	RoomID domain.RoomID `json:"groupId"`
	domain.Identity
}

type typingPayload struct {
	RoomID domain.RoomID `json:"groupId"`
	domain.Identity
}

func (s *roomService) Create(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID, name string, initialMembers []domain.UserID) ([]domain.Identity, error) {
	sess, err := s.registry.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Identified() {
		return nil, domain.ErrNotAuthenticated
	}

	members, err := s.Join(ctx, sessionID, roomID)
	if err != nil {
		return nil, err
	}

	// Persistence is best-effort and must never hold up the in-memory
	// join; failures are logged and counted only.
	creator := sess.UserID
	go func() {
		storeCtx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
		defer cancel()

		room := &domain.Room{
			ID:        roomID,
			Name:      name,
			CreatedBy: creator,
			CreatedAt: time.Now(),
		}
		if err := s.store.SaveRoom(storeCtx, room); err != nil {
			s.metrics.RecordStorageFailure("save_room")
			s.logger.Warnw("room metadata persist failed", "room_id", roomID, "error", err)
		}
		roster := append([]domain.UserID{creator}, initialMembers...)
		for _, userID := range roster {
			if userID == "" {
				continue
			}
			if err := s.store.AddMember(storeCtx, roomID, userID); err != nil {
				s.metrics.RecordStorageFailure("add_member")
				s.logger.Warnw("room roster persist failed", "room_id", roomID, "user_id", userID, "error", err)
			}
		}
	}()

	return members, nil
}

func (s *roomService) Join(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID) ([]domain.Identity, error) {
	sess, err := s.registry.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Identified() {
		return nil, domain.ErrNotAuthenticated
	}

	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		room = make(map[domain.SessionID]struct{})
		s.rooms[roomID] = room
		s.metrics.RecordRoomCreated()
	}
	room[sessionID] = struct{}{}

	if s.joined[sessionID] == nil {
		s.joined[sessionID] = make(map[domain.RoomID]struct{})
	}
	s.joined[sessionID][roomID] = struct{}{}

	others := s.otherSessionsLocked(roomID, sessionID)
	s.mu.Unlock()

	// Member list excludes the joiner and any session mid-teardown that
	// no longer resolves to an identity.
	members := s.identities(ctx, others)

	joined := memberJoinedPayload{RoomID: roomID, Identity: sess.Identity()}
	for _, other := range others {
		_ = s.sender.Send(other, domain.EventMemberJoined, joined)
	}

	s.logger.Infow("session joined room", "session_id", sessionID, "room_id", roomID, "members", len(members))

	go s.persistMembership(roomID, sess.UserID, true)

	return members, nil
}

func (s *roomService) Leave(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID) error {
	sess, err := s.registry.Session(ctx, sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	if _, member := room[sessionID]; !member {
		s.mu.Unlock()
		return domain.ErrNotRoomMember
	}
	s.removeLocked(sessionID, roomID)
	remaining := s.otherSessionsLocked(roomID, sessionID)
	s.mu.Unlock()

	left := memberLeftPayload{RoomID: roomID, Identity: sess.Identity()}
	for _, other := range remaining {
		_ = s.sender.Send(other, domain.EventMemberLeft, left)
	}

	s.logger.Infow("session left room", "session_id", sessionID, "room_id", roomID)

	if sess.Identified() {
		go s.persistMembership(roomID, sess.UserID, false)
	}
	return nil
}

func (s *roomService) LeaveAll(ctx context.Context, sessionID domain.SessionID) []domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var roomIDs []domain.RoomID
	for roomID := range s.joined[sessionID] {
		roomIDs = append(roomIDs, roomID)
		s.removeLocked(sessionID, roomID)
	}
	return roomIDs
}

func (s *roomService) Typing(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID, started bool) error {
	sess, err := s.registry.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Identified() {
		return domain.ErrNotAuthenticated
	}
	// Advisory spoofing guard: typing only fans out for rooms the sender
	// actually joined.
	if !s.IsMember(ctx, sessionID, roomID) {
		return domain.ErrNotRoomMember
	}

	event := domain.EventMemberTypingStart
	if !started {
		event = domain.EventMemberTypingStop
	}
	s.BroadcastToRoom(ctx, roomID, event, typingPayload{RoomID: roomID, Identity: sess.Identity()}, sessionID)
	return nil
}

func (s *roomService) IsMember(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	_, member := room[sessionID]
	return member
}

func (s *roomService) BroadcastToRoom(ctx context.Context, roomID domain.RoomID, event string, payload interface{}, exclude ...domain.SessionID) {
	s.mu.RLock()
	room := s.rooms[roomID]
	targets := make([]domain.SessionID, 0, len(room))
	for sid := range room {
		skip := false
		for _, ex := range exclude {
			if sid == ex {
				skip = true
				break
			}
		}
		if !skip {
			targets = append(targets, sid)
		}
	}
	s.mu.RUnlock()

	for _, sid := range targets {
		_ = s.sender.Send(sid, event, payload)
	}
}

// removeLocked drops a membership edge from both views and destroys the
// room when it empties. Caller holds the write lock.
func (s *roomService) removeLocked(sessionID domain.SessionID, roomID domain.RoomID) {
	if room, ok := s.rooms[roomID]; ok {
		delete(room, sessionID)
		if len(room) == 0 {
			delete(s.rooms, roomID)
			s.metrics.RecordRoomDestroyed()
		}
	}
	if rooms, ok := s.joined[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(s.joined, sessionID)
		}
	}
}

func (s *roomService) otherSessionsLocked(roomID domain.RoomID, exclude domain.SessionID) []domain.SessionID {
	room := s.rooms[roomID]
	others := make([]domain.SessionID, 0, len(room))
	for sid := range room {
		if sid != exclude {
			others = append(others, sid)
		}
	}
	return others
}

func (s *roomService) identities(ctx context.Context, sessionIDs []domain.SessionID) []domain.Identity {
	members := make([]domain.Identity, 0, len(sessionIDs))
	for _, sid := range sessionIDs {
		sess, err := s.registry.Session(ctx, sid)
		if err != nil || !sess.Identified() {
			continue
		}
		members = append(members, sess.Identity())
	}
	return members
}

func (s *roomService) persistMembership(roomID domain.RoomID, userID domain.UserID, joined bool) {
	storeCtx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
	defer cancel()

	var err error
	op := "add_member"
	if joined {
		err = s.store.AddMember(storeCtx, roomID, userID)
	} else {
		op = "remove_member"
		err = s.store.RemoveMember(storeCtx, roomID, userID)
	}
	if err != nil {
		s.metrics.RecordStorageFailure(op)
		s.logger.Warnw("membership persist failed", "room_id", roomID, "user_id", userID, "op", op, "error", err)
	}
}
