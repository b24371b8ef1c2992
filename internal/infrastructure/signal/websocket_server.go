package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"
	"echolink/internal/core/services"
	apperrors "echolink/pkg/errors"
	"echolink/pkg/utils"
	"echolink/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Options holds the transport tunables of the websocket server.
type Options struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Per-connection inbound rate limit. Zero disables it.
	MessagesPerSecond float64
	MessageBurst      int
	MaxMessageSize    int64
}

// DefaultOptions mirror the signal section defaults of the config file.
func DefaultOptions() Options {
	return Options{
		PingInterval: 30 * time.Second,
		PongTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// connection pairs a socket with its write lock. gorilla/websocket
// allows at most one concurrent writer per connection.
type connection struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	limiter *rate.Limiter
}

func (c *connection) writeJSON(timeout time.Duration, v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteJSON(v)
}

func (c *connection) writePing(timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// WebSocketServer owns the connection lifecycle: it assigns session
// ids, dispatches inbound events to the core services and delivers
// outbound events for them. It implements ports.Sender.
type WebSocketServer struct {
	registry ports.Registry
	presence ports.Presence
	rooms    ports.Rooms
	signals  ports.SignalRouter
	messages ports.MessageRelay
	auth     services.AuthService
	metrics  ports.MetricsRecorder

	connections map[domain.SessionID]*connection
	mu          sync.RWMutex

	opts   Options
	logger *zap.SugaredLogger
}

// NewWebSocketServer builds the transport without its core services.
// The server is the ports.Sender the services are constructed with, so
// wiring happens in two steps: build the server, build the services on
// top of it, then Bind.
func NewWebSocketServer(auth services.AuthService, metrics ports.MetricsRecorder, opts Options, logger *zap.SugaredLogger) *WebSocketServer {
	return &WebSocketServer{
		auth:        auth,
		metrics:     metrics,
		connections: make(map[domain.SessionID]*connection),
		opts:        opts,
		logger:      logger,
	}
}

// Bind attaches the core services. Must be called before the first
// connection is accepted.
func (s *WebSocketServer) Bind(
	registry ports.Registry,
	presence ports.Presence,
	rooms ports.Rooms,
	signals ports.SignalRouter,
	messages ports.MessageRelay,
) {
	s.registry = registry
	s.presence = presence
	s.rooms = rooms
	s.signals = signals
	s.messages = messages
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := domain.SessionID(utils.GenerateSessionID())

	c := &connection{conn: conn}
	if s.opts.MessagesPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.MessageBurst)
	}
	if s.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(s.opts.MaxMessageSize)
	}

	s.mu.Lock()
	s.connections[sessionID] = c
	s.mu.Unlock()

	s.metrics.RecordSessionConnected()
	s.logger.Infow("session connected", "session_id", sessionID, "remote_addr", r.RemoteAddr)

	conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.opts.PingInterval)
	defer pingTicker.Stop()

	eventChan := make(chan Event, 16)
	errorChan := make(chan error, 1)

	go func() {
		for {
			var evt Event
			if err := conn.ReadJSON(&evt); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
			eventChan <- evt
		}
	}()

	for {
		select {
		case evt := <-eventChan:
			if c.limiter != nil && !c.limiter.Allow() {
				s.logger.Warnw("inbound rate limit exceeded", "session_id", sessionID, "event", evt.Type)
				s.sendError(sessionID, apperrors.ErrCodeRateLimit, "rate limit exceeded")
				continue
			}
			if err := s.handleEvent(context.Background(), sessionID, evt); err != nil {
				s.logger.Infow("event handling failed", "session_id", sessionID, "event", evt.Type, "error", err)
				s.sendError(sessionID, errorCode(err), err.Error())
			}

		case <-pingTicker.C:
			if err := c.writePing(s.opts.WriteTimeout); err != nil {
				s.logger.Infow("ping failed", "session_id", sessionID, "error", err)
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("read failed", "session_id", sessionID, "error", err)
			}
			goto cleanup
		}
	}

cleanup:
	s.unregister(sessionID, c)

	ctx := context.Background()

	// Release first so the identity is captured before any broadcast.
	// A superseded session is already gone from the registry; its
	// release misses and nothing further is announced for it.
	released, err := s.registry.Release(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.logger.Warnw("session release failed", "session_id", sessionID, "error", err)
	}

	s.presence.SessionOffline(ctx, released)
	s.rooms.LeaveAll(ctx, sessionID)

	s.metrics.RecordSessionDisconnected()
	s.logger.Infow("session disconnected", "session_id", sessionID)
}

func (s *WebSocketServer) handleEvent(ctx context.Context, sessionID domain.SessionID, evt Event) error {
	if evt.Type == "" {
		return apperrors.NewInvalidInputError("event type is required")
	}

	switch evt.Type {
	case domain.EventUserConnected:
		return s.handleAnnounce(ctx, sessionID, evt)
	case domain.EventSendDirectMessage:
		return s.handleDirectMessage(ctx, sessionID, evt)
	case string(domain.SignalOffer), string(domain.SignalAnswer), string(domain.SignalCandidate):
		return s.handlePeerSignal(ctx, sessionID, evt)
	case domain.EventCreateGroup:
		return s.handleCreateGroup(ctx, sessionID, evt)
	case domain.EventJoinGroup:
		return s.handleJoinGroup(ctx, sessionID, evt)
	case domain.EventLeaveGroup:
		return s.handleLeaveGroup(ctx, sessionID, evt)
	case domain.EventSendGroupMessage:
		return s.handleGroupMessage(ctx, sessionID, evt)
	case domain.EventSendGroupSignal:
		return s.handleGroupSignal(ctx, sessionID, evt)
	case domain.EventStartTypingGroup:
		return s.handleTyping(ctx, sessionID, evt, true)
	case domain.EventStopTypingGroup:
		return s.handleTyping(ctx, sessionID, evt, false)
	default:
		return apperrors.NewInvalidInputError(fmt.Sprintf("unknown event type: %s", evt.Type))
	}
}

func (s *WebSocketServer) handleAnnounce(ctx context.Context, sessionID domain.SessionID, evt Event) error {
	var payload AnnouncePayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return apperrors.NewInvalidInputError("invalid user_connected payload")
	}
	if err := validation.ValidatePeerID(payload.PeerID); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	if err := validation.ValidateUserID(payload.UserID); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	if err := validation.ValidateUserName(payload.UserName); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}

	identity := domain.Identity{
		PeerID:    domain.PeerID(payload.PeerID),
		UserID:    domain.UserID(payload.UserID),
		UserName:  payload.UserName,
		AvatarURL: payload.AvatarURL,
	}

	// A token, when presented, overrides the self-declared identity.
	if payload.Token != "" {
		claims, err := s.auth.ValidateToken(payload.Token)
		if err != nil {
			return apperrors.NewUnauthenticatedError(err.Error())
		}
		identity.UserID = claims.UserID
		if claims.UserName != "" {
			identity.UserName = claims.UserName
		}
	}

	result, err := s.registry.Announce(ctx, sessionID, identity)
	if err != nil {
		return err
	}

	if result.Superseded != nil {
		s.logger.Infow("session superseded",
			"session_id", result.Superseded.ID,
			"peer_id", identity.PeerID,
			"new_session_id", sessionID,
		)
		s.dropConnection(result.Superseded.ID)
	}

	return s.presence.SessionOnline(ctx, sessionID, result.WentOnline)
}

func (s *WebSocketServer) handleDirectMessage(ctx context.Context, sessionID domain.SessionID, evt Event) error {
	var payload DirectMessagePayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return apperrors.NewInvalidInputError("invalid send_direct_message payload")
	}
	if payload.TargetPeerID == "" {
		return apperrors.NewInvalidInputError("targetPeerId is required")
	}

	msgType := domain.MessageType(payload.Type)
	if msgType == "" {
		msgType = domain.MessageTypeText
	}

	_, err := s.messages.SendDirect(ctx, sessionID, payload.TargetPeerID, payload.Message, msgType, payload.ParentMessageID)
	return err
}

func (s *WebSocketServer) handlePeerSignal(ctx context.Context, sessionID domain.SessionID, evt Event) error {
	var payload PeerSignalPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return apperrors.NewInvalidInputError(fmt.Sprintf("invalid %s payload", evt.Type))
	}
	if payload.TargetPeerID == "" {
		return apperrors.NewInvalidInputError("targetPeerId is required")
	}

	return s.signals.Relay(ctx, sessionID, domain.SignalType(evt.Type), payload.TargetPeerID, payload.SDP, payload.Candidate)
}

func (s *WebSocketServer) handleCreateGroup(ctx context.Context, sessionID domain.SessionID, evt Event) error {
	var payload GroupPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return apperrors.NewInvalidInputError("invalid create_group payload")
	}
	if err := validation.ValidateRoomID(payload.GroupID); err != nil {
		s.ack(sessionID, evt.Ref, AckPayload{Success: false, GroupID: payload.GroupID, Error: err.Error()})
		return nil
	}

	initial := make([]domain.UserID, 0, len(payload.InitialMembers))
	for _, m := range payload.InitialMembers {
		initial = append(initial, domain.UserID(m))
	}

	members, err := s.rooms.Create(ctx, sessionID, domain.RoomID(payload.GroupID), payload.GroupName, initial)
	if err != nil {
		s.ack(sessionID, evt.Ref, AckPayload{Success: false, GroupID: payload.GroupID, Error: err.Error()})
		return nil
	}

	s.ack(sessionID, evt.Ref, AckPayload{Success: true, GroupID: payload.GroupID, Members: members})
	return nil
}

func (s *WebSocketServer) handleJoinGroup(ctx context.Context, sessionID domain.SessionID, evt Event) error {
	var payload GroupPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return apperrors.NewInvalidInputError("invalid join_group payload")
	}
	if err := validation.ValidateRoomID(payload.GroupID); err != nil {
		s.ack(sessionID, evt.Ref, AckPayload{Success: false, GroupID: payload.GroupID, Error: err.Error()})
		return nil
	}

	members, err := s.rooms.Join(ctx, sessionID, domain.RoomID(payload.GroupID))
	if err != nil {
		s.ack(sessionID, evt.Ref, AckPayload{Success: false, GroupID: payload.GroupID, Error: err.Error()})
		return nil
	}

	s.ack(sessionID, evt.Ref, AckPayload{Success: true, GroupID: payload.GroupID, Members: members})
	return nil
}

func (s *WebSocketServer) handleLeaveGroup(ctx context.Context, sessionID domain.SessionID, evt Event) error {
	var payload GroupPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return apperrors.NewInvalidInputError("invalid leave_group payload")
	}

	if err := s.rooms.Leave(ctx, sessionID, domain.RoomID(payload.GroupID)); err != nil {
		s.ack(sessionID, evt.Ref, AckPayload{Success: false, GroupID: payload.GroupID, Error: err.Error()})
		return nil
	}

	s.ack(sessionID, evt.Ref, AckPayload{Success: true, GroupID: payload.GroupID})
	return nil
}

func (s *WebSocketServer) handleGroupMessage(ctx context.Context, sessionID domain.SessionID, evt Event) error {
	var payload GroupMessagePayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return apperrors.NewInvalidInputError("invalid send_group_message payload")
	}
	if payload.GroupID == "" {
		return apperrors.NewInvalidInputError("groupId is required")
	}

	msgType := domain.MessageType(payload.Type)
	if msgType == "" {
		msgType = domain.MessageTypeText
	}

	_, err := s.messages.SendToRoom(ctx, sessionID, domain.RoomID(payload.GroupID), payload.Message, msgType, payload.ParentMessageID)
	return err
}

func (s *WebSocketServer) handleGroupSignal(ctx context.Context, sessionID domain.SessionID, evt Event) error {
	var payload GroupSignalPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return apperrors.NewInvalidInputError("invalid send_group_signal payload")
	}
	if payload.GroupID == "" {
		return apperrors.NewInvalidInputError("groupId is required")
	}
	if payload.SignalType == "" {
		return apperrors.NewInvalidInputError("signalType is required")
	}

	return s.signals.RelayToRoom(ctx, sessionID, domain.RoomID(payload.GroupID), payload.SignalType, payload.SignalData)
}

func (s *WebSocketServer) handleTyping(ctx context.Context, sessionID domain.SessionID, evt Event, started bool) error {
	var payload GroupPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return apperrors.NewInvalidInputError("invalid typing payload")
	}
	if payload.GroupID == "" {
		return apperrors.NewInvalidInputError("groupId is required")
	}

	return s.rooms.Typing(ctx, sessionID, domain.RoomID(payload.GroupID), started)
}

// Send implements ports.Sender for a single session.
func (s *WebSocketServer) Send(sessionID domain.SessionID, event string, payload interface{}) error {
	return s.writeEvent(sessionID, Event{Type: event}, payload)
}

// Broadcast implements ports.Sender for every live session except the
// excluded ones. Individual write failures are logged and skipped; the
// failing connection's own read loop tears it down.
func (s *WebSocketServer) Broadcast(event string, payload interface{}, exclude ...domain.SessionID) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Errorw("broadcast payload marshal failed", "event", event, "error", err)
		return
	}
	evt := Event{Type: event, Payload: raw}

	skip := make(map[domain.SessionID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	type target struct {
		id domain.SessionID
		c  *connection
	}

	s.mu.RLock()
	targets := make([]target, 0, len(s.connections))
	for id, c := range s.connections {
		if _, excluded := skip[id]; excluded {
			continue
		}
		targets = append(targets, target{id: id, c: c})
	}
	s.mu.RUnlock()

	for _, t := range targets {
		if err := t.c.writeJSON(s.opts.WriteTimeout, evt); err != nil {
			s.logger.Debugw("broadcast write failed", "session_id", t.id, "event", event, "error", err)
		}
	}
}

// ConnectionCount is used by the health endpoint and tests.
func (s *WebSocketServer) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// Shutdown closes every live connection. Each handler goroutine then
// runs its own cleanup path.
func (s *WebSocketServer) Shutdown() {
	s.mu.RLock()
	conns := make([]*connection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		c.conn.Close()
	}
}

func (s *WebSocketServer) ack(sessionID domain.SessionID, ref string, payload AckPayload) {
	if err := s.writeEvent(sessionID, Event{Type: domain.EventAck, Ref: ref}, payload); err != nil {
		s.logger.Debugw("ack write failed", "session_id", sessionID, "error", err)
	}
}

func (s *WebSocketServer) sendError(sessionID domain.SessionID, code apperrors.ErrorCode, message string) {
	payload := ErrorPayload{Code: string(code), Message: message}
	if err := s.writeEvent(sessionID, Event{Type: domain.EventError}, payload); err != nil {
		s.logger.Debugw("error write failed", "session_id", sessionID, "error", err)
	}
}

func (s *WebSocketServer) writeEvent(sessionID domain.SessionID, evt Event, payload interface{}) error {
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", evt.Type, err)
		}
		evt.Payload = raw
	}

	s.mu.RLock()
	c, ok := s.connections[sessionID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %s not connected", sessionID)
	}

	return c.writeJSON(s.opts.WriteTimeout, evt)
}

// dropConnection force-closes a superseded session's socket. Its
// handler goroutine observes the close and runs the normal cleanup,
// which finds the registry entry already evicted.
func (s *WebSocketServer) dropConnection(sessionID domain.SessionID) {
	s.mu.Lock()
	c, ok := s.connections[sessionID]
	delete(s.connections, sessionID)
	s.mu.Unlock()

	if ok {
		c.conn.Close()
	}
}

// unregister removes the connection on disconnect. The entry is left
// alone when a reconnect already replaced it.
func (s *WebSocketServer) unregister(sessionID domain.SessionID, c *connection) {
	s.mu.Lock()
	if current, ok := s.connections[sessionID]; ok && current == c {
		delete(s.connections, sessionID)
	}
	s.mu.Unlock()
}

func errorCode(err error) apperrors.ErrorCode {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr.Code
	}
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return apperrors.ErrCodeUnauthenticated
	case errors.Is(err, domain.ErrNotRoomMember):
		return apperrors.ErrCodeNotAMember
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrRoomNotFound):
		return apperrors.ErrCodeNotFound
	case errors.Is(err, domain.ErrEmptyContent):
		return apperrors.ErrCodeInvalidInput
	}
	return apperrors.ErrCodeInternal
}
