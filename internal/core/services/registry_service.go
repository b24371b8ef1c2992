package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"

	"go.uber.org/zap"
)

// registryService holds the only authoritative copy of the
// session/peer/user mappings. All maps are mutated under one lock so
// the forward and backward views can never disagree.
type registryService struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
	byPeer   map[domain.PeerID]domain.SessionID
	byUser   map[domain.UserID]domain.SessionID

	logger *zap.SugaredLogger
}

func NewRegistry(logger *zap.SugaredLogger) ports.Registry {
	return &registryService{
		sessions: make(map[domain.SessionID]*domain.Session),
		byPeer:   make(map[domain.PeerID]domain.SessionID),
		byUser:   make(map[domain.UserID]domain.SessionID),
		logger:   logger,
	}
}

func (r *registryService) Announce(ctx context.Context, sessionID domain.SessionID, identity domain.Identity) (*ports.AnnounceResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &ports.AnnounceResult{}

	// Last announce wins: a peerId or userId held by another live
	// session without a clean disconnect is taken over, and the stale
	// session is evicted wholesale so a later release of it is a no-op.
	if identity.PeerID != "" {
		if staleID, ok := r.byPeer[identity.PeerID]; ok && staleID != sessionID {
			result.Superseded = r.evictLocked(staleID)
		}
	}
	if identity.UserID != "" {
		if staleID, ok := r.byUser[identity.UserID]; ok && staleID != sessionID {
			if stale := r.evictLocked(staleID); result.Superseded == nil {
				result.Superseded = stale
			}
		}
	}

	sess, ok := r.sessions[sessionID]
	if !ok {
		sess = &domain.Session{
			ID:          sessionID,
			ConnectedAt: time.Now(),
		}
		r.sessions[sessionID] = sess
	}

	result.WentOnline = identity.UserID != "" && !sess.Identified()

	// Re-announce with a different peerId drops the old mapping.
	if sess.PeerID != "" && sess.PeerID != identity.PeerID {
		delete(r.byPeer, sess.PeerID)
	}
	if sess.UserID != "" && identity.UserID != "" && sess.UserID != identity.UserID {
		delete(r.byUser, sess.UserID)
	}

	sess.PeerID = identity.PeerID
	if identity.UserID != "" {
		sess.UserID = identity.UserID
	}
	if identity.UserName != "" {
		sess.UserName = identity.UserName
	}
	if identity.AvatarURL != "" {
		sess.AvatarURL = identity.AvatarURL
	}
	sess.AnnouncedAt = time.Now()

	if sess.PeerID != "" {
		r.byPeer[sess.PeerID] = sessionID
	}
	if sess.UserID != "" {
		r.byUser[sess.UserID] = sessionID
	}

	r.logger.Infow("session announced",
		"session_id", sessionID,
		"peer_id", sess.PeerID,
		"user_id", sess.UserID,
		"went_online", result.WentOnline,
		"superseded", result.Superseded != nil,
	)

	return result, nil
}

// evictLocked removes a stale session and all its mappings. Caller
// holds the write lock.
func (r *registryService) evictLocked(sessionID domain.SessionID) *domain.Session {
	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(r.sessions, sessionID)
	if sess.PeerID != "" && r.byPeer[sess.PeerID] == sessionID {
		delete(r.byPeer, sess.PeerID)
	}
	if sess.UserID != "" && r.byUser[sess.UserID] == sessionID {
		delete(r.byUser, sess.UserID)
	}
	return sess
}

func (r *registryService) ResolveSession(ctx context.Context, identifier string) (domain.SessionID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if sid, ok := r.byPeer[domain.PeerID(identifier)]; ok {
		return sid, nil
	}
	if sid, ok := r.byUser[domain.UserID(identifier)]; ok {
		return sid, nil
	}
	return "", domain.ErrSessionNotFound
}

func (r *registryService) Session(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := *sess
	return &copied, nil
}

func (r *registryService) Release(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.evictLocked(sessionID)
	if sess == nil {
		return nil, domain.ErrSessionNotFound
	}

	r.logger.Infow("session released",
		"session_id", sessionID,
		"peer_id", sess.PeerID,
		"user_id", sess.UserID,
	)
	return sess, nil
}

func (r *registryService) OnlineUsers(ctx context.Context, exclude domain.SessionID) []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.Identity, 0, len(r.byUser))
	for userID, sid := range r.byUser {
		if sid == exclude {
			continue
		}
		sess, ok := r.sessions[sid]
		if !ok || sess.UserID != userID {
			continue
		}
		users = append(users, sess.Identity())
	}

	// Stable order makes snapshots deterministic for clients and tests.
	sort.Slice(users, func(i, j int) bool {
		return users[i].UserID < users[j].UserID
	})
	return users
}
