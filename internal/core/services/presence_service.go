package services

import (
	"context"
	"time"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"

	"go.uber.org/zap"
)

// presenceService derives online/offline broadcasts from registry
// mutations. It has no state of its own: the registry's identified
// sessions are the presence truth.
type presenceService struct {
	registry ports.Registry
	sender   ports.Sender
	metrics  ports.MetricsRecorder
	logger   *zap.SugaredLogger
}

func NewPresence(registry ports.Registry, sender ports.Sender, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) ports.Presence {
	return &presenceService{
		registry: registry,
		sender:   sender,
		metrics:  metrics,
		logger:   logger,
	}
}

func (p *presenceService) SessionOnline(ctx context.Context, sessionID domain.SessionID, wentOnline bool) error {
	sess, err := p.registry.Session(ctx, sessionID)
	if err != nil {
		return err
	}

	if wentOnline && sess.Identified() {
		update := domain.PresenceUpdate{
			UserID:   sess.UserID,
			PeerID:   sess.PeerID,
			UserName: sess.UserName,
			Status:   domain.StatusOnline,
			At:       time.Now(),
		}
		p.sender.Broadcast(domain.EventUserStatusChange, update, sessionID)
		p.metrics.RecordUserOnline()
		p.logger.Infow("user online", "user_id", sess.UserID, "peer_id", sess.PeerID)
	}

	// The snapshot is read after the announce mutation and excludes the
	// announcing session, so a client never sees itself online.
	snapshot := p.registry.OnlineUsers(ctx, sessionID)
	return p.sender.Send(sessionID, domain.EventOnlineUsers, snapshot)
}

func (p *presenceService) SessionOffline(ctx context.Context, released *domain.Session) {
	// Release already happened; a nil session means a duplicate
	// disconnect notification and must not broadcast again.
	if released == nil || !released.Identified() {
		return
	}

	update := domain.PresenceUpdate{
		UserID:   released.UserID,
		PeerID:   released.PeerID,
		UserName: released.UserName,
		Status:   domain.StatusOffline,
		At:       time.Now(),
	}
	p.sender.Broadcast(domain.EventUserStatusChange, update, released.ID)
	p.metrics.RecordUserOffline()
	p.logger.Infow("user offline", "user_id", released.UserID, "peer_id", released.PeerID)
}
