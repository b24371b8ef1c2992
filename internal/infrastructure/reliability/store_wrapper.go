package reliability

import (
	"context"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"
	"echolink/pkg/circuitbreaker"
	"echolink/pkg/retry"

	"go.uber.org/zap"
)

// MessageStoreWrapper shields the relay from a flaky storage backend:
// writes are retried with backoff behind a circuit breaker, reads pass
// through the breaker without retry.
type MessageStoreWrapper struct {
	store  ports.MessageStore
	logger *zap.SugaredLogger

	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func NewMessageStoreWrapper(
	store ports.MessageStore,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	logger *zap.SugaredLogger,
) *MessageStoreWrapper {
	wrapper := &MessageStoreWrapper{
		store:          store,
		logger:         logger,
		retryConfig:    retryConfig,
		circuitBreaker: circuitbreaker.New(cbConfig),
	}

	wrapper.circuitBreaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Infow("message store circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})

	return wrapper
}

func (w *MessageStoreWrapper) SaveMessage(ctx context.Context, msg *domain.Message) (string, error) {
	if !w.retryConfig.Enabled {
		return w.store.SaveMessage(ctx, msg)
	}

	return retry.RetryWithResult(ctx, w.retryConfig, func() (string, error) {
		var id string
		err := w.circuitBreaker.Execute(ctx, func() error {
			var innerErr error
			id, innerErr = w.store.SaveMessage(ctx, msg)
			return innerErr
		})
		return id, err
	})
}

func (w *MessageStoreWrapper) DirectMessages(ctx context.Context, a, b domain.PeerID, limit int) ([]*domain.Message, error) {
	var msgs []*domain.Message
	err := w.circuitBreaker.Execute(ctx, func() error {
		var innerErr error
		msgs, innerErr = w.store.DirectMessages(ctx, a, b, limit)
		return innerErr
	})
	return msgs, err
}

func (w *MessageStoreWrapper) RoomMessages(ctx context.Context, roomID domain.RoomID, limit int) ([]*domain.Message, error) {
	var msgs []*domain.Message
	err := w.circuitBreaker.Execute(ctx, func() error {
		var innerErr error
		msgs, innerErr = w.store.RoomMessages(ctx, roomID, limit)
		return innerErr
	})
	return msgs, err
}

// RoomStoreWrapper applies the same retry policy to roster writes.
type RoomStoreWrapper struct {
	store       ports.RoomStore
	retryConfig retry.Config
}

func NewRoomStoreWrapper(store ports.RoomStore, retryConfig retry.Config) *RoomStoreWrapper {
	return &RoomStoreWrapper{store: store, retryConfig: retryConfig}
}

func (w *RoomStoreWrapper) SaveRoom(ctx context.Context, room *domain.Room) error {
	return retry.Retry(ctx, w.retryConfig, func() error {
		return w.store.SaveRoom(ctx, room)
	})
}

func (w *RoomStoreWrapper) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	return retry.Retry(ctx, w.retryConfig, func() error {
		return w.store.AddMember(ctx, roomID, userID)
	})
}

func (w *RoomStoreWrapper) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	return retry.Retry(ctx, w.retryConfig, func() error {
		return w.store.RemoveMember(ctx, roomID, userID)
	})
}

func (w *RoomStoreWrapper) RoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	return w.store.RoomMembers(ctx, roomID)
}
