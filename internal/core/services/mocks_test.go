package services

import (
	"context"
	"sync"

	"echolink/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

// sentEvent records one delivery made through the fake sender.
type sentEvent struct {
	sessionID domain.SessionID
	event     string
	payload   interface{}
}

// fakeSender records sends and broadcasts for assertions.
type fakeSender struct {
	mu         sync.Mutex
	sends      []sentEvent
	broadcasts []sentEvent
	excludes   [][]domain.SessionID
	sendErr    error
}

func (f *fakeSender) Send(sessionID domain.SessionID, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentEvent{sessionID: sessionID, event: event, payload: payload})
	return f.sendErr
}

func (f *fakeSender) Broadcast(event string, payload interface{}, exclude ...domain.SessionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, sentEvent{event: event, payload: payload})
	f.excludes = append(f.excludes, exclude)
}

func (f *fakeSender) sentTo(sessionID domain.SessionID) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEvent
	for _, s := range f.sends {
		if s.sessionID == sessionID {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeSender) eventsTo(sessionID domain.SessionID, event string) []sentEvent {
	var out []sentEvent
	for _, s := range f.sentTo(sessionID) {
		if s.event == event {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeSender) broadcastsOf(event string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEvent
	for _, b := range f.broadcasts {
		if b.event == event {
			out = append(out, b)
		}
	}
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = nil
	f.broadcasts = nil
	f.excludes = nil
}

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) SaveMessage(ctx context.Context, msg *domain.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *MockMessageStore) DirectMessages(ctx context.Context, a, b domain.PeerID, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, a, b, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageStore) RoomMessages(ctx context.Context, roomID domain.RoomID, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// nopRoomStore is used where room persistence is asynchronous and not
// under test.
type nopRoomStore struct{}

func (nopRoomStore) SaveRoom(ctx context.Context, room *domain.Room) error { return nil }
func (nopRoomStore) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	return nil
}
func (nopRoomStore) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	return nil
}
func (nopRoomStore) RoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	return nil, nil
}

// nopMetrics satisfies ports.MetricsRecorder without counting.
type nopMetrics struct{}

func (nopMetrics) RecordSessionConnected()     {}
func (nopMetrics) RecordSessionDisconnected()  {}
func (nopMetrics) RecordUserOnline()           {}
func (nopMetrics) RecordUserOffline()          {}
func (nopMetrics) RecordRoomCreated()          {}
func (nopMetrics) RecordRoomDestroyed()        {}
func (nopMetrics) RecordMessageRelayed(string) {}
func (nopMetrics) RecordSignalRelayed(string)  {}
func (nopMetrics) RecordSignalDropped()        {}
func (nopMetrics) RecordStorageFailure(string) {}
