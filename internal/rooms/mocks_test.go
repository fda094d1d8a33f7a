package rooms_test

import (
	"callgate/backend/internal/media"
	"callgate/backend/internal/models"
	"callgate/backend/internal/notify"
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) ListUsersExcept(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserSummary), args.Error(1)
}

func (m *MockStore) CreateSessionIfAbsent(ctx context.Context, session *models.CallSession) (bool, error) {
	args := m.Called(ctx, session)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) GetSessionByRoom(ctx context.Context, roomName string) (*models.CallSession, error) {
	args := m.Called(ctx, roomName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CallSession), args.Error(1)
}

func (m *MockStore) EnableRecording(ctx context.Context, roomName string) (int64, error) {
	args := m.Called(ctx, roomName)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) EndSession(ctx context.Context, roomName string, endedAt time.Time) (int64, error) {
	args := m.Called(ctx, roomName, endedAt)
	return args.Get(0).(int64), args.Error(1)
}

type MockMinter struct {
	mock.Mock
}

func (m *MockMinter) Mint(grant media.Grant) (string, error) {
	args := m.Called(grant)
	return args.String(0), args.Error(1)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []notify.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Event(nil), p.events...)
}
