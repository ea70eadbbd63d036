package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multipost/domain/dto"
	"multipost/domain/model"
)

type stubPublisher struct {
	platform model.Platform
	fn       func(ctx context.Context, req *model.PublishRequest) model.PublishOutcome
}

func (s *stubPublisher) Platform() model.Platform { return s.platform }

func (s *stubPublisher) Publish(ctx context.Context, req *model.PublishRequest) model.PublishOutcome {
	return s.fn(ctx, req)
}

func okPublisher(p model.Platform) *stubPublisher {
	return &stubPublisher{platform: p, fn: func(context.Context, *model.PublishRequest) model.PublishOutcome {
		return model.Succeeded(map[string]any{"platform": string(p)})
	}}
}

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) Append(ctx context.Context, entry *model.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistory) ReadAll(ctx context.Context) ([]model.HistoryEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HistoryEntry), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, entry *model.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastOutcome(runID string, platform string, outcome model.PublishOutcome) {
	m.Called(runID, platform, outcome)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByUserName(ctx context.Context, userName string) (model.User, error) {
	args := m.Called(ctx, userName)
	return args.Get(0).(model.User), args.Error(1)
}

type MockStatusChecker struct {
	mock.Mock
}

func (m *MockStatusChecker) Status(ctx context.Context) dto.PlatformStatus {
	args := m.Called(ctx)
	return args.Get(0).(dto.PlatformStatus)
}

func mediaFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video-bytes"), 0o600))
	return path
}
