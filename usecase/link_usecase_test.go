package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multipost/domain/model"
)

type MockInstagramLinker struct {
	mock.Mock
}

func (m *MockInstagramLinker) AuthURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *MockInstagramLinker) Callback(ctx context.Context, code string) (*model.PlatformCredential, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlatformCredential), args.Error(1)
}

type MockYouTubeLinker struct {
	mock.Mock
}

func (m *MockYouTubeLinker) AppMissing() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockYouTubeLinker) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockYouTubeLinker) Exchange(ctx context.Context, code string) (*model.PlatformCredential, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlatformCredential), args.Error(1)
}

func TestInstagramLinkFlow(t *testing.T) {
	ig := new(MockInstagramLinker)
	var issued string
	ig.On("AuthURL", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { issued = args.String(0) }).
		Return("https://facebook.test/dialog", nil)
	pageID := "p2"
	ig.On("Callback", mock.Anything, "code-1").Return(&model.PlatformCredential{Platform: model.PlatformInstagram, PageID: &pageID}, nil)

	uc := NewLinkUsecase(ig, new(MockYouTubeLinker))
	url, err := uc.InstagramAuthURL()
	require.NoError(t, err)
	assert.Equal(t, "https://facebook.test/dialog", url)
	require.NotEmpty(t, issued)

	_, err = uc.InstagramCallback(context.Background(), "code-1", "forged")
	assert.ErrorIs(t, err, ErrInvalidState)

	cred, err := uc.InstagramCallback(context.Background(), "code-1", issued)
	require.NoError(t, err)
	assert.Equal(t, "p2", model.StringValue(cred.PageID))

	// states are single use
	_, err = uc.InstagramCallback(context.Background(), "code-1", issued)
	assert.ErrorIs(t, err, ErrInvalidState)
	ig.AssertNumberOfCalls(t, "Callback", 1)
}

func TestYouTubeLinkFlow(t *testing.T) {
	yt := new(MockYouTubeLinker)
	yt.On("AppMissing").Return(nil)
	var issued string
	yt.On("AuthCodeURL", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { issued = args.String(0) }).
		Return("https://accounts.google.test/o/oauth2/auth")
	yt.On("Exchange", mock.Anything, "abc").Return(&model.PlatformCredential{Platform: model.PlatformYouTube, RefreshToken: "r"}, nil)

	uc := NewLinkUsecase(new(MockInstagramLinker), yt)
	_, err := uc.YouTubeAuthURL()
	require.NoError(t, err)

	cred, err := uc.YouTubeCallback(context.Background(), "abc", issued)
	require.NoError(t, err)
	assert.Equal(t, "r", cred.RefreshToken)
}

func TestYouTubeAuthURLRequiresClient(t *testing.T) {
	yt := new(MockYouTubeLinker)
	yt.On("AppMissing").Return([]string{"YT_CLIENT_ID"})

	_, err := NewLinkUsecase(new(MockInstagramLinker), yt).YouTubeAuthURL()
	var configErr *model.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, []string{"YT_CLIENT_ID"}, configErr.Missing)
	yt.AssertNotCalled(t, "AuthCodeURL", mock.Anything)
}

func TestStateStoreExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newStateStore(10 * time.Minute)
	s.now = func() time.Time { return now }

	state := s.Issue()
	now = now.Add(11 * time.Minute)
	assert.False(t, s.Consume(state))

	state = s.Issue()
	now = now.Add(9 * time.Minute)
	assert.True(t, s.Consume(state))
}
