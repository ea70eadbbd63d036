package youtube_test

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multipost/domain/model"
	"multipost/infrastructure/clients/youtube"
	"multipost/infrastructure/configuration"
)

type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Get(ctx context.Context, platform model.Platform) (*model.PlatformCredential, error) {
	args := m.Called(ctx, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlatformCredential), args.Error(1)
}

func (m *MockCredentialStore) Put(ctx context.Context, cred *model.PlatformCredential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

type fakeGoogle struct {
	server   *httptest.Server
	metadata map[string]any
	media    []byte
	status   int
	body     string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	f := &fakeGoogle{status: http.StatusOK, body: `{"id":"vid123","kind":"youtube#video"}`}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`)
		case strings.HasSuffix(r.URL.Path, "/youtube/v3/videos"):
			assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
			f.readMultipart(t, r)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) readMultipart(t *testing.T, r *http.Request) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(mediaType, "multipart/"))
	reader := multipart.NewReader(r.Body, params["boundary"])

	part, err := reader.NextPart()
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(part).Decode(&f.metadata))

	part, err = reader.NextPart()
	require.NoError(t, err)
	f.media, err = io.ReadAll(part)
	require.NoError(t, err)
}

func (f *fakeGoogle) config() configuration.YouTube {
	return configuration.YouTube{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh",
		TokenURL:     f.server.URL + "/token",
		APIEndpoint:  f.server.URL + "/",
	}
}

func writeMedia(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake video bytes"), 0o600))
	return path
}

func TestPublishUploadsPrivateVideo(t *testing.T) {
	fake := newFakeGoogle(t)
	cfg := fake.config()
	client := youtube.NewYouTubeClient(cfg, youtube.NewTokenProvider(cfg, nil))

	out := client.Publish(context.Background(), &model.PublishRequest{
		FilePath: writeMedia(t),
		Caption:  "hello world",
		Title:    "My clip",
		Tags:     []string{" x ", "", "y"},
	})

	require.True(t, out.OK, "outcome: %+v", out)
	assert.Equal(t, "vid123", out.Result["videoId"])
	assert.Equal(t, "https://studio.youtube.com/video/vid123/edit", out.Result["url"])
	assert.Equal(t, []byte("fake video bytes"), fake.media)

	snippet := fake.metadata["snippet"].(map[string]any)
	assert.Equal(t, "My clip", snippet["title"])
	assert.Equal(t, "hello world", snippet["description"])
	assert.Equal(t, []any{"x", "y"}, snippet["tags"])
	status := fake.metadata["status"].(map[string]any)
	assert.Equal(t, "private", status["privacyStatus"])
	assert.Equal(t, false, status["selfDeclaredMadeForKids"])
}

func TestPublishOmitsBlankTags(t *testing.T) {
	fake := newFakeGoogle(t)
	cfg := fake.config()
	client := youtube.NewYouTubeClient(cfg, youtube.NewTokenProvider(cfg, nil))

	out := client.Publish(context.Background(), &model.PublishRequest{
		FilePath: writeMedia(t),
		Tags:     []string{" ", ""},
	})

	require.True(t, out.OK)
	snippet := fake.metadata["snippet"].(map[string]any)
	_, hasTags := snippet["tags"]
	assert.False(t, hasTags)
	assert.True(t, strings.HasPrefix(snippet["title"].(string), "upload - "))
}

func TestPublishSurfacesVendorBody(t *testing.T) {
	fake := newFakeGoogle(t)
	fake.status = http.StatusForbidden
	fake.body = `{"error":{"code":403,"message":"quotaExceeded"}}`
	cfg := fake.config()
	client := youtube.NewYouTubeClient(cfg, youtube.NewTokenProvider(cfg, nil))

	out := client.Publish(context.Background(), &model.PublishRequest{FilePath: writeMedia(t)})

	require.False(t, out.OK)
	assert.JSONEq(t, fake.body, string(out.Error.(json.RawMessage)))
	assert.Equal(t, "upload", out.Detail["stage"])
	assert.Equal(t, http.StatusForbidden, out.Detail["status"])
}

func TestPublishWithoutRefreshTokenFailsFast(t *testing.T) {
	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformYouTube).Return(nil, model.ErrCredentialNotFound)
	cfg := configuration.YouTube{ClientID: "client", ClientSecret: "secret", APIEndpoint: "http://127.0.0.1:1/"}
	client := youtube.NewYouTubeClient(cfg, youtube.NewTokenProvider(cfg, store))

	out := client.Publish(context.Background(), &model.PublishRequest{FilePath: writeMedia(t)})

	require.False(t, out.OK)
	assert.Equal(t, "config", out.Detail["stage"])
	assert.Equal(t, []string{"YT_REFRESH_TOKEN"}, out.Detail["missing"])
	store.AssertExpectations(t)
}

func TestRefreshTokenFallsBackToStore(t *testing.T) {
	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformYouTube).
		Return(&model.PlatformCredential{Platform: model.PlatformYouTube, RefreshToken: "stored"}, nil)
	tokens := youtube.NewTokenProvider(configuration.YouTube{}, store)

	rt, err := tokens.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored", rt)
}

func TestStatus(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		fake := newFakeGoogle(t)
		cfg := fake.config()
		st := youtube.NewYouTubeClient(cfg, youtube.NewTokenProvider(cfg, nil)).Status(context.Background())
		assert.True(t, st.Connected)
		assert.Empty(t, st.Missing)
		assert.Greater(t, st.ExpiresIn, int64(0))
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := configuration.YouTube{ClientID: "client", RefreshToken: "refresh"}
		st := youtube.NewYouTubeClient(cfg, youtube.NewTokenProvider(cfg, nil)).Status(context.Background())
		assert.False(t, st.Connected)
		assert.Equal(t, []string{"YT_CLIENT_SECRET"}, st.Missing)
	})

	t.Run("refresh rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
		}))
		defer srv.Close()
		cfg := configuration.YouTube{ClientID: "c", ClientSecret: "s", RefreshToken: "r", TokenURL: srv.URL}
		st := youtube.NewYouTubeClient(cfg, youtube.NewTokenProvider(cfg, nil)).Status(context.Background())
		assert.False(t, st.Connected)
		assert.Contains(t, st.Error, "invalid_grant")
	})
}

func TestSanitizeTags(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, youtube.SanitizeTags([]string{" x ", "", "y"}))
	assert.Nil(t, youtube.SanitizeTags(nil))
	assert.Nil(t, youtube.SanitizeTags([]string{"  "}))
}

func TestBuildVideoDefaultTitle(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	video := youtube.BuildVideo(&model.PublishRequest{Caption: "c"}, now)
	assert.Equal(t, "upload - 2024-05-01T10:00:00.000Z", video.Snippet.Title)
	assert.Equal(t, "c", video.Snippet.Description)
}
