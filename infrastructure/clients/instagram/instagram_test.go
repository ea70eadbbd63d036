package instagram_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multipost/domain/model"
	"multipost/domain/repository"
	"multipost/infrastructure/clients/instagram"
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

type MockMediaHost struct {
	mock.Mock
}

func (m *MockMediaHost) Name() string { return "cloudinary" }

func (m *MockMediaHost) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockMediaHost) Upload(ctx context.Context, filePath string) (*repository.HostedMedia, error) {
	args := m.Called(ctx, filePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.HostedMedia), args.Error(1)
}

// fakeGraph records form posts and answers with canned bodies keyed by path.
type fakeGraph struct {
	mu        sync.Mutex
	server    *httptest.Server
	responses map[string][]string
	status    map[string]int
	calls     map[string][]url.Values
}

func newFakeGraph(t *testing.T) *fakeGraph {
	f := &fakeGraph{responses: map[string][]string{}, status: map[string]int{}, calls: map[string][]url.Values{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.mu.Lock()
		defer f.mu.Unlock()
		key := r.Method + " " + r.URL.Path
		f.calls[key] = append(f.calls[key], r.Form)
		queue := f.responses[key]
		if len(queue) == 0 {
			http.NotFound(w, r)
			return
		}
		body := queue[0]
		if len(queue) > 1 {
			f.responses[key] = queue[1:]
		}
		w.Header().Set("Content-Type", "application/json")
		if code := f.status[key]; code != 0 {
			w.WriteHeader(code)
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGraph) on(key string, bodies ...string) { f.responses[key] = bodies }

func (f *fakeGraph) callsTo(key string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeGraph) config() configuration.Instagram {
	return configuration.Instagram{
		AppID:          "app",
		AppSecret:      "app-secret",
		RedirectURI:    "http://localhost:4000/auth/instagram/callback",
		GraphBaseURL:   f.server.URL,
		DialogURL:      "https://www.facebook.com/v19.0/dialog/oauth",
		VideoMediaType: "VIDEO",
		PollInterval:   time.Millisecond,
		PollAttempts:   5,
	}
}

func writeMedia(t *testing.T) string {
	p := filepath.Join(t.TempDir(), "media.bin")
	require.NoError(t, os.WriteFile(p, []byte("bytes"), 0o600))
	return p
}

func storedCredential() *model.PlatformCredential {
	pageID, pageName, account := "page-2", "Second", "ig-2"
	return &model.PlatformCredential{
		Platform:    model.PlatformInstagram,
		AccessToken: "stored-page-token",
		PageID:      &pageID,
		PageName:    &pageName,
		AccountID:   &account,
		UpdatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPublishImageUsesStoredCredential(t *testing.T) {
	graph := newFakeGraph(t)
	graph.on("POST /ig-2/media", `{"id":"container-1"}`)
	graph.on("POST /ig-2/media_publish", `{"id":"media-77"}`)

	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformInstagram).Return(storedCredential(), nil)
	host := new(MockMediaHost)
	host.On("Configured").Return(true)
	host.On("Upload", mock.Anything, mock.Anything).Return(&repository.HostedMedia{URL: "https://cdn/img.jpg", ResourceType: "image", Provider: "cloudinary"}, nil)

	p := instagram.NewPublisher(graph.config(), instagram.NewGraphClient(graph.server.URL, nil), host, store)
	out := p.Publish(context.Background(), &model.PublishRequest{FilePath: writeMedia(t), MimeType: "image/jpeg", Caption: "hi"})

	require.True(t, out.OK, "outcome: %+v", out)
	assert.Equal(t, "container-1", out.Result["creationId"])
	assert.JSONEq(t, `{"id":"media-77"}`, string(out.Result["publishResult"].(json.RawMessage)))

	created := graph.callsTo("POST /ig-2/media")[0]
	assert.Equal(t, "https://cdn/img.jpg", created.Get("image_url"))
	assert.Equal(t, "hi", created.Get("caption"))
	assert.Empty(t, created.Get("video_url"))
	published := graph.callsTo("POST /ig-2/media_publish")[0]
	assert.Equal(t, "container-1", published.Get("creation_id"))
	assert.Equal(t, "stored-page-token", published.Get("access_token"))
}

func TestPublishVideoPollsContainer(t *testing.T) {
	graph := newFakeGraph(t)
	graph.on("POST /ig-env/media", `{"id":"container-v"}`)
	graph.on("GET /container-v", `{"status_code":"IN_PROGRESS"}`, `{"status_code":"FINISHED"}`)
	graph.on("POST /ig-env/media_publish", `{"id":"media-v"}`)

	store := new(MockCredentialStore)
	host := new(MockMediaHost)
	host.On("Configured").Return(true)
	host.On("Upload", mock.Anything, mock.Anything).Return(&repository.HostedMedia{URL: "https://cdn/v.mp4", ResourceType: "video"}, nil)

	cfg := graph.config()
	cfg.PageAccessToken = "env-token"
	cfg.UserID = "ig-env"
	p := instagram.NewPublisher(cfg, instagram.NewGraphClient(graph.server.URL, nil), host, store)

	// No MIME type: the host resource type decides.
	out := p.Publish(context.Background(), &model.PublishRequest{FilePath: writeMedia(t)})

	require.True(t, out.OK, "outcome: %+v", out)
	created := graph.callsTo("POST /ig-env/media")[0]
	assert.Equal(t, "VIDEO", created.Get("media_type"))
	assert.Equal(t, "https://cdn/v.mp4", created.Get("video_url"))
	assert.Len(t, graph.callsTo("GET /container-v"), 2)
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestPublishVideoContainerError(t *testing.T) {
	graph := newFakeGraph(t)
	graph.on("POST /ig-2/media", `{"id":"container-e"}`)
	graph.on("GET /container-e", `{"status_code":"ERROR"}`)

	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformInstagram).Return(storedCredential(), nil)
	host := new(MockMediaHost)
	host.On("Configured").Return(true)
	hosted := &repository.HostedMedia{URL: "https://cdn/v.mp4", ResourceType: "video", Provider: "cloudinary"}
	host.On("Upload", mock.Anything, mock.Anything).Return(hosted, nil)

	p := instagram.NewPublisher(graph.config(), instagram.NewGraphClient(graph.server.URL, nil), host, store)
	out := p.Publish(context.Background(), &model.PublishRequest{FilePath: writeMedia(t), MimeType: "video/mp4"})

	require.False(t, out.OK)
	assert.Equal(t, "container_status", out.Detail["stage"])
	assert.Equal(t, hosted, out.Detail["host"])
	assert.Empty(t, graph.callsTo("POST /ig-2/media_publish"))
}

func TestPublishGraphErrorKeepsBodyAndHost(t *testing.T) {
	graph := newFakeGraph(t)
	graph.on("POST /ig-2/media", `{"error":{"message":"Invalid image","code":9004}}`)
	graph.status["POST /ig-2/media"] = http.StatusBadRequest

	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformInstagram).Return(storedCredential(), nil)
	host := new(MockMediaHost)
	host.On("Configured").Return(true)
	hosted := &repository.HostedMedia{URL: "https://cdn/i.png", ResourceType: "image"}
	host.On("Upload", mock.Anything, mock.Anything).Return(hosted, nil)

	p := instagram.NewPublisher(graph.config(), instagram.NewGraphClient(graph.server.URL, nil), host, store)
	out := p.Publish(context.Background(), &model.PublishRequest{FilePath: writeMedia(t), MimeType: "image/png"})

	require.False(t, out.OK)
	assert.JSONEq(t, `{"error":{"message":"Invalid image","code":9004}}`, string(out.Error.(json.RawMessage)))
	assert.Equal(t, http.StatusBadRequest, out.Detail["status"])
	assert.Equal(t, hosted, out.Detail["host"])
}

func TestPublishHostFailure(t *testing.T) {
	graph := newFakeGraph(t)
	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformInstagram).Return(storedCredential(), nil)
	host := new(MockMediaHost)
	host.On("Configured").Return(true)
	host.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	p := instagram.NewPublisher(graph.config(), instagram.NewGraphClient(graph.server.URL, nil), host, store)
	out := p.Publish(context.Background(), &model.PublishRequest{FilePath: writeMedia(t)})

	require.False(t, out.OK)
	assert.Equal(t, "host", out.Detail["stage"])
	assert.Equal(t, "cloudinary", out.Detail["provider"])
	assert.Contains(t, out.Error, "quota exceeded")
}

func TestPublishNotConnected(t *testing.T) {
	graph := newFakeGraph(t)
	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformInstagram).Return(nil, model.ErrCredentialNotFound)
	host := new(MockMediaHost)

	p := instagram.NewPublisher(graph.config(), instagram.NewGraphClient(graph.server.URL, nil), host, store)
	out := p.Publish(context.Background(), &model.PublishRequest{FilePath: writeMedia(t)})

	require.False(t, out.OK)
	assert.Equal(t, "config", out.Detail["stage"])
	assert.Equal(t, []string{"FB_PAGE_ACCESS_TOKEN", "IG_USER_ID"}, out.Detail["missing"])
	host.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestPublishHostNotConfigured(t *testing.T) {
	graph := newFakeGraph(t)
	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformInstagram).Return(storedCredential(), nil)
	host := new(MockMediaHost)
	host.On("Configured").Return(false)

	p := instagram.NewPublisher(graph.config(), instagram.NewGraphClient(graph.server.URL, nil), host, store)
	out := p.Publish(context.Background(), &model.PublishRequest{FilePath: writeMedia(t)})

	require.False(t, out.OK)
	assert.Equal(t, "config", out.Detail["stage"])
	assert.Contains(t, out.Error, "not connected")
}

func TestResolveCredentialsMixesSources(t *testing.T) {
	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformInstagram).Return(storedCredential(), nil)
	cfg := configuration.Instagram{PageAccessToken: "env-token"}
	p := instagram.NewPublisher(cfg, instagram.NewGraphClient("http://unused", nil), nil, store)

	creds, err := p.ResolveCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-token", creds.PageAccessToken)
	assert.Equal(t, "ig-2", creds.IGUserID)
}

func TestResolveCredentialsIgnoresUserTokenExpiry(t *testing.T) {
	cred := storedCredential()
	past := time.Now().Add(-90 * 24 * time.Hour)
	cred.UserTokenExpiresAt = &past
	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformInstagram).Return(cred, nil)
	p := instagram.NewPublisher(configuration.Instagram{}, instagram.NewGraphClient("http://unused", nil), nil, store)

	creds, err := p.ResolveCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored-page-token", creds.PageAccessToken)
	assert.Equal(t, "ig-2", creds.IGUserID)
}

func TestResolveCredentialsWithoutStore(t *testing.T) {
	p := instagram.NewPublisher(configuration.Instagram{UserID: "ig-env"}, instagram.NewGraphClient("http://unused", nil), nil, nil)

	_, err := p.ResolveCredentials(context.Background())
	var configErr *model.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, []string{"FB_PAGE_ACCESS_TOKEN"}, configErr.Missing)

	p = instagram.NewPublisher(configuration.Instagram{UserID: "ig-env", PageAccessToken: "env-token"}, instagram.NewGraphClient("http://unused", nil), nil, nil)
	creds, err := p.ResolveCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-token", creds.PageAccessToken)
}

func TestLinkStatus(t *testing.T) {
	store := new(MockCredentialStore)
	store.On("Get", mock.Anything, model.PlatformInstagram).Return(storedCredential(), nil)
	p := instagram.NewPublisher(configuration.Instagram{}, instagram.NewGraphClient("http://unused", nil), nil, store)

	st := p.LinkStatus(context.Background())
	assert.True(t, st.Connected)
	assert.Equal(t, "oauth", st.Source)
	require.NotNil(t, st.Page)
	assert.Equal(t, "page-2", st.Page.ID)
	assert.Equal(t, "Second", st.Page.Name)
}

func linkerGraph(t *testing.T) *fakeGraph {
	graph := newFakeGraph(t)
	graph.on("POST /oauth/access_token", `{"access_token":"short","token_type":"bearer","expires_in":3600}`)
	graph.on("GET /oauth/access_token", `{"access_token":"long","token_type":"bearer","expires_in":5184000}`)
	return graph
}

func TestLinkerPicksFirstLinkedPage(t *testing.T) {
	graph := linkerGraph(t)
	graph.on("GET /me/accounts", `{"data":[{"id":"p1","name":"One","access_token":"t1"},{"id":"p2","name":"Two","access_token":"t2"},{"id":"p3","name":"Three","access_token":"t3"}]}`)
	graph.on("GET /p1", `{"id":"p1","name":"One"}`)
	graph.on("GET /p2", `{"id":"p2","name":"Two Page","instagram_business_account":{"id":"ig-two"}}`)
	graph.on("GET /p3", `{"id":"p3","name":"Three","instagram_business_account":{"id":"ig-three"}}`)

	store := new(MockCredentialStore)
	store.On("Put", mock.Anything, mock.AnythingOfType("*model.PlatformCredential")).Return(nil)

	linker := instagram.NewLinker(graph.config(), instagram.NewGraphClient(graph.server.URL, nil), store)
	cred, err := linker.Callback(context.Background(), "code-1")
	require.NoError(t, err)

	assert.Equal(t, "t2", cred.AccessToken)
	assert.Equal(t, "long", cred.UserAccessToken)
	assert.Equal(t, "p2", model.StringValue(cred.PageID))
	assert.Equal(t, "Two Page", model.StringValue(cred.PageName))
	assert.Equal(t, "ig-two", model.StringValue(cred.AccountID))
	assert.Nil(t, cred.ExpiresAt)
	require.NotNil(t, cred.UserTokenExpiresAt)
	store.AssertNumberOfCalls(t, "Put", 1)
	assert.Empty(t, graph.callsTo("GET /p3"))

	exchange := graph.callsTo("POST /oauth/access_token")[0]
	assert.Equal(t, "code-1", exchange.Get("code"))
	assert.Equal(t, "app", exchange.Get("client_id"))
	longLived := graph.callsTo("GET /oauth/access_token")[0]
	assert.Equal(t, "fb_exchange_token", longLived.Get("grant_type"))
	assert.Equal(t, "short", longLived.Get("fb_exchange_token"))
	accounts := graph.callsTo("GET /me/accounts")[0]
	assert.Equal(t, "name,id,access_token", accounts.Get("fields"))
}

func TestLinkerNoLinkedPagePersistsNothing(t *testing.T) {
	graph := linkerGraph(t)
	graph.on("GET /me/accounts", `{"data":[{"id":"p1","name":"One","access_token":"t1"}]}`)
	graph.on("GET /p1", `{"id":"p1","name":"One"}`)
	store := new(MockCredentialStore)

	linker := instagram.NewLinker(graph.config(), instagram.NewGraphClient(graph.server.URL, nil), store)
	_, err := linker.Callback(context.Background(), "code-1")

	assert.ErrorIs(t, err, instagram.ErrNoLinkedPages)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLinkerNoPages(t *testing.T) {
	graph := linkerGraph(t)
	graph.on("GET /me/accounts", `{"data":[]}`)
	store := new(MockCredentialStore)

	linker := instagram.NewLinker(graph.config(), instagram.NewGraphClient(graph.server.URL, nil), store)
	_, err := linker.Callback(context.Background(), "code-1")

	assert.ErrorIs(t, err, instagram.ErrNoPages)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLinkerAuthURL(t *testing.T) {
	linker := instagram.NewLinker(configuration.Instagram{}, instagram.NewGraphClient("http://unused", nil), nil)
	_, err := linker.AuthURL("s")
	var configErr *model.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, []string{"FB_APP_ID", "FB_APP_SECRET", "FB_REDIRECT_URI"}, configErr.Missing)

	graph := newFakeGraph(t)
	linker = instagram.NewLinker(graph.config(), instagram.NewGraphClient(graph.server.URL, nil), nil)
	raw, err := linker.AuthURL("state-1")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.facebook.com", u.Host)
	assert.Equal(t, "state-1", u.Query().Get("state"))
	assert.Equal(t, "app", u.Query().Get("client_id"))
	assert.Contains(t, u.Query().Get("scope"), "instagram_content_publish")
}
