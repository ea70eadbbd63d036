package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multipost/domain/model"
)

func newHubServer(t *testing.T, hub *Hub, userID string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/events", func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		hub.Serve(c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func readEvent(t *testing.T, reader *bufio.Reader) (string, PublishEvent) {
	t.Helper()
	var name string
	var evt PublishEvent
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt))
			return name, evt
		}
	}
}

func TestHubStreamsOutcomesAndCompletion(t *testing.T) {
	hub := NewPublishHub()
	srv := newHubServer(t, hub, "1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	assert.Eventually(t, func() bool { return hub.subscribers() == 1 }, time.Second, 10*time.Millisecond)

	reader := bufio.NewReader(resp.Body)
	hub.BroadcastOutcome("run-1", "tiktok", model.PublishOutcome{OK: true})
	name, evt := readEvent(t, reader)
	assert.Equal(t, EventPublishOutcome, name)
	assert.Equal(t, "tiktok", evt.Platform)
	require.NotNil(t, evt.Outcome)
	assert.True(t, evt.Outcome.OK)

	require.NoError(t, hub.Notify(context.Background(), &model.HistoryEntry{ID: "entry-1"}))
	name, evt = readEvent(t, reader)
	assert.Equal(t, EventPublishComplete, name)
	assert.Equal(t, "entry-1", evt.RunID)

	cancel()
	assert.Eventually(t, func() bool { return hub.subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubRejectsAnonymous(t *testing.T) {
	srv := newHubServer(t, NewPublishHub(), "")
	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBroadcastWithoutSubscribers(t *testing.T) {
	hub := NewPublishHub()
	hub.BroadcastOutcome("run", "youtube", model.PublishOutcome{})
	assert.NoError(t, hub.Notify(context.Background(), nil))
}
