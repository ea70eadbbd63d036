package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multipost/domain/model"
)

func TestOutcomePubSub_Notify(t *testing.T) {
	srv := pstest.NewServer()
	defer srv.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", srv.Addr)

	ctx := context.Background()
	client, err := NewPubSub(ctx, "multipost-test")
	require.NoError(t, err)
	defer client.Close()

	entry := &model.HistoryEntry{
		ID:      "2024-01-01T00:00:00.000Z_abc123",
		Results: map[string]model.PublishOutcome{"youtube": {OK: true}},
	}
	require.NoError(t, NewOutcomePubSub(client, "publish-outcomes").Notify(ctx, entry))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, entry.ID, msgs[0].Attributes["entryId"])

	var got model.HistoryEntry
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.True(t, got.Results["youtube"].OK)
}

func TestNewPubSubRequiresProject(t *testing.T) {
	_, err := NewPubSub(context.Background(), "")
	assert.Error(t, err)
}

func TestOutcomePubSubWithoutClient(t *testing.T) {
	assert.Error(t, NewOutcomePubSub(nil, "t").Notify(context.Background(), &model.HistoryEntry{}))
}
