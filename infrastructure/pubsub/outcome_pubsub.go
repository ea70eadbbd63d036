package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"multipost/domain/model"
	"multipost/infrastructure/logger"
)

// NewPubSub creates a client for projectID. PUBSUB_EMULATOR_HOST is honoured
// by the client library.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsub project id is empty")
	}
	return pubsub.NewClient(ctx, projectID)
}

// OutcomePubSub publishes every recorded history entry to one topic.
type OutcomePubSub struct {
	client  *pubsub.Client
	topicID string
}

func NewOutcomePubSub(client *pubsub.Client, topicID string) *OutcomePubSub {
	return &OutcomePubSub{client: client, topicID: topicID}
}

func (p *OutcomePubSub) Notify(ctx context.Context, entry *model.HistoryEntry) error {
	if p.client == nil {
		return fmt.Errorf("pubsub client not initialised")
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	topic := p.client.Topic(p.topicID)
	defer topic.Stop()

	// Create the topic if it doesn't exist.
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.topicID).Info("Topic doesn't exist - creating it")
		if _, err := p.client.CreateTopic(ctx, p.topicID); err != nil {
			return err
		}
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"entryId": entry.ID},
	}).Get(ctx)
	if err != nil {
		return err
	}

	logger.GetLogger().WithField("serverId", serverID).WithField("entryId", entry.ID).Info("Outcome published")
	return nil
}
