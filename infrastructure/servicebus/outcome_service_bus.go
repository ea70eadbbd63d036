package servicebus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"multipost/domain/model"
	"multipost/infrastructure/logger"
)

// NewServiceBus connects to a fully qualified namespace
// (<name>.servicebus.windows.net) with the default Azure credential chain.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("service bus namespace is empty")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

// OutcomeServiceBus sends every recorded history entry to one queue.
type OutcomeServiceBus struct {
	client *azservicebus.Client
	queue  string
}

func NewOutcomeServiceBus(client *azservicebus.Client, queue string) *OutcomeServiceBus {
	return &OutcomeServiceBus{client: client, queue: queue}
}

func (s *OutcomeServiceBus) Notify(ctx context.Context, entry *model.HistoryEntry) error {
	if s.client == nil {
		return fmt.Errorf("service bus client not initialised")
	}
	msg, err := newOutcomeMessage(entry)
	if err != nil {
		return err
	}

	sender, err := s.client.NewSender(s.queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, context.Background())

	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

func newOutcomeMessage(entry *model.HistoryEntry) (*azservicebus.Message, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	contentType := "application/json"
	messageID := entry.ID
	return &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		MessageID:   &messageID,
	}, nil
}
