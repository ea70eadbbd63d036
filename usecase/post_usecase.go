package usecase

import (
	"context"
	"time"

	"multipost/domain/model"
	"multipost/domain/repository"
	"multipost/infrastructure/logger"
)

// OutcomeBroadcaster receives per-platform progress of a run.
type OutcomeBroadcaster interface {
	BroadcastOutcome(runID string, platform string, outcome model.PublishOutcome)
}

type IPostUsecase interface {
	Post(ctx context.Context, req *model.PublishRequest) (*model.HistoryEntry, error)
	History(ctx context.Context) ([]model.HistoryEntry, error)
}

type postUsecase struct {
	publish     IPublishUsecase
	history     repository.IHistory
	notifiers   []repository.IOutcomeNotifier
	broadcaster OutcomeBroadcaster
	now         func() time.Time
}

// NewPostUsecase wires the orchestrator to its recorders. broadcaster may be
// nil.
func NewPostUsecase(publish IPublishUsecase, history repository.IHistory, broadcaster OutcomeBroadcaster, notifiers ...repository.IOutcomeNotifier) IPostUsecase {
	return &postUsecase{publish: publish, history: history, broadcaster: broadcaster, notifiers: notifiers, now: time.Now}
}

// Post orchestrates req and records the outcome. Recording and notification
// failures are logged; the outcomes are returned regardless.
func (u *postUsecase) Post(ctx context.Context, req *model.PublishRequest) (*model.HistoryEntry, error) {
	start := u.now()
	runID := model.NewEntryID(start)

	var onSettled OnSettled
	if u.broadcaster != nil {
		onSettled = func(platform string, out model.PublishOutcome) {
			u.broadcaster.BroadcastOutcome(runID, platform, out)
		}
	}
	results, err := u.publish.Publish(ctx, req, onSettled)
	if err != nil {
		return nil, err
	}

	entry := model.NewHistoryEntry(start, req, results)
	entry.ID = runID
	if u.history != nil {
		if err := u.history.Append(ctx, entry); err != nil {
			logger.GetLogger().WithField("error", err).WithField("entryId", entry.ID).Error("Failed to record history")
		}
	}
	for _, n := range u.notifiers {
		if err := n.Notify(ctx, entry); err != nil {
			logger.GetLogger().WithField("error", err).WithField("entryId", entry.ID).Warn("Outcome notification failed")
		}
	}
	return entry, nil
}

func (u *postUsecase) History(ctx context.Context) ([]model.HistoryEntry, error) {
	if u.history == nil {
		return []model.HistoryEntry{}, nil
	}
	return u.history.ReadAll(ctx)
}
