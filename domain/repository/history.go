package repository

import (
	"context"

	"multipost/domain/model"
)

// IHistory is a bounded, most-recent-first log of orchestration outcomes.
type IHistory interface {
	Append(ctx context.Context, entry *model.HistoryEntry) error
	ReadAll(ctx context.Context) ([]model.HistoryEntry, error)
}

// IOutcomeNotifier receives every recorded history entry.
type IOutcomeNotifier interface {
	Notify(ctx context.Context, entry *model.HistoryEntry) error
}
