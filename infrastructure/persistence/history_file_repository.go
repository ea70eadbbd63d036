package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"multipost/domain/model"
	"multipost/infrastructure/logger"
)

// FileHistoryRepository is a bounded, most-recent-first JSON array on disk.
// Writes are serialized by a mutex so concurrent orchestrations never lose
// entries.
type FileHistoryRepository struct {
	path     string
	maxItems int
	mu       sync.Mutex
}

func NewFileHistoryRepository(path string, maxItems int) *FileHistoryRepository {
	if maxItems <= 0 {
		maxItems = 100
	}
	return &FileHistoryRepository{path: path, maxItems: maxItems}
}

func (r *FileHistoryRepository) Append(ctx context.Context, entry *model.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, err := r.read()
	if err != nil {
		return err
	}
	history = append([]model.HistoryEntry{*entry}, history...)
	if len(history) > r.maxItems {
		history = history[:r.maxItems]
	}
	return writeJSONAtomic(r.path, history)
}

func (r *FileHistoryRepository) ReadAll(ctx context.Context) ([]model.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

// read loads the file, creating it when absent and resetting it when it does
// not hold a JSON array of entries.
func (r *FileHistoryRepository) read() ([]model.HistoryEntry, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		history := []model.HistoryEntry{}
		return history, writeJSONAtomic(r.path, history)
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var history []model.HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		logger.GetLogger().WithField("file", r.path).WithField("error", err).Warn("History file corrupted, recreating")
		history = []model.HistoryEntry{}
		if err := writeJSONAtomic(r.path, history); err != nil {
			return nil, err
		}
	}
	if history == nil {
		history = []model.HistoryEntry{}
	}
	return history, nil
}
