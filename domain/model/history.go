package model

import (
	"time"

	"github.com/google/uuid"
)

// HistoryPayload is the non-file part of a request as recorded in history.
type HistoryPayload struct {
	Caption   string   `json:"caption"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Platforms []string `json:"platforms"`
}

// HistoryEntry is an immutable record of one orchestration call.
type HistoryEntry struct {
	ID        string                    `json:"id"`
	Timestamp time.Time                 `json:"timestamp"`
	Payload   HistoryPayload            `json:"payload"`
	Results   map[string]PublishOutcome `json:"results"`
}

// ISOMillis is the timestamp layout used in entry ids.
const ISOMillis = "2006-01-02T15:04:05.000Z07:00"

// NewEntryID returns the timestamp of now plus a short random suffix.
func NewEntryID(now time.Time) string {
	return now.UTC().Format(ISOMillis) + "_" + uuid.NewString()[:6]
}

// NewHistoryEntry records the non-file fields of req with its outcomes. The
// id is the timestamp plus a short random suffix.
func NewHistoryEntry(now time.Time, req *PublishRequest, results map[string]PublishOutcome) *HistoryEntry {
	ts := now.UTC()
	return &HistoryEntry{
		ID:        NewEntryID(ts),
		Timestamp: ts,
		Payload: HistoryPayload{
			Caption:   req.Caption,
			Title:     req.Title,
			Tags:      req.Tags,
			Platforms: req.Platforms,
		},
		Results: results,
	}
}
