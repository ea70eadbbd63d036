package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"multipost/domain/model"
	"multipost/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NewMongoDb connects to MongoDB and verifies the connection.
func NewMongoDb(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

type historyDocument struct {
	ID        string          `bson:"_id"`
	Timestamp time.Time       `bson:"timestamp"`
	Payload   payloadDocument `bson:"payload"`
	Results   bson.Raw        `bson:"results"`
}

type payloadDocument struct {
	Caption   string   `bson:"caption"`
	Title     string   `bson:"title"`
	Tags      []string `bson:"tags"`
	Platforms []string `bson:"platforms"`
}

// newHistoryDocument stores results as a subdocument keyed by platform, so
// fields such as results.youtube.ok can be queried.
func newHistoryDocument(entry *model.HistoryEntry) (*historyDocument, error) {
	results := entry.Results
	if results == nil {
		results = map[string]model.PublishOutcome{}
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode history results: %w", err)
	}
	var doc bson.Raw
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, fmt.Errorf("convert history results: %w", err)
	}
	return &historyDocument{
		ID:        entry.ID,
		Timestamp: entry.Timestamp,
		Payload: payloadDocument{
			Caption:   entry.Payload.Caption,
			Title:     entry.Payload.Title,
			Tags:      entry.Payload.Tags,
			Platforms: entry.Payload.Platforms,
		},
		Results: doc,
	}, nil
}

func (d *historyDocument) entry() (model.HistoryEntry, error) {
	entry := model.HistoryEntry{
		ID:        d.ID,
		Timestamp: d.Timestamp.UTC(),
		Payload: model.HistoryPayload{
			Caption:   d.Payload.Caption,
			Title:     d.Payload.Title,
			Tags:      d.Payload.Tags,
			Platforms: d.Payload.Platforms,
		},
		Results: map[string]model.PublishOutcome{},
	}
	if len(d.Results) == 0 {
		return entry, nil
	}
	raw, err := bson.MarshalExtJSON(d.Results, false, false)
	if err != nil {
		return entry, err
	}
	if err := json.Unmarshal(raw, &entry.Results); err != nil {
		return entry, err
	}
	return entry, nil
}

// MongoHistoryRepository keeps one document per history entry and trims
// the collection to maxItems after every append.
type MongoHistoryRepository struct {
	collection *mongo.Collection
	maxItems   int
}

func NewMongoHistoryRepository(client *mongo.Client, database, collection string, maxItems int) *MongoHistoryRepository {
	if maxItems <= 0 {
		maxItems = 100
	}
	return &MongoHistoryRepository{collection: client.Database(database).Collection(collection), maxItems: maxItems}
}

var newestFirst = bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}

func (r *MongoHistoryRepository) Append(ctx context.Context, entry *model.HistoryEntry) error {
	doc, err := newHistoryDocument(entry)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	cursor, err := r.collection.Find(ctx, bson.D{}, options.Find().
		SetSort(newestFirst).
		SetSkip(int64(r.maxItems)).
		SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("find evictable history: %w", err)
	}
	var stale []historyDocument
	if err := cursor.All(ctx, &stale); err != nil {
		return fmt.Errorf("decode evictable history: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}
	ids := make(bson.A, 0, len(stale))
	for _, d := range stale {
		ids = append(ids, d.ID)
	}
	if _, err := r.collection.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

func (r *MongoHistoryRepository) ReadAll(ctx context.Context) ([]model.HistoryEntry, error) {
	cursor, err := r.collection.Find(ctx, bson.D{}, options.Find().SetSort(newestFirst).SetLimit(int64(r.maxItems)))
	if err != nil {
		return nil, fmt.Errorf("find history: %w", err)
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	history := []model.HistoryEntry{}
	for cursor.Next(ctx) {
		var doc historyDocument
		if err := cursor.Decode(&doc); err == nil {
			entry, err := doc.entry()
			if err == nil {
				history = append(history, entry)
				continue
			}
		}
		logger.GetLogger().Warn("History collection corrupted, recreating")
		if _, err := r.collection.DeleteMany(ctx, bson.D{}); err != nil {
			return nil, fmt.Errorf("reset history: %w", err)
		}
		return []model.HistoryEntry{}, nil
	}
	return history, cursor.Err()
}
