package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adilet-k/bazarly/internal/listing/domain"
)

const browseHistoryCollection = "browse_history"

// BrowseHistoryRepository is the append-only view log. Nothing in the
// service updates or deletes entries; retention is an operational concern.
type BrowseHistoryRepository struct {
	collection *mongo.Collection
}

func NewBrowseHistoryRepository(db *mongo.Database) *BrowseHistoryRepository {
	return &BrowseHistoryRepository{collection: db.Collection(browseHistoryCollection)}
}

func (r *BrowseHistoryRepository) Append(ctx context.Context, entry *domain.BrowseEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if _, err := r.collection.InsertOne(ctx, toBrowseEntryDocument(entry)); err != nil {
		return fmt.Errorf("append browse entry: %w", err)
	}
	return nil
}

func (r *BrowseHistoryRepository) FindByUserSince(ctx context.Context, userID string, since time.Time) ([]*domain.BrowseEntry, error) {
	filter := bson.M{
		"user_id":   userID,
		"viewed_at": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "viewed_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find browse history for user %s: %w", userID, err)
	}
	var docs []*browseEntryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode browse history: %w", err)
	}
	entries := make([]*domain.BrowseEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, toDomainBrowseEntry(doc))
	}
	return entries, nil
}
