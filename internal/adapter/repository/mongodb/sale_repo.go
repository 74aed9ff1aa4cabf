package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adilet-k/bazarly/internal/listing/domain"
)

// SaleRepository reads sale records. Sales are only ever written by the
// listing repository's sold transition, inside its transaction.
type SaleRepository struct {
	collection *mongo.Collection
}

func NewSaleRepository(db *mongo.Database) *SaleRepository {
	return &SaleRepository{collection: db.Collection(salesCollection)}
}

func (r *SaleRepository) FindByListingID(ctx context.Context, listingID string) ([]*domain.Sale, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sold_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"listing_id": listingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find sales for listing %s: %w", listingID, err)
	}
	var docs []*saleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}
	sales := make([]*domain.Sale, 0, len(docs))
	for _, doc := range docs {
		sales = append(sales, toDomainSale(doc))
	}
	return sales, nil
}
