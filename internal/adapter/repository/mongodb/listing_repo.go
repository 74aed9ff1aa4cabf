package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adilet-k/bazarly/internal/listing/domain"
)

const (
	listingsCollection = "listings"
	salesCollection    = "sales"
)

type ListingRepository struct {
	db       *mongo.Database
	listings *mongo.Collection
	sales    *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{
		db:       db,
		listings: db.Collection(listingsCollection),
		sales:    db.Collection(salesCollection),
	}
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	if _, err := r.listings.InsertOne(ctx, toListingDocument(listing)); err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (r *ListingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	res, err := r.listings.ReplaceOne(ctx, bson.M{"_id": listing.ID}, toListingDocument(listing))
	if err != nil {
		return fmt.Errorf("replace listing %s: %w", listing.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrListingNotFound, listing.ID)
	}
	return nil
}

// UpdateStatus flips the status only if the stored value still equals from.
// A zero match either means the listing is gone or another writer got there
// first; the two are told apart with a follow-up read.
func (r *ListingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ListingStatus) error {
	res, err := r.listings.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("update status of listing %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return r.classifyStatusMiss(ctx, id, from, to)
	}
	return nil
}

// MarkSold performs the sold transition and the sale insert inside one
// session transaction, so a lost race leaves no sale record behind.
func (r *ListingRepository) MarkSold(ctx context.Context, id string, from domain.ListingStatus, sale *domain.Sale) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.listings.UpdateOne(sc,
			bson.M{"_id": id, "status": string(from)},
			bson.M{"$set": bson.M{"status": string(domain.StatusSold), "updated_at": sale.SoldAt}},
		)
		if err != nil {
			return nil, fmt.Errorf("update status of listing %s: %w", id, err)
		}
		if res.MatchedCount == 0 {
			return nil, r.classifyStatusMiss(sc, id, from, domain.StatusSold)
		}
		if _, err := r.sales.InsertOne(sc, toSaleDocument(sale)); err != nil {
			return nil, fmt.Errorf("insert sale for listing %s: %w", id, err)
		}
		return nil, nil
	})
	return err
}

func (r *ListingRepository) classifyStatusMiss(ctx context.Context, id string, from, to domain.ListingStatus) error {
	var doc listingDocument
	err := r.listings.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %s", domain.ErrListingNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("reload listing %s: %w", id, err)
	}
	return fmt.Errorf("%w: listing %s is %s, not %s (wanted %s)",
		domain.ErrInvalidStatusTransition, id, doc.Status, from, to)
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.listings.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete listing %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrListingNotFound, id)
	}
	return nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	var doc listingDocument
	err := r.listings.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", domain.ErrListingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find listing %s: %w", id, err)
	}
	return toDomainListing(&doc), nil
}

func (r *ListingRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.findAll(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

func (r *ListingRepository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.findAll(ctx, bson.M{"owner_id": ownerID}, opts)
}

func (r *ListingRepository) FindByCategory(ctx context.Context, categoryID string) ([]*domain.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.findAll(ctx, bson.M{"category_id": categoryID}, opts)
}

func (r *ListingRepository) FindActiveByCategory(ctx context.Context, categoryID string, excludeIDs []string, excludeOwnerID string, limit int64) ([]*domain.Listing, error) {
	filter := bson.M{
		"category_id": categoryID,
		"status":      string(domain.StatusActive),
	}
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}
	if excludeOwnerID != "" {
		filter["owner_id"] = bson.M{"$ne": excludeOwnerID}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	return r.findAll(ctx, filter, opts)
}

func (r *ListingRepository) FindActiveExcludingOwner(ctx context.Context, ownerID string, page, size int64) ([]*domain.Listing, int64, error) {
	filter := bson.M{
		"status":   string(domain.StatusActive),
		"owner_id": bson.M{"$ne": ownerID},
	}
	total, err := r.listings.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(page * size).
		SetLimit(size)
	listings, err := r.findAll(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *ListingRepository) FindByFilter(ctx context.Context, filter domain.Filter) ([]*domain.Listing, int64, error) {
	query := bson.M{}
	if filter.CategoryID != "" {
		query["category_id"] = filter.CategoryID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.OwnerID != "" {
		query["owner_id"] = filter.OwnerID
	}
	if filter.ExcludeOwnerID != "" {
		query["owner_id"] = bson.M{"$ne": filter.ExcludeOwnerID}
	}
	if filter.Query != "" {
		regex := bson.M{"$regex": filter.Query, "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"title": regex},
			bson.M{"description": regex},
		}
	}
	price := bson.M{}
	if filter.MinPrice > 0 {
		price["$gte"] = filter.MinPrice
	}
	if filter.MaxPrice > 0 {
		price["$lte"] = filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}
	if !filter.CreatedAfter.IsZero() {
		query["created_at"] = bson.M{"$gte": filter.CreatedAfter}
	}

	total, err := r.listings.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(filter.Page * filter.Size).
		SetLimit(filter.Size)
	listings, err := r.findAll(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *ListingRepository) findAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Listing, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = r.listings.Find(ctx, filter, opts)
	} else {
		cursor, err = r.listings.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	var docs []*listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	return toDomainListings(docs), nil
}
