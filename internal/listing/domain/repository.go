package domain

import (
	"context"
	"time"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) error
	Update(ctx context.Context, listing *Listing) error
	// UpdateStatus performs the transition as a single conditional write:
	// it succeeds only if the stored status still equals from.
	UpdateStatus(ctx context.Context, id string, from, to ListingStatus) error
	// MarkSold atomically flips the status from `from` to sold and persists
	// the sale record; neither effect is observable without the other.
	MarkSold(ctx context.Context, id string, from ListingStatus, sale *Sale) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Listing, error)
	FindByIDs(ctx context.Context, ids []string) ([]*Listing, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*Listing, error)
	FindByCategory(ctx context.Context, categoryID string) ([]*Listing, error)
	// FindActiveByCategory returns up to limit active listings in the
	// category, skipping the given listing ids and any listing owned by
	// excludeOwnerID.
	FindActiveByCategory(ctx context.Context, categoryID string, excludeIDs []string, excludeOwnerID string, limit int64) ([]*Listing, error)
	FindActiveExcludingOwner(ctx context.Context, ownerID string, page, size int64) ([]*Listing, int64, error)
	FindByFilter(ctx context.Context, filter Filter) ([]*Listing, int64, error)
}

type CategoryRepository interface {
	FindByID(ctx context.Context, id string) (*Category, error)
}

type SaleRepository interface {
	FindByListingID(ctx context.Context, listingID string) ([]*Sale, error)
}

type BrowseHistoryRepository interface {
	Append(ctx context.Context, entry *BrowseEntry) error
	FindByUserSince(ctx context.Context, userID string, since time.Time) ([]*BrowseEntry, error)
}

type UserRepository interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Authorizer decides whether a caller may act on a listing. Implementations
// must treat an unknown caller as unauthorized, not as an error.
type Authorizer interface {
	IsOwnerOrAdmin(ctx context.Context, userID string, listing *Listing) (bool, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}
