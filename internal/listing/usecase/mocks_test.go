package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/adilet-k/bazarly/internal/listing/domain"
)

type MockListingRepository struct{ mock.Mock }

func (m *MockListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockListingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockListingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ListingStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}
func (m *MockListingRepository) MarkSold(ctx context.Context, id string, from domain.ListingStatus, sale *domain.Sale) error {
	args := m.Called(ctx, id, from, sale)
	return args.Error(0)
}
func (m *MockListingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Listing, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) FindByCategory(ctx context.Context, categoryID string) ([]*domain.Listing, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) FindActiveByCategory(ctx context.Context, categoryID string, excludeIDs []string, excludeOwnerID string, limit int64) ([]*domain.Listing, error) {
	args := m.Called(ctx, categoryID, excludeIDs, excludeOwnerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) FindActiveExcludingOwner(ctx context.Context, ownerID string, page, size int64) ([]*domain.Listing, int64, error) {
	args := m.Called(ctx, ownerID, page, size)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Listing), args.Get(1).(int64), args.Error(2)
}
func (m *MockListingRepository) FindByFilter(ctx context.Context, filter domain.Filter) ([]*domain.Listing, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Listing), args.Get(1).(int64), args.Error(2)
}

type MockCategoryRepository struct{ mock.Mock }

func (m *MockCategoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

type MockSaleRepository struct{ mock.Mock }

func (m *MockSaleRepository) FindByListingID(ctx context.Context, listingID string) ([]*domain.Sale, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Sale), args.Error(1)
}

type MockBrowseHistoryRepository struct{ mock.Mock }

func (m *MockBrowseHistoryRepository) Append(ctx context.Context, entry *domain.BrowseEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
func (m *MockBrowseHistoryRepository) FindByUserSince(ctx context.Context, userID string, since time.Time) ([]*domain.BrowseEntry, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BrowseEntry), args.Error(1)
}

type MockAuthorizer struct{ mock.Mock }

func (m *MockAuthorizer) IsOwnerOrAdmin(ctx context.Context, userID string, listing *domain.Listing) (bool, error) {
	args := m.Called(ctx, userID, listing)
	return args.Bool(0), args.Error(1)
}
func (m *MockAuthorizer) IsAdmin(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) PublishListingCreated(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishListingUpdated(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishListingDeleted(ctx context.Context, listingID string) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishStatusChanged(ctx context.Context, listing *domain.Listing, from domain.ListingStatus) error {
	args := m.Called(ctx, listing, from)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishListingSold(ctx context.Context, listing *domain.Listing, sale *domain.Sale) error {
	args := m.Called(ctx, listing, sale)
	return args.Error(0)
}

type MockListingCache struct{ mock.Mock }

func (m *MockListingCache) Get(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingCache) Set(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockListingCache) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
