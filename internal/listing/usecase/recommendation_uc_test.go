package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adilet-k/bazarly/internal/listing/domain"
	"github.com/adilet-k/bazarly/internal/platform/logger"
)

func newRecommendationUsecaseForTest() (*RecommendationUsecase, *MockListingRepository, *MockBrowseHistoryRepository) {
	listings := new(MockListingRepository)
	history := new(MockBrowseHistoryRepository)
	uc := NewRecommendationUsecase(listings, history, nil, logger.NewNop())
	return uc, listings, history
}

func browseEntry(userID, listingID string, viewedAt time.Time) *domain.BrowseEntry {
	return &domain.BrowseEntry{ID: "entry-" + listingID, UserID: userID, ListingID: listingID, ViewedAt: viewedAt}
}

func catalogListing(id, categoryID, ownerID string) *domain.Listing {
	return &domain.Listing{ID: id, CategoryID: categoryID, OwnerID: ownerID, Status: domain.StatusActive}
}

func TestRecommendationUsecase_InvalidPagination(t *testing.T) {
	ctx := context.Background()
	uc, listings, history := newRecommendationUsecaseForTest()

	_, err := uc.GetRecommendedListings(ctx, "user-1", -1, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = uc.GetRecommendedListings(ctx, "user-1", 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = uc.GetRecommendedListings(ctx, "user-1", 0, -5)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	history.AssertNotCalled(t, "FindByUserSince", mock.Anything, mock.Anything, mock.Anything)
	listings.AssertNotCalled(t, "FindActiveExcludingOwner", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecommendationUsecase_ColdStart(t *testing.T) {
	ctx := context.Background()
	uc, listings, history := newRecommendationUsecaseForTest()

	now := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }
	cutoff := now.Add(-recommendationWindow)

	fallback := []*domain.Listing{
		catalogListing("listing-9", "cat-bikes", "user-2"),
		catalogListing("listing-8", "cat-phones", "user-3"),
	}
	history.On("FindByUserSince", mock.Anything, "user-1", cutoff).Return([]*domain.BrowseEntry{}, nil).Once()
	listings.On("FindActiveExcludingOwner", mock.Anything, "user-1", int64(0), int64(10)).
		Return(fallback, int64(2), nil).Once()

	page, err := uc.GetRecommendedListings(ctx, "user-1", 0, 10)

	require.NoError(t, err)
	assert.Equal(t, fallback, page.Listings)
	assert.Equal(t, int64(2), page.Total)
	listings.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
}

func TestRecommendationUsecase_RanksByViewFrequency(t *testing.T) {
	ctx := context.Background()
	uc, listings, history := newRecommendationUsecaseForTest()

	now := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }
	cutoff := now.Add(-recommendationWindow)

	// Three views of bikes (one a repeat), one of phones. Bikes ranks first.
	entries := []*domain.BrowseEntry{
		browseEntry("user-1", "listing-1", now.Add(-time.Hour)),
		browseEntry("user-1", "listing-1", now.Add(-2*time.Hour)),
		browseEntry("user-1", "listing-2", now.Add(-3*time.Hour)),
		browseEntry("user-1", "listing-3", now.Add(-4*time.Hour)),
	}
	viewed := []*domain.Listing{
		catalogListing("listing-1", "cat-bikes", "user-2"),
		catalogListing("listing-2", "cat-bikes", "user-3"),
		catalogListing("listing-3", "cat-phones", "user-4"),
	}
	bikes := []*domain.Listing{
		catalogListing("listing-10", "cat-bikes", "user-5"),
		catalogListing("listing-11", "cat-bikes", "user-6"),
	}
	phones := []*domain.Listing{
		catalogListing("listing-12", "cat-phones", "user-7"),
	}

	history.On("FindByUserSince", mock.Anything, "user-1", cutoff).Return(entries, nil).Once()
	listings.On("FindByIDs", mock.Anything, []string{"listing-1", "listing-2", "listing-3"}).Return(viewed, nil).Once()
	listings.On("FindActiveByCategory", mock.Anything, "cat-bikes",
		[]string{"listing-1", "listing-2", "listing-3"}, "user-1", int64(5)).Return(bikes, nil).Once()
	listings.On("FindActiveByCategory", mock.Anything, "cat-phones",
		[]string{"listing-1", "listing-2", "listing-3"}, "user-1", int64(3)).Return(phones, nil).Once()

	page, err := uc.GetRecommendedListings(ctx, "user-1", 0, 5)

	require.NoError(t, err)
	require.Len(t, page.Listings, 3)
	assert.Equal(t, "listing-10", page.Listings[0].ID)
	assert.Equal(t, "listing-11", page.Listings[1].ID)
	assert.Equal(t, "listing-12", page.Listings[2].ID)
	listings.AssertExpectations(t)
}

func TestRecommendationUsecase_StopsOnceSizeReached(t *testing.T) {
	ctx := context.Background()
	uc, listings, history := newRecommendationUsecaseForTest()

	now := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }
	cutoff := now.Add(-recommendationWindow)

	entries := []*domain.BrowseEntry{
		browseEntry("user-1", "listing-1", now.Add(-time.Hour)),
		browseEntry("user-1", "listing-1", now.Add(-2*time.Hour)),
		browseEntry("user-1", "listing-2", now.Add(-3*time.Hour)),
	}
	viewed := []*domain.Listing{
		catalogListing("listing-1", "cat-bikes", "user-2"),
		catalogListing("listing-2", "cat-phones", "user-3"),
	}
	bikes := []*domain.Listing{
		catalogListing("listing-10", "cat-bikes", "user-5"),
		catalogListing("listing-11", "cat-bikes", "user-6"),
	}

	history.On("FindByUserSince", mock.Anything, "user-1", cutoff).Return(entries, nil).Once()
	listings.On("FindByIDs", mock.Anything, []string{"listing-1", "listing-2"}).Return(viewed, nil).Once()
	listings.On("FindActiveByCategory", mock.Anything, "cat-bikes",
		[]string{"listing-1", "listing-2"}, "user-1", int64(2)).Return(bikes, nil).Once()

	page, err := uc.GetRecommendedListings(ctx, "user-1", 0, 2)

	require.NoError(t, err)
	require.Len(t, page.Listings, 2)
	listings.AssertNotCalled(t, "FindActiveByCategory", mock.Anything, "cat-phones",
		mock.Anything, mock.Anything, mock.Anything)
}

func TestRecommendationUsecase_FrequencyTieBreaksByCategoryID(t *testing.T) {
	ctx := context.Background()
	uc, listings, history := newRecommendationUsecaseForTest()

	now := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }
	cutoff := now.Add(-recommendationWindow)

	entries := []*domain.BrowseEntry{
		browseEntry("user-1", "listing-1", now.Add(-time.Hour)),
		browseEntry("user-1", "listing-2", now.Add(-2*time.Hour)),
	}
	viewed := []*domain.Listing{
		catalogListing("listing-1", "cat-phones", "user-2"),
		catalogListing("listing-2", "cat-bikes", "user-3"),
	}

	history.On("FindByUserSince", mock.Anything, "user-1", cutoff).Return(entries, nil).Once()
	listings.On("FindByIDs", mock.Anything, []string{"listing-1", "listing-2"}).Return(viewed, nil).Once()
	// Both categories have one view; cat-bikes sorts before cat-phones.
	listings.On("FindActiveByCategory", mock.Anything, "cat-bikes",
		[]string{"listing-1", "listing-2"}, "user-1", int64(10)).
		Return([]*domain.Listing{catalogListing("listing-20", "cat-bikes", "user-4")}, nil).Once()
	listings.On("FindActiveByCategory", mock.Anything, "cat-phones",
		[]string{"listing-1", "listing-2"}, "user-1", int64(9)).
		Return([]*domain.Listing{catalogListing("listing-21", "cat-phones", "user-5")}, nil).Once()

	page, err := uc.GetRecommendedListings(ctx, "user-1", 0, 10)

	require.NoError(t, err)
	require.Len(t, page.Listings, 2)
	assert.Equal(t, "cat-bikes", page.Listings[0].CategoryID)
	assert.Equal(t, "cat-phones", page.Listings[1].CategoryID)
}

func TestRecommendationUsecase_ExhaustedCategoriesGiveEmptyPage(t *testing.T) {
	ctx := context.Background()
	uc, listings, history := newRecommendationUsecaseForTest()

	now := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }
	cutoff := now.Add(-recommendationWindow)

	// The user has already seen everything their top category offers.
	entries := []*domain.BrowseEntry{
		browseEntry("user-1", "listing-1", now.Add(-time.Hour)),
	}
	viewed := []*domain.Listing{
		catalogListing("listing-1", "cat-bikes", "user-2"),
	}

	history.On("FindByUserSince", mock.Anything, "user-1", cutoff).Return(entries, nil).Once()
	listings.On("FindByIDs", mock.Anything, []string{"listing-1"}).Return(viewed, nil).Once()
	listings.On("FindActiveByCategory", mock.Anything, "cat-bikes",
		[]string{"listing-1"}, "user-1", int64(10)).Return([]*domain.Listing{}, nil).Once()

	page, err := uc.GetRecommendedListings(ctx, "user-1", 0, 10)

	require.NoError(t, err)
	assert.Empty(t, page.Listings)
	assert.Equal(t, int64(0), page.Total)
	// Nonempty history means no cold-start fallback, even for an empty page.
	listings.AssertNotCalled(t, "FindActiveExcludingOwner", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecommendationUsecase_DeletedViewedListingsDropOut(t *testing.T) {
	ctx := context.Background()
	uc, listings, history := newRecommendationUsecaseForTest()

	now := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }
	cutoff := now.Add(-recommendationWindow)

	entries := []*domain.BrowseEntry{
		browseEntry("user-1", "listing-gone", now.Add(-time.Hour)),
		browseEntry("user-1", "listing-2", now.Add(-2*time.Hour)),
	}
	// listing-gone was deleted after the view; FindByIDs no longer returns it.
	viewed := []*domain.Listing{
		catalogListing("listing-2", "cat-phones", "user-3"),
	}

	history.On("FindByUserSince", mock.Anything, "user-1", cutoff).Return(entries, nil).Once()
	listings.On("FindByIDs", mock.Anything, []string{"listing-gone", "listing-2"}).Return(viewed, nil).Once()
	listings.On("FindActiveByCategory", mock.Anything, "cat-phones",
		[]string{"listing-gone", "listing-2"}, "user-1", int64(10)).
		Return([]*domain.Listing{catalogListing("listing-30", "cat-phones", "user-4")}, nil).Once()

	page, err := uc.GetRecommendedListings(ctx, "user-1", 0, 10)

	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	assert.Equal(t, "listing-30", page.Listings[0].ID)
	listings.AssertExpectations(t)
}
