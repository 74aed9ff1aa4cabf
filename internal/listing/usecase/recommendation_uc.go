package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/adilet-k/bazarly/internal/listing/domain"
	"github.com/adilet-k/bazarly/internal/platform/logger"
	"github.com/adilet-k/bazarly/internal/platform/metrics"
)

// recommendationWindow is the trailing lookback used both to rank categories
// and to exclude already-seen listings. The two deliberately share one
// window: a listing viewed just outside it may be recommended again.
const recommendationWindow = 10 * 24 * time.Hour

// RecommendationUsecase ranks catalogue listings for a user from their
// recent browse history.
type RecommendationUsecase struct {
	listings domain.ListingRepository
	history  domain.BrowseHistoryRepository
	metrics  *metrics.Manager
	logger   *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewRecommendationUsecase(
	listings domain.ListingRepository,
	history domain.BrowseHistoryRepository,
	m *metrics.Manager,
	log *logger.Logger,
) *RecommendationUsecase {
	return &RecommendationUsecase{
		listings: listings,
		history:  history,
		metrics:  m,
		logger:   log,
		tracer:   otel.Tracer("bazarly/recommendation"),
		now:      time.Now,
	}
}

// GetRecommendedListings returns up to size active listings the user has not
// seen within the window and does not own, drawn from their most-browsed
// categories first. With no recent history it falls back to the plain
// catalogue so new users still get a page.
func (uc *RecommendationUsecase) GetRecommendedListings(ctx context.Context, userID string, page, size int64) (*domain.ListingPage, error) {
	ctx, span := uc.tracer.Start(ctx, "RecommendationUsecase.GetRecommendedListings")
	defer span.End()

	if err := validatePagination(page, size); err != nil {
		return nil, err
	}

	cutoff := uc.now().Add(-recommendationWindow)
	entries, err := uc.history.FindByUserSince(ctx, userID, cutoff)
	if err != nil {
		uc.logger.Error("failed to load browse history", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("load browse history: %w", err)
	}

	if len(entries) == 0 {
		return uc.coldStart(ctx, userID, page, size)
	}

	viewedIDs := distinctListingIDs(entries)
	categoryOf, err := uc.categoriesOfViewed(ctx, viewedIDs)
	if err != nil {
		return nil, err
	}

	ranked := rankCategories(entries, categoryOf)

	buffer := make([]*domain.Listing, 0, size)
	for _, categoryID := range ranked {
		remaining := size - int64(len(buffer))
		if remaining <= 0 {
			break
		}
		batch, err := uc.listings.FindActiveByCategory(ctx, categoryID, viewedIDs, userID, remaining)
		if err != nil {
			uc.logger.Error("failed to load category candidates",
				zap.Error(err), zap.String("user_id", userID), zap.String("category_id", categoryID))
			return nil, fmt.Errorf("load candidates for category %s: %w", categoryID, err)
		}
		buffer = append(buffer, batch...)
	}
	if int64(len(buffer)) > size {
		buffer = buffer[:size]
	}

	if uc.metrics != nil {
		uc.metrics.RecommendationsTotal.Inc()
	}
	uc.logger.Debug("recommendations served",
		zap.String("user_id", userID), zap.Int("ranked_categories", len(ranked)), zap.Int("listings", len(buffer)))

	return &domain.ListingPage{
		Listings: buffer,
		Page:     page,
		Size:     size,
		Total:    int64(len(buffer)),
	}, nil
}

// coldStart serves users with an empty window: active listings owned by
// others, unranked.
func (uc *RecommendationUsecase) coldStart(ctx context.Context, userID string, page, size int64) (*domain.ListingPage, error) {
	listings, total, err := uc.listings.FindActiveExcludingOwner(ctx, userID, page, size)
	if err != nil {
		uc.logger.Error("failed to load cold start listings", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("cold start listings: %w", err)
	}
	if uc.metrics != nil {
		uc.metrics.RecommendationsTotal.Inc()
	}
	return &domain.ListingPage{Listings: listings, Page: page, Size: size, Total: total}, nil
}

// categoriesOfViewed maps each viewed listing id to its category. Listings
// deleted since the view simply drop out of the ranking.
func (uc *RecommendationUsecase) categoriesOfViewed(ctx context.Context, viewedIDs []string) (map[string]string, error) {
	viewed, err := uc.listings.FindByIDs(ctx, viewedIDs)
	if err != nil {
		uc.logger.Error("failed to resolve viewed listings", zap.Error(err))
		return nil, fmt.Errorf("resolve viewed listings: %w", err)
	}
	categoryOf := make(map[string]string, len(viewed))
	for _, l := range viewed {
		categoryOf[l.ID] = l.CategoryID
	}
	return categoryOf, nil
}

func distinctListingIDs(entries []*domain.BrowseEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ListingID]; ok {
			continue
		}
		seen[e.ListingID] = struct{}{}
		ids = append(ids, e.ListingID)
	}
	return ids
}

// rankCategories orders categories by view frequency within the window,
// descending. Every entry counts, repeat views included. Frequency ties
// break by category id ascending so the ranking is deterministic.
func rankCategories(entries []*domain.BrowseEntry, categoryOf map[string]string) []string {
	counts := make(map[string]int)
	for _, e := range entries {
		categoryID, ok := categoryOf[e.ListingID]
		if !ok {
			continue
		}
		counts[categoryID]++
	}

	ranked := make([]string, 0, len(counts))
	for categoryID := range counts {
		ranked = append(ranked, categoryID)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	return ranked
}
