package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/adilet-k/bazarly/internal/listing/domain"
	"github.com/adilet-k/bazarly/internal/platform/logger"
	"github.com/adilet-k/bazarly/internal/platform/metrics"
)

// EventPublisher pushes lifecycle events to the message bus. Publishing is
// best-effort: failures are logged, never returned to the caller.
type EventPublisher interface {
	PublishListingCreated(ctx context.Context, listing *domain.Listing) error
	PublishListingUpdated(ctx context.Context, listing *domain.Listing) error
	PublishListingDeleted(ctx context.Context, listingID string) error
	PublishStatusChanged(ctx context.Context, listing *domain.Listing, from domain.ListingStatus) error
	PublishListingSold(ctx context.Context, listing *domain.Listing, sale *domain.Sale) error
}

// ListingCache is a read-through cache for single-listing reads. Get returns
// (nil, nil) on a miss.
type ListingCache interface {
	Get(ctx context.Context, id string) (*domain.Listing, error)
	Set(ctx context.Context, listing *domain.Listing) error
	Delete(ctx context.Context, id string) error
}

// ListingUsecase owns the listing lifecycle: creation, edits, deletion,
// catalogue queries and the status state machine. Caller identity is always
// an explicit parameter, never ambient state.
type ListingUsecase struct {
	listings   domain.ListingRepository
	categories domain.CategoryRepository
	sales      domain.SaleRepository
	history    domain.BrowseHistoryRepository
	authz      domain.Authorizer
	cache      ListingCache
	publisher  EventPublisher
	metrics    *metrics.Manager
	logger     *logger.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewListingUsecase(
	listings domain.ListingRepository,
	categories domain.CategoryRepository,
	sales domain.SaleRepository,
	history domain.BrowseHistoryRepository,
	authz domain.Authorizer,
	cache ListingCache,
	publisher EventPublisher,
	m *metrics.Manager,
	log *logger.Logger,
) *ListingUsecase {
	return &ListingUsecase{
		listings:   listings,
		categories: categories,
		sales:      sales,
		history:    history,
		authz:      authz,
		cache:      cache,
		publisher:  publisher,
		metrics:    m,
		logger:     log,
		tracer:     otel.Tracer("bazarly/listing"),
		now:        time.Now,
	}
}

type CreateListingInput struct {
	CategoryID  string
	Title       string
	Description string
	Price       float64
	Address     string
	PostalCode  string
	Latitude    float64
	Longitude   float64
	Attributes  []domain.AttributeValue
	Photos      []string
}

// UpdateListingInput replaces all mutable fields of a listing. Status and
// identity are not mutable through edits.
type UpdateListingInput = CreateListingInput

func (uc *ListingUsecase) CreateListing(ctx context.Context, actorID string, input CreateListingInput) (*domain.Listing, error) {
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.CreateListing")
	defer span.End()
	defer uc.observe("CreateListing", time.Now())

	uc.logger.Info("creating listing",
		zap.String("actor_id", actorID), zap.String("category_id", input.CategoryID), zap.String("title", input.Title))

	category, err := uc.categories.FindByID(ctx, input.CategoryID)
	if err != nil {
		uc.countError("CreateListing", err)
		return nil, err
	}
	if err := validateAttributes(category, input.Attributes); err != nil {
		uc.countError("CreateListing", err)
		return nil, err
	}

	now := uc.now()
	listing := &domain.Listing{
		ID:          uuid.NewString(),
		OwnerID:     actorID,
		CategoryID:  input.CategoryID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Address:     input.Address,
		PostalCode:  input.PostalCode,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Attributes:  input.Attributes,
		Photos:      input.Photos,
		Status:      domain.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.listings.Create(ctx, listing); err != nil {
		uc.logger.Error("failed to create listing", zap.Error(err), zap.String("actor_id", actorID))
		uc.countError("CreateListing", err)
		return nil, fmt.Errorf("create listing: %w", err)
	}

	uc.cacheSet(ctx, listing)
	if uc.publisher != nil {
		if errPub := uc.publisher.PublishListingCreated(ctx, listing); errPub != nil {
			uc.logger.Warn("failed to publish listing created event", zap.Error(errPub), zap.String("listing_id", listing.ID))
		}
	}
	if uc.metrics != nil {
		uc.metrics.ListingsCreatedTotal.Inc()
	}
	return listing, nil
}

func (uc *ListingUsecase) UpdateListing(ctx context.Context, actorID, listingID string, input UpdateListingInput) (*domain.Listing, error) {
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.UpdateListing")
	defer span.End()
	defer uc.observe("UpdateListing", time.Now())

	listing, err := uc.listings.FindByID(ctx, listingID)
	if err != nil {
		uc.countError("UpdateListing", err)
		return nil, err
	}
	if err := uc.requireOwnerOrAdmin(ctx, actorID, listing, "UpdateListing"); err != nil {
		return nil, err
	}

	category, err := uc.categories.FindByID(ctx, input.CategoryID)
	if err != nil {
		uc.countError("UpdateListing", err)
		return nil, err
	}
	if err := validateAttributes(category, input.Attributes); err != nil {
		uc.countError("UpdateListing", err)
		return nil, err
	}

	listing.CategoryID = input.CategoryID
	listing.Title = input.Title
	listing.Description = input.Description
	listing.Price = input.Price
	listing.Address = input.Address
	listing.PostalCode = input.PostalCode
	listing.Latitude = input.Latitude
	listing.Longitude = input.Longitude
	listing.Attributes = input.Attributes
	listing.Photos = input.Photos
	listing.UpdatedAt = uc.now()

	if err := uc.listings.Update(ctx, listing); err != nil {
		uc.logger.Error("failed to update listing", zap.Error(err), zap.String("listing_id", listingID))
		uc.countError("UpdateListing", err)
		return nil, fmt.Errorf("update listing: %w", err)
	}

	uc.cacheDelete(ctx, listingID)
	if uc.publisher != nil {
		if errPub := uc.publisher.PublishListingUpdated(ctx, listing); errPub != nil {
			uc.logger.Warn("failed to publish listing updated event", zap.Error(errPub), zap.String("listing_id", listingID))
		}
	}
	if uc.metrics != nil {
		uc.metrics.ListingUpdatesTotal.Inc()
	}
	return listing, nil
}

// DeleteListing removes the listing together with its attribute values and
// photo references; they live inside the listing document, so the store
// removes them in the same write.
func (uc *ListingUsecase) DeleteListing(ctx context.Context, actorID, listingID string) error {
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.DeleteListing")
	defer span.End()
	defer uc.observe("DeleteListing", time.Now())

	listing, err := uc.listings.FindByID(ctx, listingID)
	if err != nil {
		uc.countError("DeleteListing", err)
		return err
	}
	if err := uc.requireOwnerOrAdmin(ctx, actorID, listing, "DeleteListing"); err != nil {
		return err
	}

	if err := uc.listings.Delete(ctx, listingID); err != nil {
		uc.logger.Error("failed to delete listing", zap.Error(err), zap.String("listing_id", listingID))
		uc.countError("DeleteListing", err)
		return fmt.Errorf("delete listing: %w", err)
	}

	uc.cacheDelete(ctx, listingID)
	if uc.publisher != nil {
		if errPub := uc.publisher.PublishListingDeleted(ctx, listingID); errPub != nil {
			uc.logger.Warn("failed to publish listing deleted event", zap.Error(errPub), zap.String("listing_id", listingID))
		}
	}
	if uc.metrics != nil {
		uc.metrics.ListingDeletesTotal.Inc()
	}
	return nil
}

// GetListing returns a single listing and records the view in the browse
// history. Recording happens on every successful read, repeats included;
// the recommendation engine depends on that.
func (uc *ListingUsecase) GetListing(ctx context.Context, actorID, listingID string) (*domain.Listing, error) {
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.GetListing")
	defer span.End()
	defer uc.observe("GetListing", time.Now())

	listing, err := uc.cachedListing(ctx, listingID)
	if err != nil {
		uc.countError("GetListing", err)
		return nil, err
	}

	entry := &domain.BrowseEntry{
		ID:        uuid.NewString(),
		UserID:    actorID,
		ListingID: listingID,
		ViewedAt:  uc.now(),
	}
	if err := uc.history.Append(ctx, entry); err != nil {
		uc.logger.Warn("failed to record browse history entry",
			zap.Error(err), zap.String("user_id", actorID), zap.String("listing_id", listingID))
	}
	return listing, nil
}

// SearchListings is the public catalogue view: active listings only, with
// the optional filters applied as a conjunction.
func (uc *ListingUsecase) SearchListings(ctx context.Context, filter domain.Filter) (*domain.ListingPage, error) {
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.SearchListings")
	defer span.End()
	defer uc.observe("SearchListings", time.Now())

	if err := validatePagination(filter.Page, filter.Size); err != nil {
		uc.countError("SearchListings", err)
		return nil, err
	}
	filter.Status = domain.StatusActive

	listings, total, err := uc.listings.FindByFilter(ctx, filter)
	if err != nil {
		uc.logger.Error("failed to search listings", zap.Error(err))
		uc.countError("SearchListings", err)
		return nil, fmt.Errorf("search listings: %w", err)
	}
	return &domain.ListingPage{Listings: listings, Page: filter.Page, Size: filter.Size, Total: total}, nil
}

// ListAllForAdmin is the aggregate admin view across all statuses. It
// excludes the admin's own listings; this mirrors a deliberate business
// rule, admins moderate other people's listings here.
func (uc *ListingUsecase) ListAllForAdmin(ctx context.Context, actorID string, filter domain.Filter) (*domain.ListingPage, error) {
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.ListAllForAdmin")
	defer span.End()
	defer uc.observe("ListAllForAdmin", time.Now())

	if err := validatePagination(filter.Page, filter.Size); err != nil {
		uc.countError("ListAllForAdmin", err)
		return nil, err
	}

	isAdmin, err := uc.authz.IsAdmin(ctx, actorID)
	if err != nil {
		uc.countError("ListAllForAdmin", err)
		return nil, fmt.Errorf("admin check: %w", err)
	}
	if !isAdmin {
		uc.logger.Warn("non-admin requested aggregate listing view", zap.String("actor_id", actorID))
		uc.countError("ListAllForAdmin", domain.ErrAccessDenied)
		return nil, fmt.Errorf("%w: user %s is not an administrator", domain.ErrAccessDenied, actorID)
	}

	filter.ExcludeOwnerID = actorID
	listings, total, err := uc.listings.FindByFilter(ctx, filter)
	if err != nil {
		uc.logger.Error("failed to list listings for admin", zap.Error(err), zap.String("actor_id", actorID))
		uc.countError("ListAllForAdmin", err)
		return nil, fmt.Errorf("list all listings: %w", err)
	}
	return &domain.ListingPage{Listings: listings, Page: filter.Page, Size: filter.Size, Total: total}, nil
}

func (uc *ListingUsecase) GetListingsByCategory(ctx context.Context, categoryID string) ([]*domain.Listing, error) {
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.GetListingsByCategory")
	defer span.End()

	listings, err := uc.listings.FindByCategory(ctx, categoryID)
	if err != nil {
		uc.countError("GetListingsByCategory", err)
		return nil, err
	}
	if len(listings) == 0 {
		uc.countError("GetListingsByCategory", domain.ErrListingNotFound)
		return nil, fmt.Errorf("%w: no listings in category %s", domain.ErrListingNotFound, categoryID)
	}
	return listings, nil
}

func (uc *ListingUsecase) GetListingsByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.GetListingsByOwner")
	defer span.End()

	listings, err := uc.listings.FindByOwner(ctx, ownerID)
	if err != nil {
		uc.countError("GetListingsByOwner", err)
		return nil, fmt.Errorf("listings by owner: %w", err)
	}
	return listings, nil
}

// GetSalesByListing returns the sale record(s) for a listing; visible to the
// owner and administrators only.
func (uc *ListingUsecase) GetSalesByListing(ctx context.Context, actorID, listingID string) ([]*domain.Sale, error) {
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.GetSalesByListing")
	defer span.End()

	listing, err := uc.listings.FindByID(ctx, listingID)
	if err != nil {
		uc.countError("GetSalesByListing", err)
		return nil, err
	}
	if err := uc.requireOwnerOrAdmin(ctx, actorID, listing, "GetSalesByListing"); err != nil {
		return nil, err
	}
	return uc.sales.FindByListingID(ctx, listingID)
}

func (uc *ListingUsecase) MarkActive(ctx context.Context, actorID, listingID string) (*domain.Listing, error) {
	return uc.transition(ctx, actorID, listingID, domain.StatusActive)
}

func (uc *ListingUsecase) MarkArchived(ctx context.Context, actorID, listingID string) (*domain.Listing, error) {
	return uc.transition(ctx, actorID, listingID, domain.StatusArchived)
}

func (uc *ListingUsecase) MarkSold(ctx context.Context, actorID, listingID string) (*domain.Listing, error) {
	return uc.transition(ctx, actorID, listingID, domain.StatusSold)
}

// transition drives the status state machine. The repository performs the
// final check-then-set conditionally on the observed source status, so two
// racing transitions cannot both succeed from the same state.
func (uc *ListingUsecase) transition(ctx context.Context, actorID, listingID string, target domain.ListingStatus) (*domain.Listing, error) {
	method := transitionMethod(target)
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase."+method)
	defer span.End()
	defer uc.observe(method, time.Now())

	listing, err := uc.listings.FindByID(ctx, listingID)
	if err != nil {
		uc.countError(method, err)
		return nil, err
	}
	if err := uc.requireOwnerOrAdmin(ctx, actorID, listing, method); err != nil {
		return nil, err
	}

	from := listing.Status
	if !from.CanTransitionTo(target) {
		uc.logger.Warn("rejected status transition",
			zap.String("listing_id", listingID), zap.String("from", string(from)), zap.String("to", string(target)))
		uc.countError(method, domain.ErrInvalidStatusTransition)
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, from, target)
	}

	var sale *domain.Sale
	if target == domain.StatusSold {
		sale = &domain.Sale{
			ID:        uuid.NewString(),
			ListingID: listingID,
			Price:     listing.Price,
			SoldAt:    uc.now(),
		}
		err = uc.listings.MarkSold(ctx, listingID, from, sale)
	} else {
		err = uc.listings.UpdateStatus(ctx, listingID, from, target)
	}
	if err != nil {
		uc.logger.Error("failed to apply status transition",
			zap.Error(err), zap.String("listing_id", listingID), zap.String("from", string(from)), zap.String("to", string(target)))
		uc.countError(method, err)
		return nil, err
	}

	listing.Status = target
	listing.UpdatedAt = uc.now()
	uc.cacheDelete(ctx, listingID)

	if uc.publisher != nil {
		var errPub error
		if sale != nil {
			errPub = uc.publisher.PublishListingSold(ctx, listing, sale)
		} else {
			errPub = uc.publisher.PublishStatusChanged(ctx, listing, from)
		}
		if errPub != nil {
			uc.logger.Warn("failed to publish status event", zap.Error(errPub), zap.String("listing_id", listingID))
		}
	}
	if uc.metrics != nil {
		uc.metrics.StatusTransitionsTotal.WithLabelValues(string(from), string(target)).Inc()
		if sale != nil {
			uc.metrics.SalesRecordedTotal.Inc()
		}
	}

	uc.logger.Info("listing status changed",
		zap.String("listing_id", listingID), zap.String("from", string(from)), zap.String("to", string(target)))
	return listing, nil
}

func transitionMethod(target domain.ListingStatus) string {
	switch target {
	case domain.StatusActive:
		return "MarkActive"
	case domain.StatusArchived:
		return "MarkArchived"
	case domain.StatusSold:
		return "MarkSold"
	default:
		return "MarkUnknown"
	}
}

func (uc *ListingUsecase) requireOwnerOrAdmin(ctx context.Context, actorID string, listing *domain.Listing, method string) error {
	allowed, err := uc.authz.IsOwnerOrAdmin(ctx, actorID, listing)
	if err != nil {
		uc.countError(method, err)
		return fmt.Errorf("authorization check: %w", err)
	}
	if !allowed {
		uc.logger.Warn("access denied",
			zap.String("method", method), zap.String("actor_id", actorID),
			zap.String("listing_id", listing.ID), zap.String("owner_id", listing.OwnerID))
		uc.countError(method, domain.ErrAccessDenied)
		return fmt.Errorf("%w: user %s may not modify listing %s", domain.ErrAccessDenied, actorID, listing.ID)
	}
	return nil
}

// cachedListing reads through the cache; cache trouble degrades to a store
// read instead of failing the request.
func (uc *ListingUsecase) cachedListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, listingID)
		if err != nil {
			uc.logger.Warn("listing cache read failed", zap.Error(err), zap.String("listing_id", listingID))
		} else if cached != nil {
			return cached, nil
		}
	}

	listing, err := uc.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	uc.cacheSet(ctx, listing)
	return listing, nil
}

func (uc *ListingUsecase) cacheSet(ctx context.Context, listing *domain.Listing) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Set(ctx, listing); err != nil {
		uc.logger.Warn("failed to cache listing", zap.Error(err), zap.String("listing_id", listing.ID))
	}
}

func (uc *ListingUsecase) cacheDelete(ctx context.Context, listingID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, listingID); err != nil {
		uc.logger.Warn("failed to invalidate listing cache", zap.Error(err), zap.String("listing_id", listingID))
	}
}

func (uc *ListingUsecase) observe(method string, start time.Time) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.OperationLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (uc *ListingUsecase) countError(method string, err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.OperationErrorsTotal.WithLabelValues(method, errorKind(err)).Inc()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrSaleNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

func validatePagination(page, size int64) error {
	if page < 0 {
		return fmt.Errorf("%w: page must not be negative, got %d", domain.ErrInvalidArgument, page)
	}
	if size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", domain.ErrInvalidArgument, size)
	}
	return nil
}

// validateAttributes checks every supplied value against the category's
// attribute definitions: the definition must exist and the tagged value must
// match its declared type.
func validateAttributes(category *domain.Category, attrs []domain.AttributeValue) error {
	defs := make(map[string]domain.AttributeDefinition, len(category.Attributes))
	for _, def := range category.Attributes {
		defs[def.ID] = def
	}
	for _, attr := range attrs {
		def, ok := defs[attr.DefinitionID]
		if !ok {
			return fmt.Errorf("%w: attribute %s is not defined on category %s",
				domain.ErrValidation, attr.DefinitionID, category.ID)
		}
		if !attr.Value.Matches(def) {
			return fmt.Errorf("%w: attribute %s expects %s, got %s",
				domain.ErrValidation, def.Name, def.Type, attr.Value.Type)
		}
	}
	return nil
}
