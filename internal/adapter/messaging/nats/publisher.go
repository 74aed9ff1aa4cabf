package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/adilet-k/bazarly/internal/listing/domain"
)

const (
	subjectListingCreated = "listing.created"
	subjectListingUpdated = "listing.updated"
	subjectListingDeleted = "listing.deleted"
	subjectStatusChanged  = "listing.status.updated"
	subjectListingSold    = "listing.sold"
)

// Publisher emits listing lifecycle events as JSON messages.
type Publisher struct {
	conn *nats.Conn
}

func NewPublisher(conn *nats.Conn) (*Publisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("NATS connection cannot be nil")
	}
	return &Publisher{conn: conn}, nil
}

type listingEvent struct {
	ListingID  string    `json:"listing_id"`
	OwnerID    string    `json:"owner_id,omitempty"`
	CategoryID string    `json:"category_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	From       string    `json:"from,omitempty"`
	Price      float64   `json:"price,omitempty"`
	SaleID     string    `json:"sale_id,omitempty"`
	SoldAt     time.Time `json:"sold_at,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (p *Publisher) PublishListingCreated(ctx context.Context, listing *domain.Listing) error {
	return p.publish(subjectListingCreated, listingEvent{
		ListingID:  listing.ID,
		OwnerID:    listing.OwnerID,
		CategoryID: listing.CategoryID,
		Status:     string(listing.Status),
		Price:      listing.Price,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) PublishListingUpdated(ctx context.Context, listing *domain.Listing) error {
	return p.publish(subjectListingUpdated, listingEvent{
		ListingID:  listing.ID,
		OwnerID:    listing.OwnerID,
		CategoryID: listing.CategoryID,
		Status:     string(listing.Status),
		Price:      listing.Price,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) PublishListingDeleted(ctx context.Context, listingID string) error {
	return p.publish(subjectListingDeleted, listingEvent{
		ListingID:  listingID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) PublishStatusChanged(ctx context.Context, listing *domain.Listing, from domain.ListingStatus) error {
	return p.publish(subjectStatusChanged, listingEvent{
		ListingID:  listing.ID,
		OwnerID:    listing.OwnerID,
		Status:     string(listing.Status),
		From:       string(from),
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) PublishListingSold(ctx context.Context, listing *domain.Listing, sale *domain.Sale) error {
	return p.publish(subjectListingSold, listingEvent{
		ListingID:  listing.ID,
		OwnerID:    listing.OwnerID,
		CategoryID: listing.CategoryID,
		Status:     string(listing.Status),
		Price:      sale.Price,
		SaleID:     sale.ID,
		SoldAt:     sale.SoldAt,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, event listingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.conn.Close()
}
