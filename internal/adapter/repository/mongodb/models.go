package mongodb

import (
	"time"

	"github.com/adilet-k/bazarly/internal/listing/domain"
)

type listingDocument struct {
	ID          string                   `bson:"_id"`
	OwnerID     string                   `bson:"owner_id"`
	CategoryID  string                   `bson:"category_id"`
	Title       string                   `bson:"title"`
	Description string                   `bson:"description"`
	Price       float64                  `bson:"price"`
	Address     string                   `bson:"address,omitempty"`
	PostalCode  string                   `bson:"postal_code,omitempty"`
	Latitude    float64                  `bson:"latitude,omitempty"`
	Longitude   float64                  `bson:"longitude,omitempty"`
	Attributes  []attributeValueDocument `bson:"attributes,omitempty"`
	Photos      []string                 `bson:"photos,omitempty"`
	Status      string                   `bson:"status"`
	CreatedAt   time.Time                `bson:"created_at"`
	UpdatedAt   time.Time                `bson:"updated_at"`
}

// attributeValueDocument stores a tagged value; only the field selected by
// Type is meaningful.
type attributeValueDocument struct {
	DefinitionID string  `bson:"definition_id"`
	Type         string  `bson:"type"`
	Str          string  `bson:"str,omitempty"`
	Num          float64 `bson:"num,omitempty"`
	Bool         bool    `bson:"bool,omitempty"`
}

type categoryDocument struct {
	ID         string                        `bson:"_id"`
	Name       string                        `bson:"name"`
	Attributes []attributeDefinitionDocument `bson:"attributes,omitempty"`
}

type attributeDefinitionDocument struct {
	ID   string `bson:"id"`
	Name string `bson:"name"`
	Type string `bson:"type"`
}

type saleDocument struct {
	ID        string    `bson:"_id"`
	ListingID string    `bson:"listing_id"`
	Price     float64   `bson:"price"`
	SoldAt    time.Time `bson:"sold_at"`
}

type browseEntryDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ListingID string    `bson:"listing_id"`
	ViewedAt  time.Time `bson:"viewed_at"`
}

func toListingDocument(l *domain.Listing) *listingDocument {
	attrs := make([]attributeValueDocument, 0, len(l.Attributes))
	for _, a := range l.Attributes {
		attrs = append(attrs, attributeValueDocument{
			DefinitionID: a.DefinitionID,
			Type:         string(a.Value.Type),
			Str:          a.Value.Str,
			Num:          a.Value.Num,
			Bool:         a.Value.Bool,
		})
	}
	return &listingDocument{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		CategoryID:  l.CategoryID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Address:     l.Address,
		PostalCode:  l.PostalCode,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		Attributes:  attrs,
		Photos:      l.Photos,
		Status:      string(l.Status),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func toDomainListing(d *listingDocument) *domain.Listing {
	attrs := make([]domain.AttributeValue, 0, len(d.Attributes))
	for _, a := range d.Attributes {
		attrs = append(attrs, domain.AttributeValue{
			DefinitionID: a.DefinitionID,
			Value: domain.TypedValue{
				Type: domain.AttributeType(a.Type),
				Str:  a.Str,
				Num:  a.Num,
				Bool: a.Bool,
			},
		})
	}
	return &domain.Listing{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		CategoryID:  d.CategoryID,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Address:     d.Address,
		PostalCode:  d.PostalCode,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		Attributes:  attrs,
		Photos:      d.Photos,
		Status:      domain.ListingStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func toDomainListings(docs []*listingDocument) []*domain.Listing {
	listings := make([]*domain.Listing, 0, len(docs))
	for _, doc := range docs {
		listings = append(listings, toDomainListing(doc))
	}
	return listings
}

func toDomainCategory(d *categoryDocument) *domain.Category {
	defs := make([]domain.AttributeDefinition, 0, len(d.Attributes))
	for _, a := range d.Attributes {
		defs = append(defs, domain.AttributeDefinition{
			ID:   a.ID,
			Name: a.Name,
			Type: domain.AttributeType(a.Type),
		})
	}
	return &domain.Category{ID: d.ID, Name: d.Name, Attributes: defs}
}

func toSaleDocument(s *domain.Sale) *saleDocument {
	return &saleDocument{
		ID:        s.ID,
		ListingID: s.ListingID,
		Price:     s.Price,
		SoldAt:    s.SoldAt,
	}
}

func toDomainSale(d *saleDocument) *domain.Sale {
	return &domain.Sale{
		ID:        d.ID,
		ListingID: d.ListingID,
		Price:     d.Price,
		SoldAt:    d.SoldAt,
	}
}

func toBrowseEntryDocument(e *domain.BrowseEntry) *browseEntryDocument {
	return &browseEntryDocument{
		ID:        e.ID,
		UserID:    e.UserID,
		ListingID: e.ListingID,
		ViewedAt:  e.ViewedAt,
	}
}

func toDomainBrowseEntry(d *browseEntryDocument) *domain.BrowseEntry {
	return &domain.BrowseEntry{
		ID:        d.ID,
		UserID:    d.UserID,
		ListingID: d.ListingID,
		ViewedAt:  d.ViewedAt,
	}
}
