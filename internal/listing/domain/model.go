package domain

import "time"

// Listing is a user-created marketplace post under a category.
type Listing struct {
	ID          string
	OwnerID     string
	CategoryID  string
	Title       string
	Description string
	Price       float64
	Address     string
	PostalCode  string
	Latitude    float64
	Longitude   float64
	Attributes  []AttributeValue
	Photos      []string // URLs only, blob storage lives elsewhere
	Status      ListingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category groups listings and declares which custom attributes they may carry.
type Category struct {
	ID         string
	Name       string
	Attributes []AttributeDefinition
}

// AttributeDefinition is a (name, type) pair declared per category.
type AttributeDefinition struct {
	ID   string
	Name string
	Type AttributeType
}

// AttributeValue binds a listing's value to one of its category's definitions.
type AttributeValue struct {
	DefinitionID string
	Value        TypedValue
}

// Sale records the price and time at which a listing was sold. Exactly one
// sale is created per successful transition into StatusSold.
type Sale struct {
	ID        string
	ListingID string
	Price     float64
	SoldAt    time.Time
}

// BrowseEntry is one append-only view event: user U opened listing L at T.
type BrowseEntry struct {
	ID        string
	UserID    string
	ListingID string
	ViewedAt  time.Time
}

// Filter narrows catalogue searches. Zero values mean "not filtered".
type Filter struct {
	Page           int64
	Size           int64
	CategoryID     string
	Query          string
	MinPrice       float64
	MaxPrice       float64
	CreatedAfter   time.Time
	Status         ListingStatus
	OwnerID        string
	ExcludeOwnerID string
}

// ListingPage is one page of listings together with the pagination echo.
type ListingPage struct {
	Listings []*Listing
	Page     int64
	Size     int64
	Total    int64
}
