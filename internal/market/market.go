// Package market holds the domain types of the marketplace as the BFF sees them.
//
// Everything here is owned by the remote backend; these are the shapes it hands
// back once normalised by the API client.
package market

import (
	"errors"
	"time"

	"github.com/jdholdren/bazaar/internal/price"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("not logged in")
	ErrForbidden    = errors.New("not allowed")
)

type (
	// ListingSummary is what the feed renders for each listing.
	ListingSummary struct {
		ID          string      `json:"id"`
		Title       string      `json:"title"`
		Description string      `json:"description"`
		Price       price.Price `json:"price"`
		Category    string      `json:"category"`
		Images      []string    `json:"images"`
		CreatedAt   time.Time   `json:"createdAt"`
	}

	// Listing is a full listing, as shown on its own page.
	Listing struct {
		ListingSummary

		SellerID  string    `json:"sellerId"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// ListingInput is the body for creating or updating a listing.
	ListingInput struct {
		Title       string      `json:"title"`
		Description string      `json:"description"`
		Price       price.Price `json:"price"`
		Category    string      `json:"category"`
		ImageURLs   []string    `json:"imageUrls"`
	}
)

// Category values the search form offers.
const (
	CategoryElectronics = "electronics"
	CategoryFurniture   = "furniture"
	CategoryClothing    = "clothing"
	CategoryBooks       = "books"
)

var Categories = []string{CategoryElectronics, CategoryFurniture, CategoryClothing, CategoryBooks}

func KnownCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}

	return false
}
