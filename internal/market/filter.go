package market

import (
	"net/url"
	"strconv"
	"strings"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/jdholdren/bazaar/internal/price"
)

// FilterCriteria is the user's search: every field is optional.
type FilterCriteria struct {
	Keyword  string       `json:"keyword,omitempty"`
	Category string       `json:"category,omitempty"`
	MinPrice *price.Price `json:"minPrice,omitempty"`
	MaxPrice *price.Price `json:"maxPrice,omitempty"`
}

// Normalize trims the free text fields.
func (f FilterCriteria) Normalize() FilterCriteria {
	f.Keyword = strings.TrimSpace(f.Keyword)
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	return f
}

// Validate rejects criteria that should never reach the backend.
func (f FilterCriteria) Validate() error {
	var details []bazerrs.Detail
	if f.Category != "" && !KnownCategory(f.Category) {
		details = append(details, bazerrs.Detail{Field: "category", Error: "unknown category"})
	}
	if f.MinPrice != nil && *f.MinPrice < 0 {
		details = append(details, bazerrs.Detail{Field: "minPrice", Error: "must not be negative"})
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		details = append(details, bazerrs.Detail{Field: "maxPrice", Error: "must not be negative"})
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		details = append(details, bazerrs.Detail{Field: "minPrice", Error: "must not exceed maxPrice"})
	}

	return bazerrs.Invalid("invalid filter criteria", details)
}

// Values encodes the criteria as the search endpoint's query string.
func (f FilterCriteria) Values(page, size int) url.Values {
	v := url.Values{}
	if f.Keyword != "" {
		v.Set("keyword", f.Keyword)
	}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.MinPrice != nil {
		v.Set("minPrice", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		v.Set("maxPrice", f.MaxPrice.String())
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("size", strconv.Itoa(size))

	return v
}
