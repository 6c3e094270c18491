package marketapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/price"
)

// timestamp accepts the backend's zone-less ISO timestamps as well as RFC 3339.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *timestamp) UnmarshalJSON(byts []byte) error {
	s := strings.Trim(string(byts), `"`)
	if s == "" || s == "null" {
		return nil
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("unrecognised timestamp %q", s)
}

// Represents a listing as the backend sends it.
type rawListing struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       price.Price `json:"price"`
	Category    string      `json:"category"`
	Images      []string    `json:"images"`
	ImageURLs   []string    `json:"imageUrls"`
	UserID      string      `json:"userId"`
	SellerID    string      `json:"sellerId"`
	CreatedAt   timestamp   `json:"createdAt"`
	UpdatedAt   timestamp   `json:"updatedAt"`
}

// images picks the canonical image list: imageUrls when sent, then images.
func (r rawListing) images() []string {
	switch {
	case r.ImageURLs != nil:
		return r.ImageURLs
	case r.Images != nil:
		return r.Images
	default:
		return []string{}
	}
}

func (r rawListing) listing() market.Listing {
	seller := r.SellerID
	if seller == "" {
		seller = r.UserID
	}

	return market.Listing{
		ListingSummary: market.ListingSummary{
			ID:          r.ID,
			Title:       strings.TrimSpace(r.Title),
			Description: r.Description,
			Price:       r.Price,
			Category:    r.Category,
			Images:      r.images(),
			CreatedAt:   r.CreatedAt.Time,
		},
		SellerID:  seller,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func (r rawListing) summary() market.ListingSummary {
	s := r.listing().ListingSummary
	s.Description = sanitize(s.Description)
	return s
}

var stripPolicy = bluemonday.StrictPolicy()

const maxSummaryDescription = 2048

// Removes all html tags from the string, usually a description.
//
// Also limits the length of the string so the feed cards stay small.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = stripPolicy.Sanitize(s)
	if len(s) <= maxSummaryDescription {
		return s
	}

	cut := maxSummaryDescription
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

type rawUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	City         string    `json:"city"`
	District     string    `json:"district"`
	Address      string    `json:"address"`
	PhoneNumber  string    `json:"phoneNumber"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    timestamp `json:"createdAt"`
	UpdatedAt    timestamp `json:"updatedAt"`
}

func (r rawUser) user() market.User {
	return market.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		City:         r.City,
		District:     r.District,
		Address:      r.Address,
		PhoneNumber:  r.PhoneNumber,
		ProfileImage: r.ProfileImage,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

type rawMessage struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	ListingID  string    `json:"listingId"`
	CreatedAt  timestamp `json:"createdAt"`
}

func (r rawMessage) message() market.Message {
	return market.Message{
		ID:         r.ID,
		Content:    r.Content,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		ListingID:  r.ListingID,
		CreatedAt:  r.CreatedAt.Time,
	}
}

type rawNotification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	Read      *bool     `json:"read"` // Older backends
	CreatedAt timestamp `json:"createdAt"`
}

func (r rawNotification) notification() market.Notification {
	read := r.IsRead
	if r.Read != nil {
		read = read || *r.Read
	}

	return market.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Message:   r.Message,
		IsRead:    read,
		CreatedAt: r.CreatedAt.Time,
	}
}

// The login response.
type loginResp struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}
