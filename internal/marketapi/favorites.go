package marketapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Favorites are the listing IDs the logged in user has favorited.
func (c *Client) Favorites(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.do(ctx, request{method: http.MethodGet, path: "/user/favorites", auth: true}, &ids); err != nil {
		return nil, fmt.Errorf("error fetching favorites: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}

	return ids, nil
}

// ToggleFavorite flips the favorite state of the listing on the backend.
func (c *Client) ToggleFavorite(ctx context.Context, listingID string) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/user/favorites/toggle/" + url.PathEscape(listingID),
		auth:   true,
	}, nil)
	if err != nil {
		return fmt.Errorf("error toggling favorite %s: %w", listingID, err)
	}

	return nil
}
