package marketapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jdholdren/bazaar/internal/market"
)

// Notifications are the logged in user's notifications.
func (c *Client) Notifications(ctx context.Context) ([]market.Notification, error) {
	id := c.sess.User().ID

	var raws []rawNotification
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/notifications/" + url.PathEscape(id),
		auth:   true,
	}, &raws)
	if err != nil {
		return nil, fmt.Errorf("error fetching notifications: %w", err)
	}

	ret := make([]market.Notification, 0, len(raws))
	for _, raw := range raws {
		ret = append(ret, raw.notification())
	}

	return ret, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/notifications/" + url.PathEscape(id) + "/read",
		auth:   true,
	}, nil)
	if err != nil {
		return fmt.Errorf("error marking notification %s read: %w", id, err)
	}

	return nil
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/notifications/" + url.PathEscape(id),
		auth:   true,
	}, nil)
	if err != nil {
		return fmt.Errorf("error deleting notification %s: %w", id, err)
	}

	return nil
}
