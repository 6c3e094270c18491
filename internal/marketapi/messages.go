package marketapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jdholdren/bazaar/internal/market"
)

type sendMessageReq struct {
	Content    string `json:"content"`
	ReceiverID string `json:"receiverId"`
	ListingID  string `json:"listingId"`
}

// SendMessage messages the seller of a listing as the logged in user.
func (c *Client) SendMessage(ctx context.Context, listingID, receiverID, content string) (market.Message, error) {
	req, err := jsonRequest(http.MethodPost, "/messages", sendMessageReq{
		Content:    content,
		ReceiverID: receiverID,
		ListingID:  listingID,
	})
	if err != nil {
		return market.Message{}, err
	}
	req.auth = true

	var raw rawMessage
	if err := c.do(ctx, req, &raw); err != nil {
		return market.Message{}, fmt.Errorf("error sending message: %w", err)
	}

	return raw.message(), nil
}
