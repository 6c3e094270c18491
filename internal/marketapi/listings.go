package marketapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/jdholdren/bazaar/internal/market"
)

// SearchListings fetches one zero-based page of listings matching the criteria.
func (c *Client) SearchListings(ctx context.Context, criteria market.FilterCriteria, page, size int) ([]market.ListingSummary, error) {
	var raws []rawListing
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/listings/search",
		query:  criteria.Values(page, size),
	}, &raws)
	if err != nil {
		return nil, fmt.Errorf("error searching listings: %w", err)
	}

	ret := make([]market.ListingSummary, 0, len(raws))
	for _, raw := range raws {
		ret = append(ret, raw.summary())
	}

	return ret, nil
}

func (c *Client) Listing(ctx context.Context, id string) (market.Listing, error) {
	var raw rawListing
	if err := c.do(ctx, request{method: http.MethodGet, path: "/listings/" + url.PathEscape(id)}, &raw); err != nil {
		return market.Listing{}, fmt.Errorf("error fetching listing %s: %w", id, err)
	}

	return raw.listing(), nil
}

// UserListings are the listings a user has published, newest first as the backend orders them.
func (c *Client) UserListings(ctx context.Context, userID string) ([]market.Listing, error) {
	var raws []rawListing
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/listings/user/" + url.PathEscape(userID),
		auth:   true,
	}, &raws)
	if err != nil {
		return nil, fmt.Errorf("error fetching listings of user %s: %w", userID, err)
	}

	ret := make([]market.Listing, 0, len(raws))
	for _, raw := range raws {
		ret = append(ret, raw.listing())
	}

	return ret, nil
}

func (c *Client) CreateListing(ctx context.Context, in market.ListingInput) (market.Listing, error) {
	req, err := jsonRequest(http.MethodPost, "/listings/create", withImages(in))
	if err != nil {
		return market.Listing{}, err
	}
	req.auth = true

	var raw rawListing
	if err := c.do(ctx, req, &raw); err != nil {
		return market.Listing{}, fmt.Errorf("error creating listing: %w", err)
	}

	return raw.listing(), nil
}

func (c *Client) UpdateListing(ctx context.Context, id string, in market.ListingInput) (market.Listing, error) {
	req, err := jsonRequest(http.MethodPut, "/listings/update/"+url.PathEscape(id), withImages(in))
	if err != nil {
		return market.Listing{}, err
	}
	req.auth = true

	var raw rawListing
	if err := c.do(ctx, req, &raw); err != nil {
		return market.Listing{}, fmt.Errorf("error updating listing %s: %w", id, err)
	}

	return raw.listing(), nil
}

func (c *Client) DeleteListing(ctx context.Context, id string) error {
	err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/listings/delete/" + url.PathEscape(id),
		auth:   true,
	}, nil)
	if err != nil {
		return fmt.Errorf("error deleting listing %s: %w", id, err)
	}

	return nil
}

// UploadImage stores an image with the backend and returns the URL it is served from.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("error buffering image: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("error closing multipart body: %w", err)
	}

	var u string
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/listings/upload",
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
		auth:        true,
	}, &u)
	if err != nil {
		return "", fmt.Errorf("error uploading image: %w", err)
	}

	return u, nil
}

// The backend reads both image fields depending on its version.
type listingBody struct {
	market.ListingInput
	Images []string `json:"images"`
}

func withImages(in market.ListingInput) listingBody {
	if in.ImageURLs == nil {
		in.ImageURLs = []string{}
	}

	return listingBody{ListingInput: in, Images: in.ImageURLs}
}
