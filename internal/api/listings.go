package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	goaway "github.com/TwiN/go-away"
	"github.com/gorilla/mux"
	"github.com/sym01/htmlsanitizer"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/price"
	"github.com/jdholdren/bazaar/internal/serverutil"
)

// listing reads through the local cache, refreshing copies older than the TTL.
func (s *Server) listing(ctx context.Context, ws *workspace, id string) (market.Listing, error) {
	cached, err := s.cache.Listing(ctx, id)
	switch {
	case err == nil && !cached.Stale(s.now(), s.listingTTL):
		return cached.Listing, nil
	case err != nil && !errors.Is(err, market.ErrNotFound):
		slog.WarnContext(ctx, "error reading listing cache", "listing", id, "error", err)
	}

	l, err := ws.client.Listing(ctx, id)
	if errors.Is(err, market.ErrNotFound) {
		s.forget(ctx, id)
		return market.Listing{}, err
	}
	if err != nil {
		return market.Listing{}, err
	}
	s.remember(ctx, l)

	return l, nil
}

func (s *Server) remember(ctx context.Context, l market.Listing) {
	if err := s.cache.PutListing(ctx, l); err != nil {
		slog.WarnContext(ctx, "error caching listing", "listing", l.ID, "error", err)
	}
}

func (s *Server) forget(ctx context.Context, id string) {
	if err := s.cache.DeleteListing(ctx, id); err != nil {
		slog.WarnContext(ctx, "error dropping cached listing", "listing", id, "error", err)
	}
}

// seller looks a user up through the in-memory profile cache.
func (s *Server) seller(ctx context.Context, ws *workspace, id string) (market.User, error) {
	if usr, ok := s.sellerCache.Get(id); ok {
		return usr, nil
	}

	usr, err := ws.client.Profile(ctx, id)
	if err != nil {
		return market.User{}, err
	}
	s.sellerCache.Add(id, usr)

	return usr, nil
}

type (
	ListingResp struct {
		market.Listing
		PriceText       string      `json:"priceText"`
		DescriptionHTML string      `json:"descriptionHtml"`
		Seller          *SellerResp `json:"seller,omitempty"`
		IsFavorite      bool        `json:"isFavorite"`
		IsOwner         bool        `json:"isOwner"`
	}

	SellerResp struct {
		ID           string `json:"id"`
		DisplayName  string `json:"displayName"`
		City         string `json:"city,omitempty"`
		District     string `json:"district,omitempty"`
		ProfileImage string `json:"profileImage,omitempty"`
	}
)

func (s *Server) getListing(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
		id  = mux.Vars(r)["id"]
	)

	l, err := s.listing(ctx, ws, id)
	if err != nil {
		return err
	}

	sanitizer := htmlsanitizer.NewHTMLSanitizer()
	desc, err := sanitizer.SanitizeString(l.Description)
	if err != nil {
		return fmt.Errorf("error sanitizing description: %w", err)
	}

	resp := ListingResp{
		Listing:         l,
		PriceText:       l.Price.Format(),
		DescriptionHTML: desc,
		IsFavorite:      ws.favs.IsFavorite(l.ID),
		IsOwner:         ws.sess.Active() && ws.sess.User().ID == l.SellerID,
	}

	if l.SellerID != "" {
		// The listing is still worth showing without its seller.
		usr, err := s.seller(ctx, ws, l.SellerID)
		if err != nil {
			slog.WarnContext(ctx, "error fetching seller", "seller", l.SellerID, "error", err)
		} else {
			resp.Seller = &SellerResp{
				ID:           usr.ID,
				DisplayName:  usr.DisplayName(),
				City:         usr.City,
				District:     usr.District,
				ProfileImage: usr.ProfileImage,
			}
		}
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

// listingForm is what the create and edit forms submit, price split in two.
type listingForm struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Lira        string   `json:"lira"`
	Kurus       string   `json:"kurus"`
	Category    string   `json:"category"`
	ImageURLs   []string `json:"imageUrls"`
}

const (
	minTitleLength       = 3
	minDescriptionLength = 10
)

// input validates the form. Creating a listing needs at least one image.
func (f listingForm) input(creating bool) (market.ListingInput, error) {
	var (
		details  []bazerrs.Detail
		title    = strings.TrimSpace(f.Title)
		desc     = strings.TrimSpace(f.Description)
		category = strings.ToLower(strings.TrimSpace(f.Category))
	)

	switch {
	case utf8.RuneCountInString(title) < minTitleLength:
		details = append(details, bazerrs.Detail{Field: "title", Error: "Title must be at least 3 characters."})
	case goaway.IsProfane(title):
		details = append(details, bazerrs.Detail{Field: "title", Error: "Title contains inappropriate language."})
	}
	if utf8.RuneCountInString(desc) < minDescriptionLength {
		details = append(details, bazerrs.Detail{Field: "description", Error: "Description must be at least 10 characters."})
	}
	if !market.KnownCategory(category) {
		details = append(details, bazerrs.Detail{Field: "category", Error: "Please select a category."})
	}

	images := make([]string, 0, len(f.ImageURLs))
	for _, u := range f.ImageURLs {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}
	if creating && len(images) == 0 {
		details = append(details, bazerrs.Detail{Field: "imageUrls", Error: "At least one image is required."})
	}

	p, err := price.Split(f.Lira, f.Kurus)
	var priceErr *bazerrs.Error
	if errors.As(err, &priceErr) {
		details = append(details, priceErr.Details...)
	} else if err != nil {
		return market.ListingInput{}, err
	}

	if err := bazerrs.Invalid("invalid listing", details); err != nil {
		return market.ListingInput{}, err
	}

	return market.ListingInput{
		Title:       title,
		Description: desc,
		Price:       p,
		Category:    category,
		ImageURLs:   images,
	}, nil
}

func decodeForm(r io.Reader) (listingForm, error) {
	var f listingForm
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return f, bazerrs.E(fmt.Errorf("error decoding request: %w", err), http.StatusBadRequest)
	}

	return f, nil
}

func (s *Server) postListing(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)
	form, err := decodeForm(r.Body)
	if err != nil {
		return err
	}
	in, err := form.input(true)
	if err != nil {
		return err
	}

	l, err := ws.client.CreateListing(ctx, in)
	if err != nil {
		return err
	}
	s.remember(ctx, l)

	return serverutil.WriteJSON(w, http.StatusCreated, l)
}

// owned fetches a fresh copy of the listing and checks it belongs to the viewer.
func (s *Server) owned(ctx context.Context, ws *workspace, id string) (market.Listing, error) {
	l, err := ws.client.Listing(ctx, id)
	if errors.Is(err, market.ErrNotFound) {
		s.forget(ctx, id)
		return market.Listing{}, err
	}
	if err != nil {
		return market.Listing{}, err
	}
	if l.SellerID != ws.sess.User().ID {
		return market.Listing{}, bazerrs.E(fmt.Errorf("listing %s: %w", id, market.ErrForbidden), http.StatusForbidden)
	}

	return l, nil
}

func (s *Server) putListing(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
		id  = mux.Vars(r)["id"]
	)
	form, err := decodeForm(r.Body)
	if err != nil {
		return err
	}
	in, err := form.input(false)
	if err != nil {
		return err
	}

	existing, err := s.owned(ctx, ws, id)
	if err != nil {
		return err
	}
	if len(in.ImageURLs) == 0 {
		in.ImageURLs = existing.Images
	}

	l, err := ws.client.UpdateListing(ctx, id, in)
	if err != nil {
		return err
	}
	s.remember(ctx, l)

	return serverutil.WriteJSON(w, http.StatusOK, l)
}

func (s *Server) deleteListing(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
		id  = mux.Vars(r)["id"]
	)

	if _, err := s.owned(ctx, ws, id); err != nil {
		return err
	}
	if err := ws.client.DeleteListing(ctx, id); err != nil {
		return err
	}
	s.forget(ctx, id)

	w.WriteHeader(http.StatusNoContent)
	return nil
}

type MyListingsResp struct {
	Items      []ListingResp  `json:"items"`
	Pagination paginationMeta `json:"pagination"`
}

func (s *Server) getMyListings(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)
	limit, offset := parsePaginationParams(r, 20, 100)

	all, err := ws.client.UserListings(ctx, ws.sess.User().ID)
	if err != nil {
		return err
	}
	page, meta := paginate(all, limit, offset)

	resp := MyListingsResp{
		Items:      make([]ListingResp, 0, len(page)),
		Pagination: meta,
	}
	for _, l := range page {
		resp.Items = append(resp.Items, ListingResp{
			Listing:    l,
			PriceText:  l.Price.Format(),
			IsFavorite: ws.favs.IsFavorite(l.ID),
			IsOwner:    true,
		})
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

const maxImageSize = 5 << 20

type ImageResp struct {
	URL string `json:"url"`
}

func (s *Server) postListingImage(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<10)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		return bazerrs.E(fmt.Errorf("error reading upload: %w", err), http.StatusBadRequest)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return bazerrs.E("file is required", http.StatusBadRequest)
	}
	defer file.Close()

	byts, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("error reading upload: %w", err)
	}
	if !strings.HasPrefix(http.DetectContentType(byts), "image/") {
		return bazerrs.E("only images can be uploaded", http.StatusUnsupportedMediaType)
	}

	u, err := ws.client.UploadImage(ctx, hdr.Filename, bytes.NewReader(byts))
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, ImageResp{URL: u})
}
