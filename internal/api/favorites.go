package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/serverutil"
)

type FavoritesResp struct {
	Items []FeedItem `json:"items"`
}

// getFavorites lists the favorite listings, fetching the ones the cache can't answer.
func (s *Server) getFavorites(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)

	ids, err := ws.favs.IDs(ctx)
	if err != nil {
		return err
	}
	cached, err := s.cache.Listings(ctx, ids)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		found   = make(map[string]market.Listing, len(ids))
		g, gCtx = errgroup.WithContext(ctx)
	)
	g.SetLimit(4)
	for _, id := range ids {
		if c, ok := cached[id]; ok && !c.Stale(s.now(), s.listingTTL) {
			mu.Lock()
			found[id] = c.Listing
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			l, err := ws.client.Listing(gCtx, id)
			if errors.Is(err, market.ErrNotFound) {
				// Favorited, then deleted by its seller.
				s.forget(gCtx, id)
				return nil
			}
			if err != nil {
				return err
			}
			s.remember(gCtx, l)

			mu.Lock()
			found[id] = l
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	resp := FavoritesResp{Items: make([]FeedItem, 0, len(found))}
	for _, id := range ids {
		l, ok := found[id]
		if !ok {
			continue
		}
		resp.Items = append(resp.Items, FeedItem{
			ListingSummary: l.ListingSummary,
			PriceText:      l.Price.Format(),
			IsFavorite:     true,
		})
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

type ToggleResp struct {
	ListingID  string `json:"listingId"`
	IsFavorite bool   `json:"isFavorite"`
}

func (s *Server) postFavoriteToggle(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
		id  = mux.Vars(r)["listingID"]
	)

	on, err := ws.favs.Toggle(ctx, id)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, ToggleResp{ListingID: id, IsFavorite: on})
}
