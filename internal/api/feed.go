package api

import (
	"context"
	"net/http"

	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/serverutil"
)

type (
	FeedResp struct {
		Items     []FeedItem            `json:"items"`
		Page      int                   `json:"page"`
		HasMore   bool                  `json:"hasMore"`
		IsLoading bool                  `json:"isLoading"`
		Criteria  market.FilterCriteria `json:"criteria"`

		// Set by the visibility trigger: whether it started a load.
		Started *bool `json:"started,omitempty"`
	}

	FeedItem struct {
		market.ListingSummary
		PriceText  string `json:"priceText"`
		IsFavorite bool   `json:"isFavorite"`
	}
)

func (s *Server) feedResp(ws *workspace) FeedResp {
	state := ws.feed.State()

	resp := FeedResp{
		Items:     make([]FeedItem, 0, len(state.Items)),
		Page:      state.Page,
		HasMore:   state.HasMore,
		IsLoading: state.IsLoading,
		Criteria:  state.Criteria,
	}
	for _, l := range state.Items {
		resp.Items = append(resp.Items, FeedItem{
			ListingSummary: l,
			PriceText:      l.Price.Format(),
			IsFavorite:     ws.favs.IsFavorite(l.ID),
		})
	}

	return resp
}

func (s *Server) getFeed(w http.ResponseWriter, r *http.Request) error {
	ws := workspaceFrom(r.Context())
	return serverutil.WriteJSON(w, http.StatusOK, s.feedResp(ws))
}

// Wraps the criteria so the body can be validated before it reaches the feed.
type searchReq struct {
	market.FilterCriteria
}

func (req searchReq) Validate() error {
	return req.FilterCriteria.Normalize().Validate()
}

// postFeedSearch starts a new search and kicks off loading its first page.
func (s *Server) postFeedSearch(w http.ResponseWriter, r *http.Request) error {
	ws := workspaceFrom(r.Context())
	body, err := serverutil.DecodeValid[searchReq](r.Body)
	if err != nil {
		return err
	}

	if err := ws.feed.ResetAndSearch(body.FilterCriteria); err != nil {
		return err
	}
	started := ws.feed.OnVisibilityReached(loadContext(r.Context()))

	resp := s.feedResp(ws)
	resp.Started = &started
	return serverutil.WriteJSON(w, http.StatusAccepted, resp)
}

// postFeedVisible is sent by the client when the end of the feed scrolls into view.
func (s *Server) postFeedVisible(w http.ResponseWriter, r *http.Request) error {
	ws := workspaceFrom(r.Context())
	started := ws.feed.OnVisibilityReached(loadContext(r.Context()))

	resp := s.feedResp(ws)
	resp.Started = &started
	return serverutil.WriteJSON(w, http.StatusAccepted, resp)
}

// postFeedNext loads the next page before answering.
func (s *Server) postFeedNext(w http.ResponseWriter, r *http.Request) error {
	ws := workspaceFrom(r.Context())
	if err := ws.feed.LoadNextPage(r.Context()); err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, s.feedResp(ws))
}

// Background loads outlive the request that started them but keep its log attributes.
func loadContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

