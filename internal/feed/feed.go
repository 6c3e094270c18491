// Package feed pages through listing search results for one viewer.
//
// A Controller accumulates pages as the viewer nears the end of what is shown.
// Resetting the search starts over, and results of fetches issued before the
// reset are dropped when they land.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jdholdren/bazaar/internal/market"
)

// DefaultPageSize is how many listings each fetch asks for.
const DefaultPageSize = 8

// Fetcher fetches one zero-based page of listings.
type Fetcher interface {
	SearchListings(ctx context.Context, criteria market.FilterCriteria, page, size int) ([]market.ListingSummary, error)
}

// State is a snapshot of a controller; changing it changes nothing.
type State struct {
	Items     []market.ListingSummary `json:"items"`
	Page      int                     `json:"page"`
	HasMore   bool                    `json:"hasMore"`
	IsLoading bool                    `json:"isLoading"`
	Criteria  market.FilterCriteria   `json:"criteria"`
}

type Controller struct {
	fetcher Fetcher
	size    int
	report  func(error)

	mu       sync.Mutex
	criteria market.FilterCriteria
	items    []market.ListingSummary
	seen     map[string]struct{}
	page     int
	hasMore  bool
	loading  bool
	gen      uint64 // Bumped on every reset

	wg sync.WaitGroup
}

type Option func(*Controller)

func WithPageSize(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithReporter sets where failed fetches are reported, in addition to being returned.
func WithReporter(fn func(error)) Option {
	return func(c *Controller) {
		c.report = fn
	}
}

// New returns a controller with empty criteria, ready to load the first page.
func New(fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher: fetcher,
		size:    DefaultPageSize,
		report: func(err error) {
			slog.Error("error loading listings", "error", err)
		},
		seen:    map[string]struct{}{},
		hasMore: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Describes a fetch that has been started.
type ticket struct {
	gen      uint64
	page     int
	criteria market.FilterCriteria
}

// begin marks the controller loading, unless it already is or has nothing more to load.
func (c *Controller) begin() (ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loading || !c.hasMore {
		return ticket{}, false
	}
	c.loading = true

	return ticket{gen: c.gen, page: c.page, criteria: c.criteria}, true
}

// LoadNextPage fetches the next page and appends the listings not already shown.
//
// It does nothing when a load is in progress or the last page has been reached.
// A failed fetch leaves the feed as it was, so the same page can be tried again.
func (c *Controller) LoadNextPage(ctx context.Context) error {
	t, ok := c.begin()
	if !ok {
		return nil
	}

	return c.load(ctx, t)
}

func (c *Controller) load(ctx context.Context, t ticket) error {
	got, err := c.fetcher.SearchListings(ctx, t.criteria, t.page, c.size)

	c.mu.Lock()
	if t.gen != c.gen {
		c.mu.Unlock()
		slog.DebugContext(ctx, "dropping listings of a superseded search", "page", t.page)
		return nil
	}
	c.loading = false
	if err != nil {
		c.mu.Unlock()
		c.report(err)
		return err
	}

	for _, l := range got {
		if _, ok := c.seen[l.ID]; ok {
			continue
		}
		c.seen[l.ID] = struct{}{}
		c.items = append(c.items, l)
	}
	// A short page means the backend has run out, duplicates included.
	c.hasMore = len(got) == c.size
	c.page++
	c.mu.Unlock()

	return nil
}

// ResetAndSearch replaces the criteria and empties the feed without fetching.
//
// Invalid criteria are rejected and the feed is left untouched.
func (c *Controller) ResetAndSearch(criteria market.FilterCriteria) error {
	criteria = criteria.Normalize()
	if err := criteria.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.criteria = criteria
	c.items = nil
	c.seen = map[string]struct{}{}
	c.page = 0
	c.hasMore = true
	c.loading = false

	return nil
}

// OnVisibilityReached is the signal that the end of the feed is in view.
//
// It starts loading the next page in the background, reporting whether a load was started.
func (c *Controller) OnVisibilityReached(ctx context.Context) bool {
	t, ok := c.begin()
	if !ok {
		return false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.load(ctx, t) // Failures go to the reporter
	}()

	return true
}

// Wait blocks until every background load has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]market.ListingSummary, len(c.items))
	copy(items, c.items)

	return State{
		Items:     items,
		Page:      c.page,
		HasMore:   c.hasMore,
		IsLoading: c.loading,
		Criteria:  c.criteria,
	}
}
