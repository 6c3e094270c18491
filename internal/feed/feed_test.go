package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/price"
)

type call struct {
	criteria market.FilterCriteria
	page     int
	size     int
}

// pagedFetcher serves fixed pages and records every call.
type pagedFetcher struct {
	mu    sync.Mutex
	pages [][]market.ListingSummary
	err   error
	calls []call
}

func (f *pagedFetcher) SearchListings(_ context.Context, criteria market.FilterCriteria, page, size int) ([]market.ListingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call{criteria: criteria, page: page, size: size})
	if f.err != nil {
		return nil, f.err
	}
	if page >= len(f.pages) {
		return nil, nil
	}
	return f.pages[page], nil
}

func (f *pagedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// blockingFetcher holds every call until its reply is sent.
type blockingFetcher struct {
	started chan *pending
}

type pending struct {
	call
	reply chan []market.ListingSummary
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{started: make(chan *pending, 4)}
}

func (f *blockingFetcher) SearchListings(_ context.Context, criteria market.FilterCriteria, page, size int) ([]market.ListingSummary, error) {
	p := &pending{
		call:  call{criteria: criteria, page: page, size: size},
		reply: make(chan []market.ListingSummary),
	}
	f.started <- p
	return <-p.reply, nil
}

func listings(prefix string, n int) []market.ListingSummary {
	ret := make([]market.ListingSummary, n)
	for i := range ret {
		ret[i] = market.ListingSummary{
			ID:     fmt.Sprintf("%s-%d", prefix, i),
			Title:  fmt.Sprintf("Listing %s %d", prefix, i),
			Price:  price.Price(100 * (i + 1)),
			Images: []string{},
		}
	}
	return ret
}

func ids(items []market.ListingSummary) []string {
	ret := make([]string, len(items))
	for i, l := range items {
		ret[i] = l.ID
	}
	return ret
}

func TestFullThenShortPage(t *testing.T) {
	f := &pagedFetcher{pages: [][]market.ListingSummary{listings("a", 8), listings("b", 3)}}
	c := New(f)

	require.NoError(t, c.LoadNextPage(t.Context()))
	s := c.State()
	assert.Len(t, s.Items, 8)
	assert.Equal(t, 1, s.Page)
	assert.True(t, s.HasMore)

	require.NoError(t, c.LoadNextPage(t.Context()))
	s = c.State()
	assert.Len(t, s.Items, 11)
	assert.Equal(t, 2, s.Page)
	assert.False(t, s.HasMore)
	assert.False(t, s.IsLoading)

	// Exhausted: no further fetch.
	require.NoError(t, c.LoadNextPage(t.Context()))
	assert.False(t, c.OnVisibilityReached(t.Context()))
	assert.Equal(t, 2, f.callCount())

	assert.Equal(t, []call{
		{page: 0, size: DefaultPageSize},
		{page: 1, size: DefaultPageSize},
	}, f.calls)
}

func TestItemsKeepFetchOrderWithoutDuplicates(t *testing.T) {
	first := listings("a", 4)
	second := append([]market.ListingSummary{first[1], first[3]}, listings("b", 2)...)
	f := &pagedFetcher{pages: [][]market.ListingSummary{first, second, listings("c", 1)}}
	c := New(f, WithPageSize(4))

	require.NoError(t, c.LoadNextPage(t.Context()))
	require.NoError(t, c.LoadNextPage(t.Context()))

	s := c.State()
	assert.Equal(t, []string{"a-0", "a-1", "a-2", "a-3", "b-0", "b-1"}, ids(s.Items))
	// The second page was full before dedup so there may be more.
	assert.True(t, s.HasMore)

	require.NoError(t, c.LoadNextPage(t.Context()))
	s = c.State()
	assert.Equal(t, []string{"a-0", "a-1", "a-2", "a-3", "b-0", "b-1", "c-0"}, ids(s.Items))
	assert.False(t, s.HasMore)
}

func TestEmptyFirstPageIsTerminal(t *testing.T) {
	f := &pagedFetcher{}
	c := New(f)

	require.NoError(t, c.LoadNextPage(t.Context()))
	s := c.State()
	assert.Empty(t, s.Items)
	assert.False(t, s.HasMore)
	assert.Equal(t, 1, s.Page)
}

func TestResetAndSearch(t *testing.T) {
	f := &pagedFetcher{pages: [][]market.ListingSummary{listings("a", 8)}}
	c := New(f)
	require.NoError(t, c.LoadNextPage(t.Context()))

	minPrice := price.Price(1000)
	require.NoError(t, c.ResetAndSearch(market.FilterCriteria{Keyword: " lamp ", Category: "Furniture", MinPrice: &minPrice}))

	s := c.State()
	assert.Empty(t, s.Items)
	assert.Zero(t, s.Page)
	assert.True(t, s.HasMore)
	assert.False(t, s.IsLoading)
	assert.Equal(t, "lamp", s.Criteria.Keyword)
	assert.Equal(t, "furniture", s.Criteria.Category)
	// Resetting does not fetch.
	assert.Equal(t, 1, f.callCount())

	require.NoError(t, c.LoadNextPage(t.Context()))
	assert.Equal(t, 0, f.calls[1].page)
	assert.Equal(t, "lamp", f.calls[1].criteria.Keyword)
	// IDs seen before the reset show up again.
	assert.Len(t, c.State().Items, 8)
}

func TestResetRejectsInvalidCriteria(t *testing.T) {
	f := &pagedFetcher{pages: [][]market.ListingSummary{listings("a", 8)}}
	c := New(f)
	require.NoError(t, c.LoadNextPage(t.Context()))
	before := c.State()

	lo, hi := price.Price(500), price.Price(100)
	err := c.ResetAndSearch(market.FilterCriteria{MinPrice: &lo, MaxPrice: &hi})
	assert.Error(t, err)
	assert.Equal(t, before, c.State())
}

func TestFailedLoadLeavesFeedUntouched(t *testing.T) {
	var reported []error
	f := &pagedFetcher{pages: [][]market.ListingSummary{listings("a", 8)}}
	c := New(f, WithReporter(func(err error) { reported = append(reported, err) }))
	require.NoError(t, c.LoadNextPage(t.Context()))

	f.err = errors.New("backend down")
	err := c.LoadNextPage(t.Context())
	assert.ErrorIs(t, err, f.err)
	assert.Equal(t, []error{f.err}, reported)

	s := c.State()
	assert.Len(t, s.Items, 8)
	assert.Equal(t, 1, s.Page)
	assert.True(t, s.HasMore)
	assert.False(t, s.IsLoading)

	// The same page is asked for again.
	f.err = nil
	require.NoError(t, c.LoadNextPage(t.Context()))
	assert.Equal(t, 1, f.calls[2].page)
}

func TestOnlyOneLoadInFlight(t *testing.T) {
	f := newBlockingFetcher()
	c := New(f)

	assert.True(t, c.OnVisibilityReached(t.Context()))
	p := <-f.started
	assert.True(t, c.State().IsLoading)

	assert.False(t, c.OnVisibilityReached(t.Context()))
	require.NoError(t, c.LoadNextPage(t.Context()))

	p.reply <- listings("a", 8)
	c.Wait()

	s := c.State()
	assert.Len(t, s.Items, 8)
	assert.False(t, s.IsLoading)
	assert.Empty(t, f.started)
}

func TestResponsesOfSupersededSearchAreDropped(t *testing.T) {
	f := newBlockingFetcher()
	c := New(f)

	// First page lands.
	require.True(t, c.OnVisibilityReached(t.Context()))
	p := <-f.started
	p.reply <- listings("a", 8)
	c.Wait()

	// Second page is in flight when the viewer searches for lamps.
	require.True(t, c.OnVisibilityReached(t.Context()))
	p = <-f.started
	assert.Equal(t, 1, p.page)

	require.NoError(t, c.ResetAndSearch(market.FilterCriteria{Keyword: "lamp"}))
	p.reply <- listings("b", 8)
	c.Wait()

	s := c.State()
	assert.Empty(t, s.Items)
	assert.Zero(t, s.Page)
	assert.True(t, s.HasMore)
	assert.False(t, s.IsLoading)

	// The new search fetches its own first page.
	require.True(t, c.OnVisibilityReached(t.Context()))
	p = <-f.started
	assert.Equal(t, 0, p.page)
	assert.Equal(t, "lamp", p.criteria.Keyword)
	p.reply <- listings("lamp", 2)
	c.Wait()

	assert.Equal(t, []string{"lamp-0", "lamp-1"}, ids(c.State().Items))
}

func TestStaleResponseDoesNotClearNewerLoad(t *testing.T) {
	f := newBlockingFetcher()
	c := New(f)

	// A direct load lets the test know when the superseded fetch has been handled.
	done := make(chan error)
	go func() { done <- c.LoadNextPage(t.Context()) }()
	old := <-f.started

	require.NoError(t, c.ResetAndSearch(market.FilterCriteria{Keyword: "lamp"}))
	require.True(t, c.OnVisibilityReached(t.Context()))
	current := <-f.started

	// The superseded fetch lands first and must not touch the loading flag.
	old.reply <- listings("old", 8)
	require.NoError(t, <-done)
	assert.True(t, c.State().IsLoading)

	current.reply <- listings("lamp", 1)
	c.Wait()

	s := c.State()
	assert.Equal(t, []string{"lamp-0"}, ids(s.Items))
	assert.False(t, s.IsLoading)
}

func TestStateIsACopy(t *testing.T) {
	f := &pagedFetcher{pages: [][]market.ListingSummary{listings("a", 2)}}
	c := New(f)
	require.NoError(t, c.LoadNextPage(t.Context()))

	s := c.State()
	s.Items[0].ID = "changed"
	assert.Equal(t, "a-0", c.State().Items[0].ID)
}
