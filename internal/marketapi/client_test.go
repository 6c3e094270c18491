package marketapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/price"
	"github.com/jdholdren/bazaar/internal/session"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(srv.URL+"/api", session.New(), WithRetries(3, time.Millisecond)), srv
}

func TestSearchListingsNormalisesRecords(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/listings/search", r.URL.Path)
		assert.Equal(t, "lamp", r.URL.Query().Get("keyword"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "8", r.URL.Query().Get("size"))

		io.WriteString(w, `[
			{"id":"l1","title":" Lamp ","description":"<b>bright</b> lamp","price":1234.5,"category":"furniture",
			 "imageUrls":["a.jpg"],"images":["old.jpg"],"createdAt":"2024-03-01T10:00:00"},
			{"id":"l2","title":"Desk","price":"99","images":["b.jpg","c.jpg"],"createdAt":"2024-03-01T10:00:00Z"},
			{"id":"l3","title":"Chair","price":10}
		]`)
	})

	got, err := c.SearchListings(t.Context(), market.FilterCriteria{Keyword: "lamp"}, 1, 8)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Lamp", got[0].Title)
	assert.Equal(t, "bright lamp", got[0].Description)
	assert.Equal(t, price.Price(123450), got[0].Price)
	assert.Equal(t, []string{"a.jpg"}, got[0].Images)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), got[0].CreatedAt)

	assert.Equal(t, []string{"b.jpg", "c.jpg"}, got[1].Images)
	assert.Equal(t, price.Price(9900), got[1].Price)

	assert.NotNil(t, got[2].Images)
	assert.Empty(t, got[2].Images)
}

func TestSanitizeCapsOnRuneBoundary(t *testing.T) {
	s := strings.Repeat("ş", maxSummaryDescription) // two bytes each

	got := sanitize(s)
	assert.LessOrEqual(t, len(got), maxSummaryDescription)
	assert.True(t, strings.HasPrefix(s, got))
	assert.Equal(t, 0, len(got)%2)
}

func TestListingFallsBackToUserID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/listings/l1", r.URL.Path)
		io.WriteString(w, `{"id":"l1","title":"Lamp","userId":"usr-9","description":"<p>hi</p>"}`)
	})

	got, err := c.Listing(t.Context(), "l1")
	require.NoError(t, err)
	assert.Equal(t, "usr-9", got.SellerID)
	// Detail descriptions are left for the caller to sanitise.
	assert.Equal(t, "<p>hi</p>", got.Description)
}

func TestAuthenticatedCallsNeedASession(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.Favorites(t.Context())
	assert.ErrorIs(t, err, market.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, bazerrs.Status(err))
	assert.Zero(t, calls.Load())
}

func TestLoginStartsSessionAndAuthenticates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user/login":
			var creds market.Credentials
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "ayse", creds.Username)
			io.WriteString(w, `{"token":"tok-1","user":{"id":"usr-1","username":"ayse","firstName":"Ayşe"}}`)
		case "/api/user/favorites":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			assert.Equal(t, "usr-1", r.Header.Get("X-User-Id"))
			io.WriteString(w, `["l1","l2"]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	user, err := c.Login(t.Context(), market.Credentials{Username: "ayse", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "usr-1", user.ID)
	assert.True(t, c.Session().Active())

	ids, err := c.Favorites(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2"}, ids)

	c.Logout()
	assert.False(t, c.Session().Active())
}

func TestReadsRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"id":"usr-1","username":"ayse"}`)
	})

	got, err := c.Profile(t.Context(), "usr-1")
	require.NoError(t, err)
	assert.Equal(t, "ayse", got.Username)
	assert.EqualValues(t, 3, calls.Load())
}

func TestWritesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Register(t.Context(), market.Registration{Username: "ayse"})
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestErrorResponsesAreStructured(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "json message", status: http.StatusNotFound, body: `{"message":"listing gone"}`, wantErr: market.ErrNotFound, wantMsg: "listing gone"},
		{name: "plain text", status: http.StatusForbidden, body: "not yours", wantErr: market.ErrForbidden, wantMsg: "not yours"},
		{name: "empty body", status: http.StatusUnauthorized, wantErr: market.ErrUnauthorized, wantMsg: "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Listing(t.Context(), "l1")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.status, bazerrs.Status(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestUploadImage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user/login":
			io.WriteString(w, `{"token":"tok-1","user":{"id":"usr-1"}}`)
		case "/api/listings/upload":
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			byts, _ := io.ReadAll(f)
			assert.Equal(t, "lamp.jpg", hdr.Filename)
			assert.Equal(t, "jpeg-bytes", string(byts))
			io.WriteString(w, "https://cdn.example.com/lamp.jpg\n")
		}
	})

	_, err := c.Login(t.Context(), market.Credentials{Username: "ayse"})
	require.NoError(t, err)

	u, err := c.UploadImage(t.Context(), "lamp.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/lamp.jpg", u)
}

func TestNotificationsReadFlag(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user/login":
			io.WriteString(w, `{"token":"tok-1","user":{"id":"usr-1"}}`)
		case "/api/notifications/usr-1":
			io.WriteString(w, `[{"id":"n1","isRead":true},{"id":"n2","read":true},{"id":"n3"}]`)
		case "/api/notifications/n3/read":
			assert.Equal(t, http.MethodPatch, r.Method)
		}
	})

	_, err := c.Login(t.Context(), market.Credentials{Username: "ayse"})
	require.NoError(t, err)

	got, err := c.Notifications(t.Context())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].IsRead)
	assert.True(t, got[1].IsRead)
	assert.False(t, got[2].IsRead)

	assert.NoError(t, c.MarkNotificationRead(t.Context(), "n3"))
}
