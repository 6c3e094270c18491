// Package api provides the BFF server for the marketplace's web client.
//
// Every browser gets a workspace: its backend session, API client, listing feed
// and favorites. Handlers act on the workspace of the request and answer with
// JSON shaped for the client.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/marketapi"
	"github.com/jdholdren/bazaar/internal/serverutil"
	"github.com/jdholdren/bazaar/internal/sqlite"
)

// ListingCache holds local copies of listing details.
type ListingCache interface {
	PutListing(ctx context.Context, l market.Listing) error
	Listing(ctx context.Context, id string) (sqlite.CachedListing, error)
	Listings(ctx context.Context, ids []string) (map[string]sqlite.CachedListing, error)
	DeleteListing(ctx context.Context, id string) error
}

type (
	// Server is the BFF: it answers the web client and talks to the market backend on its behalf.
	Server struct {
		*http.Server

		marketURL   string
		clientOpts  []marketapi.Option
		feedSize    int
		listingTTL  time.Duration
		cache       ListingCache
		workspaces  *lru.Cache[string, *workspace]
		sellerCache *lru.Cache[string, market.User]
		now         func() time.Time

		secureCookie *securecookie.SecureCookie
		httpsCookies bool // Whether or not HTTPS should be used for cookies
	}

	ServerConfig struct {
		Port           int
		MarketAPIURL   string
		CookieHashKey  []byte
		CookieBlockKey []byte
		HttpsCookies   bool
		CorsHeader     string

		FeedPageSize       int
		WorkspaceCacheSize int
		ListingCacheTTL    time.Duration

		// Applied to every backend client, mostly for tests.
		ClientOptions []marketapi.Option
	}
)

// NewServer builds the BFF. The cookie block key is required: the cookie carries the backend token.
func NewServer(config ServerConfig, cache ListingCache) (*Server, error) {
	switch len(config.CookieBlockKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("cookie block key must be 16, 24 or 32 bytes, got %d", len(config.CookieBlockKey))
	}
	if config.WorkspaceCacheSize <= 0 {
		config.WorkspaceCacheSize = 1024
	}
	if config.ListingCacheTTL <= 0 {
		config.ListingCacheTTL = 5 * time.Minute
	}

	workspaces, err := lru.NewWithEvict(config.WorkspaceCacheSize, func(_ string, ws *workspace) {
		ws.close()
	})
	if err != nil {
		return nil, fmt.Errorf("error creating workspace cache: %w", err)
	}
	sellers, err := lru.New[string, market.User](1024)
	if err != nil {
		return nil, fmt.Errorf("error creating seller cache: %w", err)
	}

	r := serverutil.ErrRouter{Router: mux.NewRouter()}
	srvr := &Server{
		marketURL:    config.MarketAPIURL,
		clientOpts:   config.ClientOptions,
		feedSize:     config.FeedPageSize,
		listingTTL:   config.ListingCacheTTL,
		cache:        cache,
		workspaces:   workspaces,
		sellerCache:  sellers,
		now:          time.Now,
		secureCookie: securecookie.New(config.CookieHashKey, config.CookieBlockKey),
		httpsCookies: config.HttpsCookies,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsHeader}),
				handlers.AllowCredentials(),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything
	r.Use(srvr.workspaceMiddleware)

	r.HandleFuncE("/api/viewer", srvr.handleViewer).Methods(http.MethodGet)
	r.HandleFuncE("/api/login", srvr.postLogin).Methods(http.MethodPost)
	r.HandleFuncE("/api/register", srvr.postRegister).Methods(http.MethodPost)
	r.HandleFuncE("/api/logout", srvr.getLogout).Methods(http.MethodGet)

	// The feed
	r.HandleFuncE("/api/feed", srvr.getFeed).Methods(http.MethodGet)
	r.HandleFuncE("/api/feed/search", srvr.postFeedSearch).Methods(http.MethodPost)
	r.HandleFuncE("/api/feed/visible", srvr.postFeedVisible).Methods(http.MethodPost)
	r.HandleFuncE("/api/feed/next", srvr.postFeedNext).Methods(http.MethodPost)

	// Listing detail is public, everything else needs a login.
	r.HandleFuncE("/api/listings/{id}", srvr.getListing).Methods(http.MethodGet)

	authed := serverutil.ErrRouter{Router: r.NewRoute().Subrouter()}
	authed.Use(requireSessionMiddleware)

	authed.HandleFuncE("/api/listings", srvr.postListing).Methods(http.MethodPost)
	authed.HandleFuncE("/api/listings/images", srvr.postListingImage).Methods(http.MethodPost)
	authed.HandleFuncE("/api/listings/{id}", srvr.putListing).Methods(http.MethodPut)
	authed.HandleFuncE("/api/listings/{id}", srvr.deleteListing).Methods(http.MethodDelete)
	authed.HandleFuncE("/api/listings/{id}/messages", srvr.postMessage).Methods(http.MethodPost)
	authed.HandleFuncE("/api/my-listings", srvr.getMyListings).Methods(http.MethodGet)

	authed.HandleFuncE("/api/favorites", srvr.getFavorites).Methods(http.MethodGet)
	authed.HandleFuncE("/api/favorites/{listingID}/toggle", srvr.postFavoriteToggle).Methods(http.MethodPost)

	authed.HandleFuncE("/api/notifications", srvr.getNotifications).Methods(http.MethodGet)
	authed.HandleFuncE("/api/notifications/{id}/read", srvr.postNotificationRead).Methods(http.MethodPost)
	authed.HandleFuncE("/api/notifications/{id}", srvr.deleteNotification).Methods(http.MethodDelete)

	authed.HandleFuncE("/api/profile", srvr.getProfile).Methods(http.MethodGet)
	authed.HandleFuncE("/api/profile", srvr.putProfile).Methods(http.MethodPut)
	authed.HandleFuncE("/api/profile/password", srvr.postPassword).Methods(http.MethodPost)

	slog.Debug("configured bazaar server", "port", config.Port, "market_api", config.MarketAPIURL)

	return srvr, nil
}
