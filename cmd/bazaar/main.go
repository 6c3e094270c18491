// Bazaar is the BFF for the marketplace web client.
//
// It keeps a workspace per browser, pages the listing feed for it and caches
// listing details in a local sqlite database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/run"
	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback"
	_ "modernc.org/sqlite"

	"github.com/jdholdren/bazaar/internal/api"
	"github.com/jdholdren/bazaar/internal/logger"
	"github.com/jdholdren/bazaar/internal/migrations"
	"github.com/jdholdren/bazaar/internal/sqlite"
)

type config struct {
	Port         int    `env:"PORT, default=4444"`
	MarketAPIURL string `env:"MARKET_API_URL, default=http://localhost:8080/api"`
	Database     string `env:"CACHE_DATABASE, default=bazaar-cache.db"`

	HTTPSCookies   bool   `env:"HTTPS_COOKIES, default=false"`
	CookieHashKey  string `env:"COOKIE_HASH_KEY, required"`
	CookieBlockKey string `env:"COOKIE_BLOCK_KEY, required"` // Encrypts the cookie, which carries the backend token
	CorsOrigin     string `env:"CORS_ORIGIN, default=http://localhost:5173"`

	FeedPageSize       int           `env:"FEED_PAGE_SIZE, default=8"`
	WorkspaceCacheSize int           `env:"WORKSPACE_CACHE_SIZE, default=1024"`
	ListingCacheTTL    time.Duration `env:"LISTING_CACHE_TTL, default=5m"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
	Debug        bool   `env:"DEBUG, default=false"`
}

const defaultListingCacheTTL = 5 * time.Minute

func main() {
	ctx := context.Background()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	if cfg.ListingCacheTTL <= 0 {
		cfg.ListingCacheTTL = defaultListingCacheTTL
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(logger.New(os.Stderr, cfg.LoggerFormat, level))

	if err := runServer(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg config) error {
	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer dbx.Close()

	// Migrate, always
	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}
	repo := sqlite.New(dbx)

	s, err := api.NewServer(api.ServerConfig{
		Port:               cfg.Port,
		MarketAPIURL:       cfg.MarketAPIURL,
		CookieHashKey:      []byte(cfg.CookieHashKey),
		CookieBlockKey:     []byte(cfg.CookieBlockKey),
		HttpsCookies:       cfg.HTTPSCookies,
		CorsHeader:         cfg.CorsOrigin,
		FeedPageSize:       cfg.FeedPageSize,
		WorkspaceCacheSize: cfg.WorkspaceCacheSize,
		ListingCacheTTL:    cfg.ListingCacheTTL,
	}, repo)
	if err != nil {
		return fmt.Errorf("error creating server: %w", err)
	}

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	g.Add(func() error {
		slog.Info("listening", "port", cfg.Port)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %w", err)
		}
		return nil
	}, func(error) {
		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})

	purgeCtx, stopPurging := context.WithCancel(ctx)
	g.Add(func() error {
		purgeListings(purgeCtx, repo, cfg.ListingCacheTTL)
		return nil
	}, func(error) {
		stopPurging()
	})

	var sigErr run.SignalError
	if err := g.Run(); err != nil && !errors.As(err, &sigErr) {
		return err
	}

	return nil
}

// purgeListings drops expired copies from the cache until ctx is done.
func purgeListings(ctx context.Context, repo sqlite.Repo, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultListingCacheTTL
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.PurgeListings(ctx, now.Add(-ttl))
			if err != nil {
				slog.Error("error purging listing cache", "error", err)
				continue
			}
			slog.Debug("purged listing cache", "purged", n)
		}
	}
}
