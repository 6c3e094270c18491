package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/price"
)

// CachedListing is a listing along with when it was copied from the backend.
type CachedListing struct {
	market.Listing
	CachedAt time.Time
}

// Stale reports whether the copy is older than ttl at now.
func (c CachedListing) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.CachedAt) > ttl
}

// stringList stores a list of strings as a JSON array.
type stringList []string

func (l stringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	byts, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(byts), nil
}

func (l *stringList) Scan(src any) error {
	var byts []byte
	switch src := src.(type) {
	case string:
		byts = []byte(src)
	case []byte:
		byts = src
	case nil:
		*l = stringList{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into a string list", src)
	}

	var ret []string
	if err := json.Unmarshal(byts, &ret); err != nil {
		return fmt.Errorf("error decoding string list: %w", err)
	}
	if ret == nil {
		ret = []string{}
	}
	*l = ret

	return nil
}

type listingRow struct {
	ID          string     `db:"id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Price       int64      `db:"price"`
	Category    string     `db:"category"`
	Images      stringList `db:"images"`
	SellerID    string     `db:"seller_id"`
	CreatedAt   int64      `db:"created_at"`
	UpdatedAt   int64      `db:"updated_at"`
	CachedAt    int64      `db:"cached_at"`
}

func toRow(l market.Listing, cachedAt time.Time) listingRow {
	return listingRow{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Price:       int64(l.Price),
		Category:    l.Category,
		Images:      stringList(l.Images),
		SellerID:    l.SellerID,
		CreatedAt:   millis(l.CreatedAt),
		UpdatedAt:   millis(l.UpdatedAt),
		CachedAt:    millis(cachedAt),
	}
}

func (r listingRow) cached() CachedListing {
	images := []string(r.Images)
	if images == nil {
		images = []string{}
	}

	return CachedListing{
		Listing: market.Listing{
			ListingSummary: market.ListingSummary{
				ID:          r.ID,
				Title:       r.Title,
				Description: r.Description,
				Price:       price.Price(r.Price),
				Category:    r.Category,
				Images:      images,
				CreatedAt:   fromMillis(r.CreatedAt),
			},
			SellerID:  r.SellerID,
			UpdatedAt: fromMillis(r.UpdatedAt),
		},
		CachedAt: fromMillis(r.CachedAt),
	}
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// PutListing stores a fresh copy of the listing, replacing any older one.
func (r Repo) PutListing(ctx context.Context, l market.Listing) error {
	const q = `INSERT INTO listings (id, title, description, price, category, images, seller_id, created_at, updated_at, cached_at)
	VALUES (:id, :title, :description, :price, :category, :images, :seller_id, :created_at, :updated_at, :cached_at)
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		price = excluded.price,
		category = excluded.category,
		images = excluded.images,
		seller_id = excluded.seller_id,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		cached_at = excluded.cached_at;`

	if _, err := r.db.NamedExecContext(ctx, q, toRow(l, r.now())); err != nil {
		return fmt.Errorf("error caching listing: %w", err)
	}

	return nil
}

func (r Repo) Listing(ctx context.Context, id string) (CachedListing, error) {
	const q = `SELECT * FROM listings WHERE id = ?;`

	var row listingRow
	err := r.db.GetContext(ctx, &row, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedListing{}, market.ErrNotFound
	}
	if err != nil {
		return CachedListing{}, fmt.Errorf("error fetching cached listing: %w", err)
	}

	return row.cached(), nil
}

// Listings returns the cached copies among ids, keyed by ID. Missing IDs are absent.
func (r Repo) Listings(ctx context.Context, ids []string) (map[string]CachedListing, error) {
	if len(ids) == 0 {
		return map[string]CachedListing{}, nil
	}

	query, args, err := sq.Select("*").From("listings").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %w", err)
	}

	var rows []listingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error fetching cached listings: %w", err)
	}

	ret := make(map[string]CachedListing, len(rows))
	for _, row := range rows {
		ret[row.ID] = row.cached()
	}

	return ret, nil
}

func (r Repo) DeleteListing(ctx context.Context, id string) error {
	const q = `DELETE FROM listings WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("error deleting cached listing: %w", err)
	}

	return nil
}

// PurgeListings drops every copy cached before the cutoff and reports how many went.
func (r Repo) PurgeListings(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := sq.Delete("listings").Where(sq.Lt{"cached_at": millis(cutoff)}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("error constructing sql: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("error purging cached listings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting purged listings: %w", err)
	}

	return n, nil
}
