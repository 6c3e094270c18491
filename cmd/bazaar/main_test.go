package main

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/bazaar/internal/migrations"
	"github.com/jdholdren/bazaar/internal/sqlite"
)

func TestPurgeListingsWithoutTTL(t *testing.T) {
	dbx, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	dbx.SetMaxOpenConns(1)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	for _, ttl := range []int64{0, -1} {
		require.NotPanics(t, func() {
			purgeListings(ctx, sqlite.New(dbx), time.Duration(ttl))
		})
	}
}
