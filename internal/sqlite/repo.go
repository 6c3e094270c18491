// Package sqlite is the local cache of listing details.
//
// The backend owns every listing; rows here are copies stamped with when they
// were fetched so callers can decide whether they are still fresh.
package sqlite

import (
	"time"

	"github.com/jmoiron/sqlx"
)

type Repo struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db, now: time.Now}
}
