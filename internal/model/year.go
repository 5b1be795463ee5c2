package model

import (
	"time"
)

// Year is the container document for year-scoped goals. Created implicitly
// (idempotent upsert) the first time a user touches a year.
type Year struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"-"`
	Year              int       `db:"year" json:"year"`
	RetrospectiveMemo string    `db:"retrospective_memo" json:"retrospectiveMemo,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}
