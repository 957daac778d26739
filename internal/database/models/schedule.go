package models

import "time"

// Schedule is the persisted state of a named daily job.
type Schedule struct {
	Name      string    `bson:"_id"`
	Enabled   bool      `bson:"enabled"`
	Hour      int       `bson:"hour"`
	Minute    int       `bson:"minute"`
	UpdatedAt time.Time `bson:"updated_at"`
}
