// Package model contains domain models passed between layers.
package model

import "time"

// Event represents an engagement event submitted by clients.
// Fields mirror the OpenAPI schema for /events.
type Event struct {
	EventID  string    // unique id for idempotency
	EntityID string    // ranked entity identifier
	Action   Action    // engagement kind, e.g. "hit", "reply"
	TS       time.Time // event timestamp; zero means "now"
}

// Entity is the content item materialized from the primary store.
type Entity struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Author    string    `json:"author" db:"author"`
	CreatedAt time.Time `json:"created_at" db:"-"`
}
