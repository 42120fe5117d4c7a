// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Status is the playback state of a queue item.
type Status string

const (
	StatusUnplayed  Status = "unplayed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Statuses lists every valid status in declaration order.
var Statuses = []Status{StatusUnplayed, StatusActive, StatusCompleted}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnplayed, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether items in s leave the position axis.
func (s Status) Terminal() bool { return s == StatusCompleted }

// ParseStatus converts a wire value into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// Payload holds the identifying metadata of an item. It plays no part in ordering.
type Payload struct {
	Identifier  string // unique per owner, immutable after creation
	Title       string
	URL         string
	Description string
	Hosts       string
	Program     string
	OriginURL   string
	ImageURL    string
	Source      string
	Playtime    int32 // seconds
	PublishedAt *time.Time
}

// Item is a single queue entry of one owner.
type Item struct {
	ID      uuid.UUID // assigned by the store on first insert
	OwnerID uuid.UUID
	Status  Status

	// Position is nil while Status is completed.
	Position *int32
	// CompletedAt is set if and only if Status is completed.
	CompletedAt *time.Time

	Payload

	CreatedAt time.Time
	UpdatedAt time.Time

	// AfterID is derived on reads: the non-terminal item immediately before this one.
	AfterID *uuid.UUID
}

// Persisted reports whether the store has assigned an identity.
func (it Item) Persisted() bool { return it.ID != uuid.Nil }

// Queued reports whether the item occupies the position axis.
func (it Item) Queued() bool { return !it.Status.Terminal() && it.Position != nil }

// PositionUpdate is a single row of a rebalance.
type PositionUpdate struct {
	ID       uuid.UUID
	Position int32
}

// Int32 returns a pointer to v.
func Int32(v int32) *int32 { return &v }
