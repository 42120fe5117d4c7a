package model

import (
	"strings"
	"time"

	"github.com/and161185/playqueue/internal/errs"
)

// Transition moves it into next and applies the status side effects:
// entering completed stamps CompletedAt (completedAt, the previous stamp, or now)
// and clears Position; any other status clears CompletedAt.
// A completedAt for a non-completed status is rejected.
func Transition(it *Item, next Status, completedAt *time.Time, now time.Time) error {
	if !next.Valid() {
		return errs.Invalid("status", "is not included in the list")
	}
	if next.Terminal() {
		switch {
		case completedAt != nil:
			ts := completedAt.UTC()
			it.CompletedAt = &ts
		case it.Status != StatusCompleted || it.CompletedAt == nil:
			ts := now.UTC()
			it.CompletedAt = &ts
		}
		it.Position = nil
		it.Status = next
		return nil
	}
	if completedAt != nil {
		return errs.Invalid("completed_at", "must be blank unless status is completed")
	}
	it.CompletedAt = nil
	it.Status = next
	return nil
}

// Validate checks the required payload fields.
func (p Payload) Validate() error {
	var ve errs.ValidationError
	blank := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			ve.Add(field, "can't be blank")
		}
	}
	blank("identifier", p.Identifier)
	blank("title", p.Title)
	blank("url", p.URL)
	blank("source", p.Source)
	if p.Playtime < 0 {
		ve.Add("playtime", "must be greater than or equal to 0")
	}
	return ve.OrNil()
}
