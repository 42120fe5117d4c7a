// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/playqueue/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ItemReader is the read side of a transaction handle.
type ItemReader interface {
	// Get loads an item of any owner by id.
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)
	// FindByIdentifier loads the owner's item with the given payload identifier.
	FindByIdentifier(ctx context.Context, owner uuid.UUID, identifier string) (*model.Item, error)
	// ListQueued returns the owner's non-terminal items by position, created_at, id.
	ListQueued(ctx context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error)
	// ListCompleted returns the owner's completed items by completed_at desc, id.
	ListCompleted(ctx context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error)
}

// ItemTx is a write transaction holding the owner's ordering lock.
type ItemTx interface {
	ItemReader
	// Insert stores a new item and assigns its ID and timestamps.
	Insert(ctx context.Context, it *model.Item) error
	// Update rewrites a stored item (identifier and owner are immutable).
	Update(ctx context.Context, it *model.Item) error
	// SetPositions rewrites positions of several items of owner in one step.
	SetPositions(ctx context.Context, owner uuid.UUID, ups []model.PositionUpdate) error
	// Delete removes the owner's item.
	Delete(ctx context.Context, owner, id uuid.UUID) error
}

// ItemRepository provides owner-scoped transactional access to queue items.
type ItemRepository interface {
	// InOwnerTx runs fn in one transaction serialized against every other
	// InOwnerTx of the same owner. fn's error rolls everything back.
	InOwnerTx(ctx context.Context, owner uuid.UUID, fn func(tx ItemTx) error) error

	// ReadSnapshot runs fn against a consistent snapshot; a concurrent
	// rebalance is observed either fully or not at all.
	ReadSnapshot(ctx context.Context, fn func(r ItemReader) error) error
}
