// Package service contains the application service for queue items.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/listview"
	"github.com/and161185/playqueue/internal/model"
	"github.com/and161185/playqueue/internal/notify"
	"github.com/and161185/playqueue/internal/position"
	"github.com/and161185/playqueue/internal/repository"
)

// ItemService defines operations over one owner's ordered queue.
type ItemService interface {
	// Create stores a new item, or updates the owner's item with the same identifier.
	Create(ctx context.Context, owner uuid.UUID, in model.ItemInput) (*model.Item, error)
	// Update applies a partial change to an existing item.
	Update(ctx context.Context, owner, id uuid.UUID, patch model.ItemPatch) (*model.Item, error)
	// Get returns a single item with its derived predecessor.
	Get(ctx context.Context, owner, id uuid.UUID) (*model.Item, error)
	// Delete removes an item and emits a removal event.
	Delete(ctx context.Context, owner, id uuid.UUID) error
	// List returns one page of the ordered view.
	List(ctx context.Context, owner uuid.UUID, q model.ListQuery) (model.Page, error)
	// Resort renumbers the owner's queue and returns how many items moved.
	Resort(ctx context.Context, owner uuid.UUID) (int, error)
}

type ItemServiceImpl struct {
	repo     repository.ItemRepository
	notifier notify.Notifier
	log      *zap.Logger
	limits   listview.Limits
	now      func() time.Time
}

var _ ItemService = (*ItemServiceImpl)(nil)

// NewItemService constructs ItemService. A nil notifier discards events.
func NewItemService(repo repository.ItemRepository, n notify.Notifier, log *zap.Logger, limits listview.Limits) *ItemServiceImpl {
	if n == nil {
		n = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ItemServiceImpl{repo: repo, notifier: n, log: log, limits: limits, now: time.Now}
}

// Create validates input and stores the item in one owner transaction.
// Without a placement the item is appended.
func (s *ItemServiceImpl) Create(ctx context.Context, owner uuid.UUID, in model.ItemInput) (*model.Item, error) {
	if owner == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	if err := in.Payload.Validate(); err != nil {
		return nil, err
	}

	var out *model.Item
	err := s.repo.InOwnerTx(ctx, owner, func(tx repository.ItemTx) error {
		existing, err := tx.FindByIdentifier(ctx, owner, in.Identifier)
		switch {
		case err == nil:
			out = existing
			return s.apply(ctx, tx, existing, in.Patch())
		case !errors.Is(err, errs.ErrNotFound):
			return err
		}

		it := &model.Item{OwnerID: owner, Payload: in.Payload}
		if it.PublishedAt != nil {
			ts := it.PublishedAt.UTC()
			it.PublishedAt = &ts
		}
		status := in.Status
		if status == "" {
			status = model.StatusUnplayed
		}
		if err := model.Transition(it, status, in.CompletedAt, s.now()); err != nil {
			return err
		}
		p := model.Append()
		if in.Placement != nil {
			p = *in.Placement
		}
		if err := s.place(ctx, tx, it, p); err != nil {
			return err
		}
		if err := tx.Insert(ctx, it); err != nil {
			return err
		}
		out = it
		return deriveAfter(ctx, tx, out)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, notify.ItemSaved, out)
	return out, nil
}

// Update applies patch to the owner's item. The identifier never changes.
func (s *ItemServiceImpl) Update(ctx context.Context, owner, id uuid.UUID, patch model.ItemPatch) (*model.Item, error) {
	if owner == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	var out *model.Item
	err := s.repo.InOwnerTx(ctx, owner, func(tx repository.ItemTx) error {
		it, err := ownedBy(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		out = it
		return s.apply(ctx, tx, it, patch)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, notify.ItemSaved, out)
	return out, nil
}

// apply runs the payload change, the status transition and the placement of
// a stored item, then writes it.
func (s *ItemServiceImpl) apply(ctx context.Context, tx repository.ItemTx, it *model.Item, patch model.ItemPatch) error {
	wasTerminal := it.Status.Terminal()
	patch.ApplyPayload(&it.Payload)
	if err := it.Payload.Validate(); err != nil {
		return err
	}

	next := it.Status
	if patch.Status != nil {
		next = *patch.Status
	}
	if err := model.Transition(it, next, patch.CompletedAt, s.now()); err != nil {
		return err
	}

	var p *model.Placement
	switch {
	case patch.Placement != nil:
		p = patch.Placement
	case !it.Status.Terminal() && (wasTerminal || it.Position == nil):
		ap := model.Append()
		p = &ap
	}
	if p != nil {
		if err := s.place(ctx, tx, it, *p); err != nil {
			return err
		}
	}
	if err := tx.Update(ctx, it); err != nil {
		return err
	}
	return deriveAfter(ctx, tx, it)
}

func (s *ItemServiceImpl) place(ctx context.Context, tx repository.ItemTx, it *model.Item, p model.Placement) error {
	res, err := position.Place(ctx, tx, it, p)
	if err != nil {
		return err
	}
	if res.Rebalanced > 0 {
		s.log.Info("queue rebalanced",
			zap.String("owner", it.OwnerID.String()),
			zap.Int("moved", res.Rebalanced),
			zap.Stringer("placement", p),
		)
	}
	return nil
}

// Get returns the owner's item. Items of other owners are reported as missing.
func (s *ItemServiceImpl) Get(ctx context.Context, owner, id uuid.UUID) (*model.Item, error) {
	if owner == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	var out *model.Item
	err := s.repo.ReadSnapshot(ctx, func(rd repository.ItemReader) error {
		it, err := ownedBy(ctx, rd, owner, id)
		if err != nil {
			return err
		}
		out = it
		return deriveAfter(ctx, rd, it)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the owner's item and emits item.removed after commit.
func (s *ItemServiceImpl) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if owner == uuid.Nil {
		return errs.ErrUnauthorized
	}
	var removed *model.Item
	err := s.repo.InOwnerTx(ctx, owner, func(tx repository.ItemTx) error {
		it, err := ownedBy(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		removed = it
		return tx.Delete(ctx, owner, id)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, notify.ItemRemoved, removed)
	return nil
}

// List returns one page of the owner's ordered items.
func (s *ItemServiceImpl) List(ctx context.Context, owner uuid.UUID, q model.ListQuery) (model.Page, error) {
	if owner == uuid.Nil {
		return model.Page{}, errs.ErrUnauthorized
	}
	if q.Page < 0 {
		return model.Page{}, errs.Invalid("page", "must be greater than 0")
	}
	if q.PageSize < 0 {
		return model.Page{}, errs.Invalid("page_size", "must be greater than 0")
	}
	var page model.Page
	err := s.repo.ReadSnapshot(ctx, func(rd repository.ItemReader) error {
		var err error
		page, err = listview.Query(ctx, rd, owner, q, s.limits)
		return err
	})
	return page, err
}

// Resort renumbers the owner's queue to evenly spaced positions.
func (s *ItemServiceImpl) Resort(ctx context.Context, owner uuid.UUID) (int, error) {
	if owner == uuid.Nil {
		return 0, errs.ErrUnauthorized
	}
	var n int
	err := s.repo.InOwnerTx(ctx, owner, func(tx repository.ItemTx) error {
		var err error
		n, err = position.Rebalance(ctx, tx, owner)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("queue resorted", zap.String("owner", owner.String()), zap.Int("moved", n))
	return n, nil
}

func (s *ItemServiceImpl) emit(ctx context.Context, typ notify.EventType, it *model.Item) {
	ev := notify.Event{Type: typ, OwnerID: it.OwnerID, ItemID: it.ID, Identifier: it.Identifier, At: s.now().UTC()}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("notify failed",
			zap.String("type", string(typ)),
			zap.String("item", it.ID.String()),
			zap.Error(err),
		)
	}
}

func ownedBy(ctx context.Context, rd repository.ItemReader, owner, id uuid.UUID) (*model.Item, error) {
	if id == uuid.Nil {
		return nil, errs.ErrNotFound
	}
	it, err := rd.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.OwnerID != owner {
		return nil, fmt.Errorf("item %s: %w", id, errs.ErrNotFound)
	}
	return it, nil
}

// deriveAfter sets it.AfterID to the queued item immediately before it.
func deriveAfter(ctx context.Context, rd repository.ItemReader, it *model.Item) error {
	it.AfterID = nil
	if !it.Queued() {
		return nil
	}
	queue, err := rd.ListQueued(ctx, it.OwnerID, model.Filter{})
	if err != nil {
		return err
	}
	for i, q := range queue {
		if q.ID != it.ID {
			continue
		}
		if i > 0 {
			prev := queue[i-1].ID
			it.AfterID = &prev
		}
		break
	}
	return nil
}
