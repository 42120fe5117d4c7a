package position

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/model"
)

// Result reports what Place did besides setting the position.
type Result struct {
	Directive  Directive
	Rebalanced int // rows renumbered by a triggered rebalance
}

// Place sets it.Position according to p inside the caller's transaction.
//
// Terminal items get no position. When the chosen gap is exhausted the owner's
// queue is rebalanced and the allocation is retried exactly once.
func Place(ctx context.Context, st Store, it *model.Item, p model.Placement) (Result, error) {
	if it.Status.Terminal() {
		it.Position = nil
		return Result{Directive: Directive{Mode: ModeNone}}, nil
	}

	anchor, err := loadAnchor(ctx, st, *it, p)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for attempt := 0; ; attempt++ {
		queue, err := siblings(ctx, st, *it)
		if err != nil {
			return Result{}, err
		}
		d, err := Resolve(*it, p, anchor, queue)
		if err != nil {
			return Result{}, err
		}
		res.Directive = d
		if d.Mode == ModeNone {
			it.Position = nil
			return res, nil
		}

		pos, err := d.Allocate()
		if errors.Is(err, errs.ErrGapExhausted) {
			if attempt > 0 {
				return Result{}, fmt.Errorf("position: gap still exhausted after rebalance: %w", err)
			}
			if res.Rebalanced, err = Rebalance(ctx, st, it.OwnerID); err != nil {
				return Result{}, err
			}
			continue
		}
		if err != nil {
			return Result{}, err
		}
		it.Position = &pos
		return res, nil
	}
}

func loadAnchor(ctx context.Context, st Store, it model.Item, p model.Placement) (*model.Item, error) {
	id, ok := p.AfterID()
	if !ok || id == uuid.Nil || id == it.ID {
		return nil, nil
	}
	a, err := st.Get(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	return a, err
}

// siblings returns the positioned queue of it's owner without it.
func siblings(ctx context.Context, st Store, it model.Item) ([]model.Item, error) {
	all, err := st.ListQueued(ctx, it.OwnerID, model.Filter{})
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, s := range all {
		if s.Position == nil || (it.Persisted() && s.ID == it.ID) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
