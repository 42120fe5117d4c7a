package position

import (
	"context"
	"math"
	"slices"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/model"
)

// Store is the transaction handle placement and rebalancing run against.
// Implementations must hold the owner's ordering lock for the lifetime of the handle.
type Store interface {
	// Get loads an item of any owner by id.
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)
	// ListQueued returns the owner's non-terminal items in position order.
	ListQueued(ctx context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error)
	// SetPositions rewrites positions of several items of owner at once.
	SetPositions(ctx context.Context, owner uuid.UUID, ups []model.PositionUpdate) error
}

// Spread returns n evenly spaced positions starting at Base.
func Spread(n int) ([]int32, error) {
	if n <= 0 {
		return nil, nil
	}
	if int64(Base)+int64(n-1)*int64(Step) > math.MaxInt32 {
		return nil, errs.ErrRangeViolation
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = Base + int32(i)*Step
	}
	return out, nil
}

// Rebalance renumbers every non-terminal item of owner to Base, Base+Step, ...
// keeping the current order (position, then creation time, then id).
// Only changed rows are written; it returns how many.
func Rebalance(ctx context.Context, st Store, owner uuid.UUID) (int, error) {
	queue, err := st.ListQueued(ctx, owner, model.Filter{})
	if err != nil {
		return 0, err
	}
	slices.SortStableFunc(queue, model.CompareQueued)

	spread, err := Spread(len(queue))
	if err != nil {
		return 0, err
	}
	var ups []model.PositionUpdate
	for i, it := range queue {
		if it.Position != nil && *it.Position == spread[i] {
			continue
		}
		ups = append(ups, model.PositionUpdate{ID: it.ID, Position: spread[i]})
	}
	if len(ups) == 0 {
		return 0, nil
	}
	if err := st.SetPositions(ctx, owner, ups); err != nil {
		return 0, err
	}
	return len(ups), nil
}
