// Package listview builds the canonical ordered, filtered and paginated view
// of one owner's items: the queued items by position followed by the
// completed items by completion time.
package listview

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/model"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Reader is the read surface the view runs against, normally a snapshot.
type Reader interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)
	ListQueued(ctx context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error)
	ListCompleted(ctx context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error)
}

// Limits bounds page sizes. Zero fields fall back to the package defaults.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (l Limits) normalize() Limits {
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = MaxPageSize
	}
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = DefaultPageSize
	}
	l.DefaultPageSize = min(l.DefaultPageSize, l.MaxPageSize)
	return l
}

// Compare is the total order of the view. Queued items come first by
// position then id; completed items follow, latest completion first, then id.
func Compare(a, b model.Item) int {
	at, bt := a.Status.Terminal(), b.Status.Terminal()
	switch {
	case !at && bt:
		return -1
	case at && !bt:
		return 1
	case at:
		return model.CompareCompleted(a, b)
	}
	switch {
	case a.Position == nil && b.Position != nil:
		return 1
	case a.Position != nil && b.Position == nil:
		return -1
	case a.Position != nil:
		if c := cmp.Compare(*a.Position, *b.Position); c != 0 {
			return c
		}
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// Merge concatenates the two sub-orderings into the view order.
func Merge(queued, completed []model.Item) []model.Item {
	out := make([]model.Item, 0, len(queued)+len(completed))
	out = append(out, queued...)
	out = append(out, completed...)
	slices.SortStableFunc(out, Compare)
	return out
}

// Query returns one page of owner's items matching q.
//
// With q.AfterID set only items strictly after the cursor item are returned.
// The cursor item itself does not have to pass the filter but must belong
// to owner.
func Query(ctx context.Context, r Reader, owner uuid.UUID, q model.ListQuery, lim Limits) (model.Page, error) {
	lim = lim.normalize()

	var cursor *model.Item
	if q.AfterID != nil {
		c, err := r.Get(ctx, *q.AfterID)
		if err != nil {
			return model.Page{}, fmt.Errorf("cursor %s: %w", q.AfterID, err)
		}
		if c.OwnerID != owner {
			return model.Page{}, fmt.Errorf("cursor %s: %w", q.AfterID, errs.ErrNotFound)
		}
		cursor = c
	}

	queued, err := r.ListQueued(ctx, owner, q.Filter)
	if err != nil {
		return model.Page{}, err
	}
	completed, err := r.ListCompleted(ctx, owner, q.Filter)
	if err != nil {
		return model.Page{}, err
	}
	all := Merge(queued, completed)

	if cursor != nil {
		i, _ := slices.BinarySearchFunc(all, *cursor, Compare)
		for i < len(all) && Compare(all[i], *cursor) <= 0 {
			i++
		}
		all = all[i:]
	}

	size := q.PageSize
	if size <= 0 {
		size = lim.DefaultPageSize
	}
	size = min(size, lim.MaxPageSize)
	page := max(q.Page, 1)

	meta := model.PageMeta{
		TotalCount:  len(all),
		TotalPages:  (len(all) + size - 1) / size,
		CurrentPage: page,
		PageSize:    size,
	}
	start := len(all)
	if page-1 <= len(all)/size {
		start = min((page-1)*size, len(all))
	}
	end := min(start+size, len(all))
	return model.Page{Items: all[start:end], Meta: meta}, nil
}
