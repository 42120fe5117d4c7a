package position

import (
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/model"
)

// Directive is the allocator input produced by Resolve.
type Directive struct {
	Mode  Mode
	Lower *int32
	Upper *int32
}

// Allocate runs the allocator for d.
func (d Directive) Allocate() (int32, error) { return Allocate(d.Lower, d.Upper, d.Mode) }

// Resolve validates placement p for it and turns it into allocator inputs.
//
// queue holds the owner's positioned non-terminal items in position order,
// without it. anchor is the stored item p refers to, nil when the store has none.
func Resolve(it model.Item, p model.Placement, anchor *model.Item, queue []model.Item) (Directive, error) {
	if it.Status.Terminal() {
		return Directive{Mode: ModeNone}, nil
	}
	switch p.Kind {
	case model.PlaceAppend:
		return appendTo(queue), nil
	case model.PlaceFirst:
		return prependTo(queue), nil
	case model.PlaceNone:
		return Directive{}, errs.Invalid("after_id", "only completed items can leave the queue")
	case model.PlaceAfter:
	default:
		return Directive{}, fmt.Errorf("position: unknown placement %v", p.Kind)
	}

	if it.Persisted() && p.After == it.ID {
		return Directive{}, errs.Invalid("after_id", "can't reference the item itself")
	}
	if p.After == uuid.Nil || anchor == nil || !anchor.Persisted() {
		return Directive{}, errs.ErrAfterItemUnpersisted
	}
	if anchor.OwnerID != it.OwnerID {
		return Directive{}, errs.ErrWrongUserAfter
	}
	if anchor.Status.Terminal() {
		return appendTo(queue), nil
	}

	i := indexOf(queue, anchor.ID)
	switch {
	case i < 0:
		return appendTo(queue), nil
	case i == len(queue)-1:
		return Directive{Mode: ModeAppend, Lower: queue[i].Position}, nil
	default:
		return Directive{Mode: ModeBetween, Lower: queue[i].Position, Upper: queue[i+1].Position}, nil
	}
}

func appendTo(queue []model.Item) Directive {
	d := Directive{Mode: ModeAppend}
	if n := len(queue); n > 0 {
		d.Lower = queue[n-1].Position
	}
	return d
}

func prependTo(queue []model.Item) Directive {
	d := Directive{Mode: ModePrepend}
	if len(queue) > 0 {
		d.Upper = queue[0].Position
	}
	return d
}

func indexOf(queue []model.Item, id uuid.UUID) int {
	for i := range queue {
		if queue[i].ID == id {
			return i
		}
	}
	return -1
}
