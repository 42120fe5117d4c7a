package model

import (
	"fmt"

	"github.com/gofrs/uuid/v5"
)

// PlacementKind tags a Placement.
type PlacementKind uint8

const (
	// PlaceAppend puts the item after the current last non-terminal item.
	PlaceAppend PlacementKind = iota + 1
	// PlaceFirst puts the item before the current first non-terminal item.
	PlaceFirst
	// PlaceAfter puts the item immediately after a referenced item.
	PlaceAfter
	// PlaceNone removes the item from the position axis.
	PlaceNone
)

var placementNames = map[PlacementKind]string{
	PlaceAppend: "append",
	PlaceFirst:  "first",
	PlaceAfter:  "after",
	PlaceNone:   "none",
}

func (k PlacementKind) String() string {
	if n, ok := placementNames[k]; ok {
		return n
	}
	return fmt.Sprintf("PlacementKind(%d)", uint8(k))
}

// ParsePlacementKind converts a wire name into a PlacementKind.
func ParsePlacementKind(v string) (PlacementKind, error) {
	for k, n := range placementNames {
		if n == v {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown placement %q", v)
}

// Placement is a write-time ordering directive. It is consumed when a position
// is computed and never stored.
type Placement struct {
	Kind  PlacementKind
	After uuid.UUID // only for PlaceAfter; uuid.Nil means an unsaved item
}

// Append returns the "no preference, go last" directive.
func Append() Placement { return Placement{Kind: PlaceAppend} }

// MakeFirst returns the "no predecessor" directive.
func MakeFirst() Placement { return Placement{Kind: PlaceFirst} }

// After returns the directive to sit immediately after id.
func After(id uuid.UUID) Placement { return Placement{Kind: PlaceAfter, After: id} }

// NoPosition returns the directive for items that leave the position axis.
func NoPosition() Placement { return Placement{Kind: PlaceNone} }

// AfterID returns the referenced item for PlaceAfter directives.
func (p Placement) AfterID() (uuid.UUID, bool) {
	if p.Kind != PlaceAfter {
		return uuid.Nil, false
	}
	return p.After, true
}

func (p Placement) String() string {
	if p.Kind == PlaceAfter {
		return "after(" + p.After.String() + ")"
	}
	return p.Kind.String()
}
