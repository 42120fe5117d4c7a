// Package position assigns sparse integer positions to the non-terminal items
// of one owner, rebalancing the owner's queue when a gap runs out.
package position

import (
	"fmt"
	"math"

	"github.com/and161185/playqueue/internal/errs"
)

const (
	// Step is the distance between neighbours after appends and rebalances.
	Step int32 = 10
	// Base is the position of the first item in an empty queue.
	Base int32 = 0
)

// Mode selects the allocation strategy.
type Mode uint8

const (
	// ModeNone yields no position (terminal items).
	ModeNone Mode = iota
	// ModeAppend places after lower, or at Base in an empty queue.
	ModeAppend
	// ModePrepend places before upper, or at Base in an empty queue.
	ModePrepend
	// ModeBetween places between lower and upper.
	ModeBetween
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeAppend:
		return "append"
	case ModePrepend:
		return "prepend"
	case ModeBetween:
		return "between"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Allocate computes a new position from the neighbouring positions.
//
// ModeBetween returns the midpoint biased toward lower, or ErrGapExhausted when
// upper-lower < 2. Leaving the int32 range yields ErrRangeViolation.
func Allocate(lower, upper *int32, mode Mode) (int32, error) {
	switch mode {
	case ModeAppend:
		if lower == nil {
			return Base, nil
		}
		return fit(int64(*lower) + int64(Step))
	case ModePrepend:
		if upper == nil {
			return Base, nil
		}
		return fit(int64(*upper) - int64(Step))
	case ModeBetween:
		if lower == nil || upper == nil {
			return 0, fmt.Errorf("position: between needs both neighbours")
		}
		lo, hi := int64(*lower), int64(*upper)
		if hi-lo < 2 {
			return 0, errs.ErrGapExhausted
		}
		return int32(lo + (hi-lo)/2), nil
	}
	return 0, fmt.Errorf("position: cannot allocate in mode %s", mode)
}

func fit(v int64) (int32, error) {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, errs.ErrRangeViolation
	}
	return int32(v), nil
}
