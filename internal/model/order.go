package model

import (
	"bytes"
	"cmp"
)

// CompareQueued orders non-terminal items by position (unpositioned last),
// then creation time, then id.
func CompareQueued(a, b Item) int {
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
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// CompareCompleted orders completed items most recently completed first, then by id.
func CompareCompleted(a, b Item) int {
	switch {
	case a.CompletedAt == nil && b.CompletedAt != nil:
		return 1
	case a.CompletedAt != nil && b.CompletedAt == nil:
		return -1
	case a.CompletedAt != nil:
		if c := b.CompletedAt.Compare(*a.CompletedAt); c != 0 {
			return c
		}
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}
