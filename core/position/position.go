// Package position keeps sibling items (chapters of a course, lessons of a chapter)
// numbered 1..N without gaps or duplicates.
package position

import (
	"sort"

	"github.com/pkg/errors"
)

var (
	ErrEmpty       = errors.New("no items provided for reordering")
	ErrDuplicateID = errors.New("an item appears more than once")
	ErrUnknownID   = errors.New("an item does not belong to this parent")
	ErrMissingID   = errors.New("every item of this parent must be reordered at once")
	ErrBadPosition = errors.New("positions must run from 1 to the number of items without gaps or duplicates")
)

// Assignment is the position given to one item.
type Assignment struct {
	ID       string `json:"id" validate:"required"`
	Position int    `json:"position" validate:"min=1"`
}

// Move returns a copy of `ids` where the item at index `from` now sits at index `to`.
// Out of range indexes return an unchanged copy.
func Move(ids []string, from, to int) []string {
	moved := make([]string, len(ids))
	copy(moved, ids)
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) || from == to {
		return moved
	}

	id := moved[from]
	moved = append(moved[:from], moved[from+1:]...)
	moved = append(moved[:to], append([]string{id}, moved[to:]...)...)
	return moved
}

// Resequence numbers `ids` from 1 in their current order.
func Resequence(ids []string) []Assignment {
	as := make([]Assignment, len(ids))
	for i, id := range ids {
		as[i] = Assignment{ID: id, Position: i + 1}
	}
	return as
}

// Next is the position appended after the current max.
func Next(last int) int {
	if last < 0 {
		last = 0
	}
	return last + 1
}

// Validate checks that `as` assigns every sibling exactly once, with positions forming 1..N.
func Validate(as []Assignment, siblings []string) error {
	if len(as) == 0 {
		return ErrEmpty
	}

	known := make(map[string]bool, len(siblings))
	for _, id := range siblings {
		known[id] = true
	}

	seen := make(map[string]bool, len(as))
	positions := make([]int, 0, len(as))
	for _, a := range as {
		if seen[a.ID] {
			return ErrDuplicateID
		}
		seen[a.ID] = true
		if !known[a.ID] {
			return ErrUnknownID
		}
		positions = append(positions, a.Position)
	}
	if len(seen) != len(known) {
		return ErrMissingID
	}
	if !IsContiguous(positions) {
		return ErrBadPosition
	}
	return nil
}

// IsContiguous reports whether `positions` is a permutation of 1..len(positions).
func IsContiguous(positions []int) bool {
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Ints(sorted)
	for i, p := range sorted {
		if p != i+1 {
			return false
		}
	}
	return true
}

// Sort orders `as` by position, ties broken by id.
func Sort(as []Assignment) {
	sort.SliceStable(as, func(i, j int) bool {
		if as[i].Position == as[j].Position {
			return as[i].ID < as[j].ID
		}
		return as[i].Position < as[j].Position
	})
}
