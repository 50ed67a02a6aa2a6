// Package ordering keeps the positions of a parent's active children dense.
//
// Every mutating operation on a parent's children leaves the active positions
// at exactly 0..n-1. Trashed children keep their last position and are ignored.
// Callers hold the parent's Locker key and run the operations inside one
// datastore transaction.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

type Collection string

const (
	Blocks Collection = "blocks"
	Pages  Collection = "pages"
)

var (
	ErrEmptyOrder         = errors.New("order must contain at least one id")
	ErrPositionOutOfRange = errors.New("position is out of range")
	ErrNegativePosition   = errors.New("position cannot be negative")
	ErrNotDense           = errors.New("positions are not dense")
)

// Slot is the ordering view of one child item.
type Slot struct {
	ID       string
	Position int
}

// Slots is the datastore gateway for one collection.
type Slots interface {
	// LockParent takes a row lock on the parent for the rest of the transaction.
	LockParent(ctx context.Context, parentID string) error

	// Active returns the parent's active children with position > after,
	// ordered by position, creation time and id.
	Active(ctx context.Context, parentID string, after int) ([]Slot, error)

	// Move writes each slot's position. Ids that are not active children of
	// the parent are skipped. Returns the number of rows written.
	Move(ctx context.Context, parentID string, moves []Slot) (int64, error)
}

// Count returns the number of active children of the parent.
func Count(ctx context.Context, s Slots, parentID string) (int, error) {
	items, err := s.Active(ctx, parentID, -1)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Repair closes the gap left at vacated by shifting every later active child
// down by one.
func Repair(ctx context.Context, s Slots, parentID string, vacated int) (int64, error) {
	items, err := s.Active(ctx, parentID, vacated)
	if err != nil {
		return 0, fmt.Errorf("failed to read positions after %d: %w", vacated, err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	moves := make([]Slot, len(items))
	for i, it := range items {
		moves[i] = Slot{ID: it.ID, Position: it.Position - 1}
	}
	return s.Move(ctx, parentID, moves)
}

// Normalize rewrites the active children to 0..n-1 keeping their current
// relative order. Only children whose position changes are written.
func Normalize(ctx context.Context, s Slots, parentID string) (int64, error) {
	items, err := s.Active(ctx, parentID, -1)
	if err != nil {
		return 0, fmt.Errorf("failed to read positions: %w", err)
	}

	var moves []Slot
	for i, it := range items {
		if it.Position != i {
			moves = append(moves, Slot{ID: it.ID, Position: i})
		}
	}
	if len(moves) == 0 {
		return 0, nil
	}
	return s.Move(ctx, parentID, moves)
}

// Assign sets position = index for every id in order. Ids that are unknown,
// trashed or belong to another parent are ignored.
func Assign(ctx context.Context, s Slots, parentID string, order []string) (int64, error) {
	if len(order) == 0 {
		return 0, ErrEmptyOrder
	}

	moves := make([]Slot, len(order))
	for i, id := range order {
		moves[i] = Slot{ID: id, Position: i}
	}
	return s.Move(ctx, parentID, moves)
}

// Open makes room for a new child and returns the position it should take.
// A nil position or one equal to the active count appends. A smaller position
// shifts the children at and after it up by one.
func Open(ctx context.Context, s Slots, parentID string, at *int) (int, int64, error) {
	items, err := s.Active(ctx, parentID, -1)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read positions: %w", err)
	}

	count := len(items)
	if at == nil || *at == count {
		return count, 0, nil
	}
	if *at < 0 {
		return 0, 0, ErrNegativePosition
	}
	if *at > count {
		return 0, 0, fmt.Errorf("%w: %d exceeds %d", ErrPositionOutOfRange, *at, count)
	}

	var moves []Slot
	for _, it := range items {
		if it.Position >= *at {
			moves = append(moves, Slot{ID: it.ID, Position: it.Position + 1})
		}
	}
	// Highest first so a shifted child never lands on a sibling's slot mid-batch.
	sort.Slice(moves, func(i, j int) bool { return moves[i].Position > moves[j].Position })

	n, err := s.Move(ctx, parentID, moves)
	if err != nil {
		return 0, 0, err
	}
	return *at, n, nil
}

// Check reports whether the positions are exactly 0..n-1 in any order.
func Check(items []Slot) error {
	seen := make([]bool, len(items))
	for _, it := range items {
		if it.Position < 0 || it.Position >= len(items) || seen[it.Position] {
			return fmt.Errorf("%w: %s at %d", ErrNotDense, it.ID, it.Position)
		}
		seen[it.Position] = true
	}
	return nil
}

// Positions returns the positions of items in their current order.
func Positions(items []Slot) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Position
	}
	return out
}
