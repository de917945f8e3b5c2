// Package cart holds the in-progress, unsubmitted order lines for one
// table session. Lines live only in memory; the cart is cleared after the
// server confirms order creation, never before.
package cart

import (
	"tableside/internal/models"
)

// Line is a pending order line owned exclusively by this station.
type Line struct {
	MenuItemID int
	Name       string
	UnitPrice  float64
	Quantity   int
	Notes      string
}

// Store holds pending order lines and notifies a single render hook on
// every mutation. It is driven from a single goroutine, matching the
// event-loop model of the stations.
type Store struct {
	lines    []Line
	onChange func()
}

// NewStore creates an empty cart. onChange may be nil.
func NewStore(onChange func()) *Store {
	return &Store{onChange: onChange}
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Add puts quantity units of a menu item into the cart. Adding an item
// already present increments its line instead of duplicating it.
// Quantities below 1 and unavailable items are rejected as no-ops.
func (s *Store) Add(item models.MenuItem, quantity int) {
	if quantity < 1 || !item.Available {
		return
	}

	for i := range s.lines {
		if s.lines[i].MenuItemID == item.ID {
			s.lines[i].Quantity += quantity
			s.notify()
			return
		}
	}

	s.lines = append(s.lines, Line{
		MenuItemID: item.ID,
		Name:       item.Name,
		UnitPrice:  item.DiscountedPrice(),
		Quantity:   quantity,
		Notes:      "",
	})
	s.notify()
}

// Remove deletes the line at the given position. A stale index is a
// no-op: callers re-render from current state after every mutation.
func (s *Store) Remove(index int) {
	if index < 0 || index >= len(s.lines) {
		return
	}
	s.lines = append(s.lines[:index], s.lines[index+1:]...)
	s.notify()
}

// SetNotes overwrites the notes for the line at the given position.
func (s *Store) SetNotes(index int, text string) {
	if index < 0 || index >= len(s.lines) {
		return
	}
	s.lines[index].Notes = text
	s.notify()
}

// Clear empties the cart. Called after a confirmed submit or an explicit
// operator action.
func (s *Store) Clear() {
	s.lines = nil
	s.notify()
}

// Total returns the cart total. It is recomputed from the lines on every
// call, so it can never go stale.
func (s *Store) Total() float64 {
	total := 0.0
	for _, line := range s.lines {
		total += line.UnitPrice * float64(line.Quantity)
	}
	return total
}

// Count returns the total quantity across all lines (the cart badge).
func (s *Store) Count() int {
	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	return len(s.lines)
}

// Lines returns a copy of the current lines for rendering or submission.
func (s *Store) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// ToOrderItems converts the cart into an order submission payload.
func (s *Store) ToOrderItems() []models.CreateOrderItem {
	items := make([]models.CreateOrderItem, 0, len(s.lines))
	for _, line := range s.lines {
		items = append(items, models.CreateOrderItem{
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			Price:      line.UnitPrice,
			Quantity:   line.Quantity,
			Notes:      line.Notes,
		})
	}
	return items
}
