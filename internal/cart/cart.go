// Package cart holds the session-scoped working set of goods a player has
// picked in each store. Carts live in memory only; submitting a cart freezes
// it into an order and clears it.
package cart

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// MaxPerItem caps how many units of one good a single order may carry.
const MaxPerItem = 3

var (
	ErrBadQuantity = errors.New("quantity must be at least 1")
	ErrLineMissing = errors.New("item not in cart")
)

type Line struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"` // NUMERIC -> string
	Quantity  int    `json:"quantity"`
}

// Session is one player's set of carts, one per store, in insertion order.
type Session struct {
	mu    sync.Mutex
	lines map[string][]Line
}

func NewSession() *Session {
	return &Session{lines: make(map[string][]Line)}
}

// Add merges l into the store's cart. When the item is already present the
// quantities are summed; sums above MaxPerItem are clamped, not rejected, and
// adjusted reports the clamp so the caller can tell the player.
func (s *Session) Add(storeID string, l Line) (adjusted bool, err error) {
	if l.Quantity < 1 {
		return false, ErrBadQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, cur := range s.lines[storeID] {
		if cur.ItemID == l.ItemID {
			q := cur.Quantity + l.Quantity
			if q > MaxPerItem {
				q = MaxPerItem
				adjusted = true
			}
			s.lines[storeID][i].Quantity = q
			return adjusted, nil
		}
	}
	if l.Quantity > MaxPerItem {
		l.Quantity = MaxPerItem
		adjusted = true
	}
	s.lines[storeID] = append(s.lines[storeID], l)
	return adjusted, nil
}

// Remove drops the line entirely. Removal is explicit; Decrease never does it.
func (s *Session) Remove(storeID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.lines[storeID]
	for i, l := range cur {
		if l.ItemID == itemID {
			s.lines[storeID] = append(cur[:i:i], cur[i+1:]...)
			return nil
		}
	}
	return ErrLineMissing
}

// Increase bumps the quantity by one, clamped at MaxPerItem.
func (s *Session) Increase(storeID, itemID string) (qty int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.lines[storeID] {
		if l.ItemID == itemID {
			if l.Quantity < MaxPerItem {
				s.lines[storeID][i].Quantity++
			}
			return s.lines[storeID][i].Quantity, nil
		}
	}
	return 0, ErrLineMissing
}

// Decrease lowers the quantity by one, flooring at 1.
func (s *Session) Decrease(storeID, itemID string) (qty int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.lines[storeID] {
		if l.ItemID == itemID {
			if l.Quantity > 1 {
				s.lines[storeID][i].Quantity--
			}
			return s.lines[storeID][i].Quantity, nil
		}
	}
	return 0, ErrLineMissing
}

func (s *Session) Clear(storeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lines, storeID)
}

// Lines returns a copy of the store's cart in insertion order.
func (s *Session) Lines(storeID string) []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines[storeID]...)
}

// Total sums unit price times quantity over the current lines. Pure read; the
// same figure is frozen onto the order at submit.
func (s *Session) Total(storeID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, l := range s.lines[storeID] {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
