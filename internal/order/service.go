package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/cart"
)

var (
	ErrBuyerNotFound   = errors.New("buyer not found")
	ErrAlreadyResolved = errors.New("order already resolved")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrBadDeliveryType = errors.New("delivery type must be pickup or delivery")
	ErrBadDecision     = errors.New("decision must be approve or reject")
)

// PlayerDirectory answers whether a buyer has a backing account record.
type PlayerDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Events receives lifecycle notifications. May be nil.
type Events interface {
	OrderSubmitted(ctx context.Context, o *Order)
	OrderResolved(ctx context.Context, o *Order)
}

// Cache is a read-through projection of orders. It is invalidated on every
// write and never written independently of the ledger. May be nil.
type Cache interface {
	Get(ctx context.Context, id string) (*Order, bool)
	Put(ctx context.Context, o *Order)
	Invalidate(ctx context.Context, id string)
}

type Service struct {
	repo    Repository
	players PlayerDirectory
	cache   Cache
	events  Events

	Now func() time.Time
}

func NewService(repo Repository, players PlayerDirectory, cache Cache, events Events) *Service {
	return &Service{repo: repo, players: players, cache: cache, events: events, Now: time.Now}
}

// Submit freezes the cart snapshot into a pending order. This is the only
// write path that creates an order; there are no draft or edit semantics.
// The caller clears the cart once the order exists.
func (s *Service) Submit(ctx context.Context, buyerID, storeID, deliveryType string, lines []cart.Line) (*Order, error) {
	if deliveryType != DeliveryPickup && deliveryType != DeliveryDelivery {
		return nil, ErrBadDeliveryType
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	ok, err := s.players.Exists(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBuyerNotFound
	}

	o := &Order{
		ID:           uuid.NewString(),
		BuyerID:      buyerID,
		StoreID:      storeID,
		DeliveryType: deliveryType,
		Status:       StatusPending,
		CreatedAt:    s.Now().UTC(),
	}
	total := decimal.Zero
	for _, l := range lines {
		qty := l.Quantity
		if qty > cart.MaxPerItem {
			qty = cart.MaxPerItem
		}
		if qty < 1 {
			continue
		}
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("bad unit price for item %s: %w", l.ItemID, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		o.Items = append(o.Items, Line{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ItemID:    l.ItemID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  qty,
		})
	}
	if len(o.Items) == 0 {
		return nil, ErrEmptyCart
	}
	o.Total = total.StringFixed(2)

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.OrderSubmitted(ctx, o)
	}
	return o, nil
}

// Decide resolves a pending order. A second call on an already-resolved order
// returns ErrAlreadyResolved and applies no side effect.
func (s *Service) Decide(ctx context.Context, orderID, decision, decidedBy, notes string) (*Order, error) {
	var status string
	switch decision {
	case DecisionApprove:
		status = StatusApproved
	case DecisionReject:
		status = StatusRejected
	default:
		return nil, ErrBadDecision
	}

	err := s.repo.Resolve(ctx, orderID, status, decidedBy, notes, s.Now().UTC())
	if errors.Is(err, ErrStaleStatus) {
		if _, gerr := s.repo.GetByID(ctx, orderID); gerr != nil {
			return nil, gerr
		}
		return nil, ErrAlreadyResolved
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, orderID)
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.OrderResolved(ctx, o)
	}
	return o, nil
}

// AutoApproveDue approves every order pending for longer than window, writing
// the audit note that distinguishes scheduler approvals from human ones.
// Rejection has no automatic path. Losing a race to a human manager on an
// individual order is a no-op, not an error.
func (s *Service) AutoApproveDue(ctx context.Context, now time.Time, window time.Duration) ([]*Order, error) {
	due, err := s.repo.ListPendingBefore(ctx, now.Add(-window))
	if err != nil {
		return nil, err
	}
	var approved []*Order
	for i := range due {
		if !AutoApprovable(&due[i], now, window) {
			continue
		}
		o, err := s.Decide(ctx, due[i].ID, DecisionApprove, AutoDecider, AutoApproveNote)
		if errors.Is(err, ErrAlreadyResolved) || errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			log.Printf("[order] auto-approve %s failed: %v", due[i].ID, err)
			continue
		}
		approved = append(approved, o)
	}
	return approved, nil
}

// Get reads an order through the cache projection when one is configured.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	if s.cache != nil {
		if o, ok := s.cache.Get(ctx, id); ok {
			return o, nil
		}
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Put(ctx, o)
	}
	return o, nil
}

func (s *Service) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]Order, error) {
	return s.repo.ListByBuyer(ctx, buyerID, limit, offset)
}

// ApprovedUndispatched lists approved delivery orders still missing their
// dispatch record, with items loaded.
func (s *Service) ApprovedUndispatched(ctx context.Context) ([]*Order, error) {
	stubs, err := s.repo.ListApprovedUndispatched(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Order, 0, len(stubs))
	for i := range stubs {
		o, err := s.repo.GetByID(ctx, stubs[i].ID)
		if err != nil {
			log.Printf("[order] load undispatched %s failed: %v", stubs[i].ID, err)
			continue
		}
		out = append(out, o)
	}
	return out, nil
}
