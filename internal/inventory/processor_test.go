package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/dispatch"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/order"
)

//
// ---------- stubs ----------
//

type stubInventory struct {
	mu      sync.Mutex
	held    map[string]int // userID|itemID -> qty
	failFor map[string]error
}

func newStubInventory() *stubInventory {
	return &stubInventory{held: make(map[string]int), failFor: make(map[string]error)}
}

func key(userID, itemID string) string { return userID + "|" + itemID }

func (s *stubInventory) Quantity(ctx context.Context, userID, itemID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[itemID]; err != nil {
		return 0, err
	}
	return s.held[key(userID, itemID)], nil
}

func (s *stubInventory) Credit(ctx context.Context, userID, itemID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held[key(userID, itemID)] += qty
	return nil
}

func (s *stubInventory) ListByUser(ctx context.Context, userID string) ([]Line, error) {
	return nil, nil
}

type stubRecords struct {
	mu   sync.Mutex
	recs map[string]*dispatch.Record
}

func newStubRecords(recs ...*dispatch.Record) *stubRecords {
	s := &stubRecords{recs: make(map[string]*dispatch.Record)}
	for _, r := range recs {
		s.recs[r.ID] = r
	}
	return s
}

func (s *stubRecords) GetByID(ctx context.Context, id string) (*dispatch.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, dispatch.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *stubRecords) MarkCredited(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok || rec.CreditedAt != nil {
		return false, nil
	}
	rec.CreditedAt = &at
	return true, nil
}

func deliveredRecord(items ...order.Line) *dispatch.Record {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &dispatch.Record{
		ID:            "disp-1",
		OrderID:       "order-1",
		BuyerID:       "buyer-1",
		MotoboyStatus: dispatch.MotoboyDelivered,
		DeliveredAt:   &now,
		Items:         items,
	}
}

func beerLine(qty int) order.Line {
	return order.Line{ItemID: "beer", Name: "Beer", UnitPrice: "30.00", Quantity: qty}
}

//
// ---------- tests ----------
//

func TestProcessCreditsRequestedQuantity(t *testing.T) {
	t.Parallel()
	inv := newStubInventory()
	recs := newStubRecords(deliveredRecord(beerLine(2)))
	p := NewProcessor(inv, recs)

	outcomes, credited, err := p.Process(context.Background(), "disp-1")
	if err != nil || !credited {
		t.Fatalf("process: credited=%v err=%v", credited, err)
	}
	if len(outcomes) != 1 || outcomes[0].Applied != 2 || outcomes[0].Shortfall != 0 {
		t.Fatalf("outcomes=%+v", outcomes)
	}
	if got := inv.held[key("buyer-1", "beer")]; got != 2 {
		t.Fatalf("held=%d, want 2", got)
	}
}

func TestProcessTruncatesAtCap(t *testing.T) {
	t.Parallel()
	inv := newStubInventory()
	inv.held[key("buyer-1", "beer")] = 9
	recs := newStubRecords(deliveredRecord(beerLine(2)))
	p := NewProcessor(inv, recs)

	outcomes, _, err := p.Process(context.Background(), "disp-1")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	out := outcomes[0]
	if out.Applied != 1 || out.Shortfall != 1 || out.Skipped {
		t.Fatalf("outcome=%+v, want applied=1 shortfall=1", out)
	}
	if got := inv.held[key("buyer-1", "beer")]; got != CapPerItem {
		t.Fatalf("held=%d, want cap %d", got, CapPerItem)
	}
}

func TestProcessSkipsFullItem(t *testing.T) {
	t.Parallel()
	inv := newStubInventory()
	inv.held[key("buyer-1", "beer")] = CapPerItem
	recs := newStubRecords(deliveredRecord(beerLine(2)))
	p := NewProcessor(inv, recs)

	outcomes, credited, err := p.Process(context.Background(), "disp-1")
	if err != nil || !credited {
		t.Fatalf("process: credited=%v err=%v", credited, err)
	}
	out := outcomes[0]
	if !out.Skipped || out.Applied != 0 || out.Shortfall != 2 {
		t.Fatalf("outcome=%+v, want skipped with shortfall 2", out)
	}
	if got := inv.held[key("buyer-1", "beer")]; got != CapPerItem {
		t.Fatalf("held=%d, cap breached", got)
	}
}

func TestProcessTwiceNeverDoubleCredits(t *testing.T) {
	t.Parallel()
	inv := newStubInventory()
	recs := newStubRecords(deliveredRecord(beerLine(2)))
	p := NewProcessor(inv, recs)

	if _, credited, err := p.Process(context.Background(), "disp-1"); err != nil || !credited {
		t.Fatalf("first run: credited=%v err=%v", credited, err)
	}
	outcomes, credited, err := p.Process(context.Background(), "disp-1")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if credited || outcomes != nil {
		t.Fatalf("second run must be a no-op, got credited=%v outcomes=%+v", credited, outcomes)
	}
	if got := inv.held[key("buyer-1", "beer")]; got != 2 {
		t.Fatalf("held=%d, want 2 (no double credit)", got)
	}
}

func TestProcessIsolatesItemFaults(t *testing.T) {
	t.Parallel()
	inv := newStubInventory()
	inv.failFor["beer"] = errors.New("inventory shard down")
	rec := deliveredRecord(
		beerLine(2),
		order.Line{ItemID: "wine", Name: "Wine", UnitPrice: "50.00", Quantity: 1},
	)
	recs := newStubRecords(rec)
	p := NewProcessor(inv, recs)

	outcomes, _, err := p.Process(context.Background(), "disp-1")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes=%+v, want both items attempted", outcomes)
	}
	if outcomes[0].Err == "" {
		t.Fatalf("beer outcome should carry the error, got %+v", outcomes[0])
	}
	if got := inv.held[key("buyer-1", "wine")]; got != 1 {
		t.Fatalf("wine held=%d, want 1 despite beer failing", got)
	}
}

func TestProcessIgnoresUndeliveredRecord(t *testing.T) {
	t.Parallel()
	rec := deliveredRecord(beerLine(2))
	rec.MotoboyStatus = dispatch.MotoboyAccepted
	rec.DeliveredAt = nil
	inv := newStubInventory()
	p := NewProcessor(inv, newStubRecords(rec))

	outcomes, credited, err := p.Process(context.Background(), "disp-1")
	if err != nil || credited || outcomes != nil {
		t.Fatalf("undelivered record: outcomes=%+v credited=%v err=%v", outcomes, credited, err)
	}
	if got := inv.held[key("buyer-1", "beer")]; got != 0 {
		t.Fatalf("held=%d, want 0", got)
	}
}
