package cart

import (
	"testing"

	"github.com/shopspring/decimal"
)

func line(item, price string, qty int) Line {
	return Line{ItemID: item, Name: "item " + item, UnitPrice: price, Quantity: qty}
}

func TestAddClampsQuantity(t *testing.T) {
	t.Parallel()
	s := NewSession()

	adjusted, err := s.Add("bar", line("a", "30.00", 2))
	if err != nil || adjusted {
		t.Fatalf("first add: adjusted=%v err=%v", adjusted, err)
	}
	adjusted, err = s.Add("bar", line("a", "30.00", 2))
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if !adjusted {
		t.Fatalf("sum 4 should have been clamped and reported")
	}
	got := s.Lines("bar")
	if len(got) != 1 || got[0].Quantity != MaxPerItem {
		t.Fatalf("lines=%+v, want single line at quantity %d", got, MaxPerItem)
	}
}

func TestAddSingleLineAboveCap(t *testing.T) {
	t.Parallel()
	s := NewSession()

	adjusted, err := s.Add("bar", line("a", "10.00", 7))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !adjusted {
		t.Fatalf("quantity 7 should be clamped")
	}
	if got := s.Lines("bar")[0].Quantity; got != MaxPerItem {
		t.Fatalf("quantity=%d, want %d", got, MaxPerItem)
	}
}

func TestAddRejectsZeroQuantity(t *testing.T) {
	t.Parallel()
	s := NewSession()
	if _, err := s.Add("bar", line("a", "10.00", 0)); err != ErrBadQuantity {
		t.Fatalf("err=%v, want ErrBadQuantity", err)
	}
}

func TestQuantityAlwaysWithinBounds(t *testing.T) {
	t.Parallel()
	s := NewSession()
	_, _ = s.Add("bar", line("a", "10.00", 1))

	for i := 0; i < 10; i++ {
		if _, err := s.Increase("bar", "a"); err != nil {
			t.Fatalf("increase: %v", err)
		}
	}
	if got := s.Lines("bar")[0].Quantity; got != MaxPerItem {
		t.Fatalf("after increases quantity=%d, want %d", got, MaxPerItem)
	}
	for i := 0; i < 10; i++ {
		if _, err := s.Decrease("bar", "a"); err != nil {
			t.Fatalf("decrease: %v", err)
		}
	}
	// Decrease floors at 1; the line never vanishes through decrement.
	if got := s.Lines("bar")[0].Quantity; got != 1 {
		t.Fatalf("after decreases quantity=%d, want 1", got)
	}
}

func TestRemoveIsExplicit(t *testing.T) {
	t.Parallel()
	s := NewSession()
	_, _ = s.Add("bar", line("a", "10.00", 1))

	if err := s.Remove("bar", "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := s.Lines("bar"); len(got) != 0 {
		t.Fatalf("lines=%+v, want empty", got)
	}
	if err := s.Remove("bar", "a"); err != ErrLineMissing {
		t.Fatalf("second remove err=%v, want ErrLineMissing", err)
	}
}

func TestTotal(t *testing.T) {
	t.Parallel()
	s := NewSession()
	_, _ = s.Add("bar", line("a", "30.00", 2))
	_, _ = s.Add("bar", line("b", "4.50", 3))

	want := decimal.RequireFromString("73.50")
	if got := s.Total("bar"); !got.Equal(want) {
		t.Fatalf("total=%s, want %s", got, want)
	}
	// Pure read: calling it again changes nothing.
	if got := s.Total("bar"); !got.Equal(want) {
		t.Fatalf("second total=%s, want %s", got, want)
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	t.Parallel()
	s := NewSession()
	for _, id := range []string{"c", "a", "b"} {
		_, _ = s.Add("bar", line(id, "1.00", 1))
	}
	got := s.Lines("bar")
	if got[0].ItemID != "c" || got[1].ItemID != "a" || got[2].ItemID != "b" {
		t.Fatalf("order=%v", []string{got[0].ItemID, got[1].ItemID, got[2].ItemID})
	}
}

func TestCartsAreIndependentPerStore(t *testing.T) {
	t.Parallel()
	s := NewSession()
	_, _ = s.Add("bar", line("a", "10.00", 1))
	_, _ = s.Add("pharmacy", line("b", "5.00", 2))

	s.Clear("bar")
	if got := s.Lines("bar"); len(got) != 0 {
		t.Fatalf("bar cart should be empty, got %+v", got)
	}
	if got := s.Lines("pharmacy"); len(got) != 1 {
		t.Fatalf("pharmacy cart should survive, got %+v", got)
	}
}
