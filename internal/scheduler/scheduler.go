// Package scheduler sweeps the order and dispatch ledgers past their
// deadlines: pending orders auto-approve, stale dispatch records expire, and
// delivered records get credited. No human session drives any of this.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/dispatch"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/inventory"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/order"
)

type TickResult struct {
	Approved int `json:"approved"`
	Expired  int `json:"expired"`
	Credited int `json:"credited"`
}

type Scheduler struct {
	Orders     *order.Service
	Dispatches *dispatch.Service
	Credits    *inventory.Processor

	ApproveAfter time.Duration
	ExpireAfter  time.Duration
	Every        time.Duration

	Now func() time.Time
}

func New(orders *order.Service, dispatches *dispatch.Service, credits *inventory.Processor,
	approveAfter, expireAfter, every time.Duration) *Scheduler {
	return &Scheduler{
		Orders:       orders,
		Dispatches:   dispatches,
		Credits:      credits,
		ApproveAfter: approveAfter,
		ExpireAfter:  expireAfter,
		Every:        every,
		Now:          time.Now,
	}
}

// Tick runs the three sweep steps once. Every step is a guarded idempotent
// transition, so steps are order-independent and a failure in one aborts
// only that step; the next tick is the retry.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	now := s.Now().UTC()
	var res TickResult

	approved, err := s.Orders.AutoApproveDue(ctx, now, s.ApproveAfter)
	if err != nil {
		log.Printf("[scheduler] auto-approve step failed: %v", err)
	}
	res.Approved = len(approved)

	// Covers both the orders approved just above and any delivery order a
	// crashed approver left without its dispatch record.
	undispatched, err := s.Orders.ApprovedUndispatched(ctx)
	if err != nil {
		log.Printf("[scheduler] dispatch reconcile step failed: %v", err)
	}
	for _, o := range undispatched {
		if _, _, err := s.Dispatches.OpenForOrder(ctx, o); err != nil {
			log.Printf("[scheduler] open dispatch for order %s failed: %v", o.ID, err)
		}
	}

	expired, err := s.Dispatches.ExpireDueRecords(ctx, now, s.ExpireAfter)
	if err != nil {
		log.Printf("[scheduler] expire step failed: %v", err)
	}
	res.Expired = expired

	delivered, err := s.Dispatches.DeliveredUncredited(ctx)
	if err != nil {
		log.Printf("[scheduler] credit step failed: %v", err)
	}
	for i := range delivered {
		_, credited, err := s.Credits.Process(ctx, delivered[i].ID)
		if err != nil {
			log.Printf("[scheduler] credit dispatch %s failed: %v", delivered[i].ID, err)
			continue
		}
		if credited {
			res.Credited++
		}
	}

	if res.Approved > 0 || res.Expired > 0 || res.Credited > 0 {
		log.Printf("[scheduler] tick approved=%d expired=%d credited=%d", res.Approved, res.Expired, res.Credited)
	}
	return res
}

// Run drives Tick on a fixed interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.Every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Tick(ctx)
		}
	}
}
