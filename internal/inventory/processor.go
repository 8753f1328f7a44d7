package inventory

import (
	"context"
	"log"
	"time"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/dispatch"
)

// Records is the slice of the dispatch repository the processor needs: a
// fresh read and the processed marker.
type Records interface {
	GetByID(ctx context.Context, id string) (*dispatch.Record, error)
	MarkCredited(ctx context.Context, id string, at time.Time) (bool, error)
}

// Outcome is the per-item result of a credit run.
type Outcome struct {
	ItemID    string `json:"item_id"`
	Requested int    `json:"requested"`
	Applied   int    `json:"applied"`
	Shortfall int    `json:"shortfall"`
	Skipped   bool   `json:"skipped"`
	Err       string `json:"error,omitempty"`
}

// Processor transfers the items of a delivered dispatch record into the
// buyer's inventory, once per record.
type Processor struct {
	inv     Repository
	records Records

	Now func() time.Time
}

func NewProcessor(inv Repository, records Records) *Processor {
	return &Processor{inv: inv, records: records, Now: time.Now}
}

// Process credits every item of the dispatch record into the buyer's
// inventory. The record and the held quantities are re-read fresh on every
// run, never carried over from a previous attempt, so a retry cannot
// double-credit. Errors on one item do not stop the remaining items. The
// processed marker is written afterwards; credited reports whether this run
// set it.
func (p *Processor) Process(ctx context.Context, dispatchID string) (outcomes []Outcome, credited bool, err error) {
	rec, err := p.records.GetByID(ctx, dispatchID)
	if err != nil {
		return nil, false, err
	}
	if rec.CreditedAt != nil {
		return nil, false, nil
	}
	if rec.MotoboyStatus != dispatch.MotoboyDelivered {
		return nil, false, nil
	}

	for _, it := range rec.Items {
		out := Outcome{ItemID: it.ItemID, Requested: it.Quantity}

		current, qerr := p.inv.Quantity(ctx, rec.BuyerID, it.ItemID)
		if qerr != nil {
			out.Err = qerr.Error()
			outcomes = append(outcomes, out)
			continue
		}
		headroom := CapPerItem - current
		if headroom < 0 {
			headroom = 0
		}
		applied := it.Quantity
		if applied > headroom {
			applied = headroom
		}
		out.Applied = applied
		out.Shortfall = it.Quantity - applied

		if applied == 0 {
			out.Skipped = true
			log.Printf("[credit] dispatch=%s user=%s item=%s skipped: held %d of cap %d",
				rec.ID, rec.BuyerID, it.ItemID, current, CapPerItem)
			outcomes = append(outcomes, out)
			continue
		}
		if cerr := p.inv.Credit(ctx, rec.BuyerID, it.ItemID, applied); cerr != nil {
			out.Err = cerr.Error()
			out.Applied = 0
			out.Shortfall = it.Quantity
			outcomes = append(outcomes, out)
			continue
		}
		if out.Shortfall > 0 {
			log.Printf("[credit] dispatch=%s user=%s item=%s truncated: applied %d, shortfall %d",
				rec.ID, rec.BuyerID, it.ItemID, applied, out.Shortfall)
		}
		outcomes = append(outcomes, out)
	}

	credited, err = p.records.MarkCredited(ctx, rec.ID, p.Now().UTC())
	if err != nil {
		return outcomes, false, err
	}
	if !credited {
		log.Printf("[credit] dispatch=%s marker already set by a concurrent run", rec.ID)
	}
	return outcomes, credited, nil
}
