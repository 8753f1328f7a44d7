package order

import (
	"time"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	DeliveryPickup   = "pickup"
	DeliveryDelivery = "delivery"

	DecisionApprove = "approve"
	DecisionReject  = "reject"

	// AutoDecider marks approvals made by the scheduler instead of a manager.
	AutoDecider = "system"
)

// AutoApproveNote is the audit note written on scheduler approvals.
const AutoApproveNote = "auto-approved: no manager action within deadline"

type Line struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"` // NUMERIC -> string
	Quantity  int    `json:"quantity"`
}

// Order is the immutable priced snapshot of a submitted cart. Total is frozen
// at submit time and never recomputed from live catalog prices.
type Order struct {
	ID           string     `json:"id"`
	BuyerID      string     `json:"buyer_id"`
	StoreID      string     `json:"store_id"`
	DeliveryType string     `json:"delivery_type"`
	Status       string     `json:"status"`
	Total        string     `json:"total"` // NUMERIC -> string
	Items        []Line     `json:"items"`
	ManagerNotes string     `json:"manager_notes,omitempty"`
	DecidedBy    string     `json:"decided_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
}

func (o *Order) Resolved() bool {
	return o.Status == StatusApproved || o.Status == StatusRejected
}

// AutoApprovable reports whether the scheduler should approve o at now.
// Pure function of its inputs so deadline logic tests need no real clock.
func AutoApprovable(o *Order, now time.Time, window time.Duration) bool {
	return o.Status == StatusPending && now.Sub(o.CreatedAt) >= window
}
