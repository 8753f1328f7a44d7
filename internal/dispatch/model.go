package dispatch

import (
	"time"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/order"
)

const (
	ManagerPending  = "pending"
	ManagerApproved = "approved"
	ManagerRejected = "rejected"
	ManagerExpired  = "expired"

	MotoboyWaiting   = "waiting"
	MotoboyAccepted  = "accepted"
	MotoboyRejected  = "rejected"
	MotoboyDelivered = "delivered"
	MotoboyExpired   = "expired"

	DecisionAccept  = "accept"
	DecisionReject  = "reject"
	DecisionDeliver = "deliver"
)

// Record is the courier-facing sub-lifecycle of an approved delivery order.
// One record per order, created when the order is approved.
//
// waiting and accepted are the only non-terminal motoboy states:
//
//	waiting  -accept->  accepted  -deliver-> delivered
//	waiting  -reject->  rejected
//	waiting  -timeout-> expired (manager status expires too)
type Record struct {
	ID                 string       `json:"id"`
	OrderID            string       `json:"order_id"`
	BuyerID            string       `json:"buyer_id"`
	CustomerUsername   string       `json:"customer_username"`
	Items              []order.Line `json:"items"`
	Total              string       `json:"total"` // NUMERIC -> string
	ManagerStatus      string       `json:"manager_status"`
	MotoboyStatus      string       `json:"motoboy_status"`
	ManagerProcessedAt *time.Time   `json:"manager_processed_at,omitempty"`
	MotoboyAcceptedAt  *time.Time   `json:"motoboy_accepted_at,omitempty"`
	DeliveredAt        *time.Time   `json:"delivered_at,omitempty"`
	CreditedAt         *time.Time   `json:"credited_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// ExpireDue reports whether the record has sat in waiting past ttl. The wait
// is measured from ManagerProcessedAt (entry into waiting), not CreatedAt.
// Pure function of its inputs so deadline logic tests need no real clock.
func ExpireDue(rec *Record, now time.Time, ttl time.Duration) bool {
	if rec.MotoboyStatus != MotoboyWaiting || rec.ManagerProcessedAt == nil {
		return false
	}
	return now.Sub(*rec.ManagerProcessedAt) >= ttl
}
