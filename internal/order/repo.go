package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrStaleStatus means a guarded update matched no row: the order is
	// absent or its status already moved on. Callers re-read to tell which.
	ErrStaleStatus = errors.New("order status guard failed")
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]Order, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]Order, error)
	ListApprovedUndispatched(ctx context.Context) ([]Order, error)
	Resolve(ctx context.Context, id, status, decidedBy, notes string, at time.Time) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO orders (id, buyer_id, store_id, delivery_type, status, total, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, o.ID, o.BuyerID, o.StoreID, o.DeliveryType, o.Status, o.Total, o.CreatedAt); err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
      INSERT INTO order_lines (id, order_id, item_id, name, unit_price, quantity)
      VALUES ($1,$2,$3,$4,$5,$6)
    `, it.ID, o.ID, it.ItemID, it.Name, it.UnitPrice, it.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var o Order
	err := r.db.QueryRow(ctx, `
    SELECT id, buyer_id, store_id, delivery_type, status, total::text,
           COALESCE(manager_notes,''), COALESCE(decided_by,''), created_at, approved_at
    FROM orders WHERE id=$1
  `, id).Scan(&o.ID, &o.BuyerID, &o.StoreID, &o.DeliveryType, &o.Status, &o.Total,
		&o.ManagerNotes, &o.DecidedBy, &o.CreatedAt, &o.ApprovedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *PGRepo) lines(ctx context.Context, orderID string) ([]Line, error) {
	rows, err := r.db.Query(ctx, `
    SELECT id, order_id, item_id, name, unit_price::text, quantity
    FROM order_lines WHERE order_id=$1
  `, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Line
	for rows.Next() {
		var it Line
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.Name, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepo) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `
    SELECT id, buyer_id, store_id, delivery_type, status, total::text,
           COALESCE(manager_notes,''), COALESCE(decided_by,''), created_at, approved_at
    FROM orders WHERE buyer_id=$1
    ORDER BY created_at DESC LIMIT $2 OFFSET $3
  `, buyerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *PGRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
    SELECT id, buyer_id, store_id, delivery_type, status, total::text,
           COALESCE(manager_notes,''), COALESCE(decided_by,''), created_at, approved_at
    FROM orders WHERE status='pending' AND created_at <= $1
    ORDER BY created_at ASC
  `, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListApprovedUndispatched finds approved delivery orders that never got a
// dispatch record, e.g. when the approving process died before opening one.
// The sweep re-opens them, which is what makes approval crash-resumable.
func (r *PGRepo) ListApprovedUndispatched(ctx context.Context) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
    SELECT o.id, o.buyer_id, o.store_id, o.delivery_type, o.status, o.total::text,
           COALESCE(o.manager_notes,''), COALESCE(o.decided_by,''), o.created_at, o.approved_at
    FROM orders o
    LEFT JOIN dispatch_records d ON d.order_id = o.id
    WHERE o.status='approved' AND o.delivery_type='delivery' AND d.id IS NULL
    ORDER BY o.created_at ASC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.StoreID, &o.DeliveryType, &o.Status, &o.Total,
			&o.ManagerNotes, &o.DecidedBy, &o.CreatedAt, &o.ApprovedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Resolve moves a pending order to its terminal status. The WHERE clause is
// the optimistic guard: when a concurrent actor already resolved the order,
// zero rows match and ErrStaleStatus is returned instead of overwriting.
func (r *PGRepo) Resolve(ctx context.Context, id, status, decidedBy, notes string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE orders
    SET status = $2,
        decided_by = $3,
        manager_notes = $4,
        approved_at = CASE WHEN $2 = 'approved' THEN $5 ELSE NULL END
    WHERE id = $1 AND status = 'pending'
  `, id, status, decidedBy, notes, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}
