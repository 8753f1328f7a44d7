package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/order"
)

var (
	ErrNotFound = errors.New("dispatch record not found")
	// ErrStaleStatus means a guarded transition matched no row: the record is
	// absent or no longer in the required state.
	ErrStaleStatus = errors.New("dispatch status guard failed")
)

type Repository interface {
	// Create inserts the record unless one already exists for its order.
	// The returned bool reports whether a row was actually inserted.
	Create(ctx context.Context, rec *Record) (bool, error)
	GetByID(ctx context.Context, id string) (*Record, error)
	GetByOrderID(ctx context.Context, orderID string) (*Record, error)
	Accept(ctx context.Context, id string, at time.Time) error
	Reject(ctx context.Context, id string, at time.Time) error
	Deliver(ctx context.Context, id string, at time.Time) error
	Expire(ctx context.Context, id string) error
	ListWaiting(ctx context.Context) ([]Record, error)
	ListDeliveredUncredited(ctx context.Context) ([]Record, error)
	MarkCredited(ctx context.Context, id string, at time.Time) (bool, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, rec *Record) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// UNIQUE(order_id) plus DO NOTHING keeps a replayed approval from
	// spawning a second record for the same order.
	tag, err := r.db.Exec(ctx, `
    INSERT INTO dispatch_records
      (id, order_id, buyer_id, customer_username, total,
       manager_status, motoboy_status, manager_processed_at, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (order_id) DO NOTHING
  `, rec.ID, rec.OrderID, rec.BuyerID, rec.CustomerUsername, rec.Total,
		rec.ManagerStatus, rec.MotoboyStatus, rec.ManagerProcessedAt, rec.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const recordCols = `
    SELECT id, order_id, buyer_id, customer_username, total::text,
           manager_status, motoboy_status,
           manager_processed_at, motoboy_accepted_at, delivered_at, credited_at, created_at
    FROM dispatch_records`

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.getOne(ctx, recordCols+` WHERE id=$1`, id)
}

func (r *PGRepo) GetByOrderID(ctx context.Context, orderID string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.getOne(ctx, recordCols+` WHERE order_id=$1`, orderID)
}

func (r *PGRepo) getOne(ctx context.Context, sql, arg string) (*Record, error) {
	var rec Record
	err := r.db.QueryRow(ctx, sql, arg).Scan(
		&rec.ID, &rec.OrderID, &rec.BuyerID, &rec.CustomerUsername, &rec.Total,
		&rec.ManagerStatus, &rec.MotoboyStatus,
		&rec.ManagerProcessedAt, &rec.MotoboyAcceptedAt, &rec.DeliveredAt, &rec.CreditedAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.lines(ctx, rec.OrderID)
	if err != nil {
		return nil, err
	}
	rec.Items = items
	return &rec, nil
}

func (r *PGRepo) lines(ctx context.Context, orderID string) ([]order.Line, error) {
	rows, err := r.db.Query(ctx, `
    SELECT id, order_id, item_id, name, unit_price::text, quantity
    FROM order_lines WHERE order_id=$1
  `, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []order.Line
	for rows.Next() {
		var it order.Line
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.Name, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Accept takes the record out of waiting. The status guard rejects a second
// courier accepting an already-accepted record.
func (r *PGRepo) Accept(ctx context.Context, id string, at time.Time) error {
	return r.guarded(ctx, `
    UPDATE dispatch_records
    SET motoboy_status='accepted', motoboy_accepted_at=$2
    WHERE id=$1 AND motoboy_status='waiting'
  `, id, at)
}

func (r *PGRepo) Reject(ctx context.Context, id string, at time.Time) error {
	return r.guarded(ctx, `
    UPDATE dispatch_records
    SET motoboy_status='rejected', motoboy_accepted_at=$2
    WHERE id=$1 AND motoboy_status='waiting'
  `, id, at)
}

func (r *PGRepo) Deliver(ctx context.Context, id string, at time.Time) error {
	return r.guarded(ctx, `
    UPDATE dispatch_records
    SET motoboy_status='delivered', delivered_at=$2
    WHERE id=$1 AND motoboy_status='accepted'
  `, id, at)
}

// Expire times out a waiting record; both status fields move to expired.
func (r *PGRepo) Expire(ctx context.Context, id string) error {
	return r.guarded(ctx, `
    UPDATE dispatch_records
    SET motoboy_status='expired', manager_status='expired'
    WHERE id=$1 AND motoboy_status='waiting'
  `, id)
}

func (r *PGRepo) guarded(ctx context.Context, sql string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *PGRepo) ListWaiting(ctx context.Context) ([]Record, error) {
	return r.list(ctx, recordCols+` WHERE motoboy_status='waiting' ORDER BY created_at ASC`)
}

func (r *PGRepo) ListDeliveredUncredited(ctx context.Context) ([]Record, error) {
	return r.list(ctx, recordCols+` WHERE motoboy_status='delivered' AND credited_at IS NULL ORDER BY delivered_at ASC`)
}

func (r *PGRepo) list(ctx context.Context, sql string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.OrderID, &rec.BuyerID, &rec.CustomerUsername, &rec.Total,
			&rec.ManagerStatus, &rec.MotoboyStatus,
			&rec.ManagerProcessedAt, &rec.MotoboyAcceptedAt, &rec.DeliveredAt, &rec.CreditedAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := r.lines(ctx, out[i].OrderID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// MarkCredited sets the processed marker once. The IS NULL guard makes a
// concurrent double credit run observable to the loser.
func (r *PGRepo) MarkCredited(ctx context.Context, id string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE dispatch_records SET credited_at=$2
    WHERE id=$1 AND credited_at IS NULL
  `, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
