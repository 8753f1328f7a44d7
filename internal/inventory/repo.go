// Package inventory credits delivered goods into player inventories, capped
// per item and idempotent under scheduler retries.
package inventory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CapPerItem bounds how many units of one item a player may hold in total.
const CapPerItem = 10

type Line struct {
	UserID   string `json:"user_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type Repository interface {
	Quantity(ctx context.Context, userID, itemID string) (int, error)
	Credit(ctx context.Context, userID, itemID string, qty int) error
	ListByUser(ctx context.Context, userID string) ([]Line, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Quantity(ctx context.Context, userID, itemID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var qty int
	err := r.db.QueryRow(ctx, `
    SELECT COALESCE(SUM(quantity), 0) FROM inventory
    WHERE user_id=$1 AND item_id=$2
  `, userID, itemID).Scan(&qty)
	if err != nil {
		return 0, err
	}
	return qty, nil
}

func (r *PGRepo) Credit(ctx context.Context, userID, itemID string, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
    INSERT INTO inventory (user_id, item_id, quantity)
    VALUES ($1,$2,$3)
    ON CONFLICT (user_id, item_id)
    DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity
  `, userID, itemID, qty)
	return err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
    SELECT user_id, item_id, quantity FROM inventory
    WHERE user_id=$1 ORDER BY item_id ASC
  `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.UserID, &l.ItemID, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
