// Package catalog provides the repository interface and PostgreSQL
// implementation for store goods.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("good not found")
)

type Query struct {
	StoreID string
	Q       string
	Limit   int
	Offset  int
}

type Repository interface {
	Create(ctx context.Context, g *Good) error
	GetByID(ctx context.Context, id string) (*Good, error)
	List(ctx context.Context, q Query) ([]Good, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, g *Good) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO store_goods (id, store_id, name, description, price, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
	`, g.ID, g.StoreID, g.Name, g.Description, g.Price)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Good, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var g Good
	err := r.db.QueryRow(ctx, `
		SELECT id, store_id, name, description, price::text, created_at, updated_at
		FROM store_goods WHERE id=$1
	`, id).Scan(&g.ID, &g.StoreID, &g.Name, &g.Description, &g.Price, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Good, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	search := strings.TrimSpace(q.Q)

	rows, err := r.db.Query(ctx, `
		SELECT id, store_id, name, description, price::text, created_at, updated_at
		FROM store_goods
		WHERE store_id = $1
		  AND ($2 = '' OR name ILIKE '%'||$2||'%' OR description ILIKE '%'||$2||'%')
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`, q.StoreID, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Good
	for rows.Next() {
		var g Good
		if err := rows.Scan(&g.ID, &g.StoreID, &g.Name, &g.Description, &g.Price, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
