package player

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("player not found")
	ErrAlreadyExist = errors.New("player already exists")
)

type Repository interface {
	Create(ctx context.Context, p *Player) error
	GetByID(ctx context.Context, id string) (*Player, error)
	GetByUsername(ctx context.Context, username string) (*Player, error)
	Exists(ctx context.Context, id string) (bool, error)
	Username(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, p *Player) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO players (id, username, email, role, password_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
	`, p.ID, p.Username, p.Email, p.Role, p.PasswordHash)
	if err != nil {
		// UNIQUE on username/email
		return ErrAlreadyExist
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Player, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		SELECT id, username, email, role, password_hash, created_at, updated_at
		FROM players WHERE id=$1
	`, id)
	var p Player
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *PGRepo) GetByUsername(ctx context.Context, username string) (*Player, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		SELECT id, username, email, role, password_hash, created_at, updated_at
		FROM players WHERE username=$1
	`, username)
	var p Player
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *PGRepo) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var one int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM players WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PGRepo) Username(ctx context.Context, id string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var name string
	err := r.db.QueryRow(ctx, `SELECT username FROM players WHERE id=$1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM players WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
