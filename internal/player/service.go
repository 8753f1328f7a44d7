package player

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrBadRole      = errors.New("role must be player, manager or motoboy")
	ErrBadUsername  = errors.New("username is required")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register provisions an account record. Sessions and tokens are handled by
// the game client backend, not here; only the stored hash lives in this
// service.
func (s *Service) Register(ctx context.Context, username, email, role, password string) (*Player, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrBadUsername
	}
	switch role {
	case RolePlayer, RoleManager, RoleMotoboy:
	default:
		return nil, ErrBadRole
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, ErrAlreadyExist
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	p := &Player{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Player, error) {
	return s.repo.GetByID(ctx, id)
}

// Remove deletes the account record. Players with order history keep their
// rows; the FK on orders.buyer_id rejects the delete.
func (s *Service) Remove(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
