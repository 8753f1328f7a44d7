package player

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type stubRepo struct {
	mu      sync.Mutex
	players map[string]*Player
}

func newStubRepo() *stubRepo { return &stubRepo{players: make(map[string]*Player)} }

func (s *stubRepo) Create(ctx context.Context, p *Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.players {
		if cur.Username == p.Username {
			return ErrAlreadyExist
		}
	}
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubRepo) GetByUsername(ctx context.Context, username string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubRepo) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[id]
	return ok, nil
}

func (s *stubRepo) Username(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return "", ErrNotFound
	}
	return p.Username, nil
}

func (s *stubRepo) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return false, nil
	}
	delete(s.players, id)
	return true, nil
}

func TestRegister(t *testing.T) {
	t.Parallel()
	svc := NewService(newStubRepo())

	p, err := svc.Register(context.Background(), "joana", "joana@rp.example", RolePlayer, "longenough")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.ID == "" || p.Role != RolePlayer {
		t.Fatalf("player: %+v", p)
	}
	if p.PasswordHash == "" || p.PasswordHash == "longenough" {
		t.Fatalf("password must be stored hashed")
	}
	if !CheckPassword(p.PasswordHash, "longenough") {
		t.Fatalf("stored hash does not verify")
	}
	if CheckPassword(p.PasswordHash, "wrong") {
		t.Fatalf("wrong password verified")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	t.Parallel()
	svc := NewService(newStubRepo())

	if _, err := svc.Register(context.Background(), "joana", "", RolePlayer, "longenough"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "joana", "", RoleManager, "longenough"); !errors.Is(err, ErrAlreadyExist) {
		t.Fatalf("err=%v, want ErrAlreadyExist", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	svc := NewService(newStubRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "  ", "", RolePlayer, "longenough"); !errors.Is(err, ErrBadUsername) {
		t.Fatalf("blank username err=%v, want ErrBadUsername", err)
	}
	if _, err := svc.Register(ctx, "joana", "", "dragon", "longenough"); !errors.Is(err, ErrBadRole) {
		t.Fatalf("bad role err=%v, want ErrBadRole", err)
	}
	if _, err := svc.Register(ctx, "joana", "", RolePlayer, "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("short password err=%v, want ErrWeakPassword", err)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()
	svc := NewService(newStubRepo())

	p, _ := svc.Register(context.Background(), "joana", "", RolePlayer, "longenough")
	if err := svc.Remove(context.Background(), p.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(context.Background(), p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove err=%v, want ErrNotFound", err)
	}
	if _, err := svc.Get(context.Background(), p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after remove err=%v, want ErrNotFound", err)
	}
}
