package cart

import "sync"

// Registry hands out one Session per player, creating it on first use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Session(playerID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	if !ok {
		s = NewSession()
		r.sessions[playerID] = s
	}
	return s
}
