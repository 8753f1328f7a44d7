package player

import "time"

// Player is the account record behind every actor in the lifecycle: buyers,
// store managers and motoboys are all players with a role.
type Player struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"` // player | manager | motoboy
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	RolePlayer  = "player"
	RoleManager = "manager"
	RoleMotoboy = "motoboy"
)
