package domain

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Member is a user of the ledger. Only admins may create loans or post records.
type Member struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Role      string    `json:"role" db:"role"`
	Token     string    `json:"-" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (m Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}
