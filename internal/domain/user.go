package domain

import "time"

// UserRole distinguishes support clients from agents.
type UserRole string

const (
	RoleClient UserRole = "CLIENT"
	RoleAgent  UserRole = "AGENT"
)

// User is the domain model for people participating in support chats.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      UserRole
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is the "First Last" form used for agent assignment and
// presence notices.
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}
