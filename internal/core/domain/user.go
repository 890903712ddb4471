package domain

import "time"

// User is the backend's account record. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity projects the account onto the client-side identity.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, DisplayName: u.Name, Email: u.Email, Role: u.Role}
}
