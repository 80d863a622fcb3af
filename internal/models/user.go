package models

import "time"

// User represents an account, created by sign-up or by the first OAuth login.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Picture      string    `json:"picture"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasPassword reports whether the account can sign in with a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Identity is the snapshot of an authenticated user held by a session.
type Identity struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Identity returns the session snapshot for the user.
func (u *User) Identity() Identity {
	return Identity{Name: u.Name, Email: u.Email, Picture: u.Picture}
}

// ProviderIdentity is what an external OAuth provider verified about a user.
type ProviderIdentity struct {
	Email   string
	Name    string
	Picture string
}

// Session represents a server-side user session.
type Session struct {
	Token     string    `json:"token"`
	UserEmail string    `json:"user_email"`
	ExpiresAt time.Time `json:"expires_at"`
}
