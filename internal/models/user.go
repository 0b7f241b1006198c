package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// User is an authenticated identity with a balance in the smallest
// currency unit. Balance is mutated only through the user registry.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`

	Balance     int64 `json:"balance"`
	CurrentRoom int64 `json:"current_room"` // 0 when not in a room

	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser hashes the password and returns a user with the starting balance.
func NewUser(id int64, username, password string, balance int64) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		Balance:      balance,
		LastActivity: now,
		CreatedAt:    now,
	}, nil
}

// VerifyPassword checks a candidate password against the stored hash.
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
