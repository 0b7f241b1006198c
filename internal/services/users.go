package services

import (
	"sync"
	"time"

	"dice-game-server/internal/models"
)

// UserRegistry owns every user and is the single owner of balance
// mutation. Users are seeded at startup; there is no dynamic registration.
type UserRegistry struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	byName map[string]*models.User
	nextID int64
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		users:  make(map[int64]*models.User),
		byName: make(map[string]*models.User),
		nextID: 1,
	}
}

// SeedUsers creates the startup accounts. Usernames must be unique.
func (r *UserRegistry) SeedUsers(credentials map[string]string, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for username, password := range credentials {
		if _, exists := r.byName[username]; exists {
			continue
		}
		user, err := models.NewUser(r.nextID, username, password, balance)
		if err != nil {
			return err
		}
		r.users[user.ID] = user
		r.byName[username] = user
		r.nextID++
	}
	return nil
}

// VerifyCredentials checks username/password and returns the user id on
// success. The bcrypt comparison runs outside any registry state change.
func (r *UserRegistry) VerifyCredentials(username, password string) (*models.User, bool) {
	r.mu.Lock()
	user, ok := r.byName[username]
	r.mu.Unlock()

	if !ok || !user.VerifyPassword(password) {
		return nil, false
	}
	return user, true
}

func (r *UserRegistry) Get(userID int64) (*models.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	return user, ok
}

// Balance returns the user's current balance.
func (r *UserRegistry) Balance(userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return 0, NewAuthError("user not found")
	}
	return user.Balance, nil
}

// Debit withdraws amount from the user's balance, failing without
// mutation when funds are insufficient. Returns the remaining balance.
func (r *UserRegistry) Debit(userID, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return 0, NewAuthError("user not found")
	}
	if user.Balance < amount {
		return user.Balance, NewBalanceError("insufficient balance")
	}
	user.Balance -= amount
	user.LastActivity = time.Now()
	return user.Balance, nil
}

// Credit deposits amount and returns the new balance.
func (r *UserRegistry) Credit(userID, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return 0, NewAuthError("user not found")
	}
	user.Balance += amount
	user.LastActivity = time.Now()
	return user.Balance, nil
}

// CurrentRoom reports the room the user occupies, 0 when none.
func (r *UserRegistry) CurrentRoom(userID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[userID]; ok {
		return user.CurrentRoom
	}
	return 0
}

// SetCurrentRoom records the user's room reference. The room registry is
// the authority on membership; this is the user-side mirror.
func (r *UserRegistry) SetCurrentRoom(userID, roomID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[userID]; ok {
		user.CurrentRoom = roomID
	}
}
