package models

import "time"

// Room is one entry of the fixed room pool. Rooms are created at startup
// and never destroyed; membership and the jackpot pool change at runtime.
type Room struct {
	ID       int64  `json:"room_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`

	Players     map[int64]struct{} `json:"-"`
	JackpotPool int64              `json:"jackpot_pool"`

	MinBet int64 `json:"min_bet"`
	MaxBet int64 `json:"max_bet"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

func NewRoom(id int64, name string, capacity int, minBet, maxBet int64) *Room {
	now := time.Now()
	return &Room{
		ID:           id,
		Name:         name,
		Capacity:     capacity,
		Players:      make(map[int64]struct{}),
		MinBet:       minBet,
		MaxBet:       maxBet,
		CreatedAt:    now,
		LastActivity: now,
	}
}

func (r *Room) PlayerCount() int {
	return len(r.Players)
}

// AddPlayer admits a user unless the room is at capacity.
func (r *Room) AddPlayer(userID int64) bool {
	if _, ok := r.Players[userID]; ok {
		return true
	}
	if len(r.Players) >= r.Capacity {
		return false
	}
	r.Players[userID] = struct{}{}
	r.LastActivity = time.Now()
	return true
}

func (r *Room) RemovePlayer(userID int64) {
	delete(r.Players, userID)
	r.LastActivity = time.Now()
}
