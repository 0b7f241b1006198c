package services

import (
	"fmt"
	"sync"

	"dice-game-server/internal/models"
)

// RoomSnapshot is a read-only view of one room's occupancy and pool.
type RoomSnapshot struct {
	RoomID      int64
	Name        string
	PlayerCount int
	Capacity    int
	JackpotPool int64
	MinBet      int64
	MaxBet      int64
}

// RoomRegistry owns the fixed pool of rooms, user membership, and the
// per-room jackpot pools.
type RoomRegistry struct {
	mu         sync.Mutex
	rooms      map[int64]*models.Room
	membership map[int64]int64 // user id -> room id
}

// NewRoomRegistry builds rooms 1..count with the shared capacity and bet
// bounds. The pool never changes afterwards.
func NewRoomRegistry(count, capacity int, minBet, maxBet int64) *RoomRegistry {
	r := &RoomRegistry{
		rooms:      make(map[int64]*models.Room),
		membership: make(map[int64]int64),
	}
	for i := 1; i <= count; i++ {
		id := int64(i)
		r.rooms[id] = models.NewRoom(id, fmt.Sprintf("Room %d", i), capacity, minBet, maxBet)
	}
	return r
}

// Join moves the user into roomID, leaving any prior room first. Fails on
// unknown rooms and rooms at capacity, with membership unchanged.
func (r *RoomRegistry) Join(userID, roomID int64) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, NewRoomError(fmt.Sprintf("room %d does not exist", roomID))
	}

	if prevID, ok := r.membership[userID]; ok && prevID != roomID {
		if prev, ok := r.rooms[prevID]; ok {
			prev.RemovePlayer(userID)
		}
	}

	if !room.AddPlayer(userID) {
		// Re-admit to the previous room untouched: AddPlayer only fails
		// before mutating, so membership state is as it was.
		if prevID, ok := r.membership[userID]; ok {
			if prev, ok := r.rooms[prevID]; ok {
				prev.AddPlayer(userID)
			}
		}
		return RoomSnapshot{}, NewRoomError(fmt.Sprintf("room %d is full", roomID))
	}

	r.membership[userID] = roomID
	return snapshotLocked(room), nil
}

// Leave removes the user from their room, if any. Idempotent.
func (r *RoomRegistry) Leave(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if roomID, ok := r.membership[userID]; ok {
		if room, ok := r.rooms[roomID]; ok {
			room.RemovePlayer(userID)
		}
		delete(r.membership, userID)
	}
}

// Snapshot returns the current view of one room.
func (r *RoomRegistry) Snapshot(roomID int64) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, NewRoomError(fmt.Sprintf("room %d does not exist", roomID))
	}
	return snapshotLocked(room), nil
}

// RoomOf reports which room the user occupies, 0 when none.
func (r *RoomRegistry) RoomOf(userID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.membership[userID]
}

// BetBounds returns the room-specific wager range.
func (r *RoomRegistry) BetBounds(roomID int64) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return 0, 0, NewRoomError(fmt.Sprintf("room %d does not exist", roomID))
	}
	return room.MinBet, room.MaxBet, nil
}

// CreditJackpot atomically adds amount to the room's pool and returns the
// updated total. Called by the round engine at settlement.
func (r *RoomRegistry) CreditJackpot(roomID, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return 0, NewRoomError(fmt.Sprintf("room %d does not exist", roomID))
	}
	room.JackpotPool += amount
	return room.JackpotPool, nil
}

func snapshotLocked(room *models.Room) RoomSnapshot {
	return RoomSnapshot{
		RoomID:      room.ID,
		Name:        room.Name,
		PlayerCount: room.PlayerCount(),
		Capacity:    room.Capacity,
		JackpotPool: room.JackpotPool,
		MinBet:      room.MinBet,
		MaxBet:      room.MaxBet,
	}
}
