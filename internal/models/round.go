package models

import "time"

// RoundStatus values match the wire representation in snapshot responses.
type RoundStatus int

const (
	NoActiveRound  RoundStatus = 0
	BettingPhase   RoundStatus = 1
	WaitingResults RoundStatus = 2
)

func (s RoundStatus) String() string {
	switch s {
	case NoActiveRound:
		return "NO_ACTIVE_ROUND"
	case BettingPhase:
		return "BETTING_PHASE"
	case WaitingResults:
		return "WAITING_RESULTS"
	}
	return "UNKNOWN"
}

// Bet is immutable after placement except for the result fields, which are
// written exactly once at settlement.
type Bet struct {
	BetID    string `json:"bet_id"`
	RoundID  string `json:"round_id"`
	UserID   int64  `json:"user_id"`
	DiceFace int    `json:"dice_face"`
	Amount   int64  `json:"amount"`

	Resolved bool  `json:"resolved"`
	Won      bool  `json:"won"`
	Payout   int64 `json:"payout"`

	CreatedAt time.Time `json:"created_at"`
}

func NewBet(userID int64, roundID string, diceFace int, amount int64) *Bet {
	return &Bet{
		BetID:     NewBetID(),
		RoundID:   roundID,
		UserID:    userID,
		DiceFace:  diceFace,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}

// GameRound is one user's betting session between the first bet and result
// delivery. Bets keep insertion order for result reporting.
type GameRound struct {
	RoundID string `json:"round_id"`
	UserID  int64  `json:"user_id"`
	RoomID  int64  `json:"room_id"`

	Bets   []*Bet      `json:"bets"`
	Status RoundStatus `json:"status"`

	DiceResult    int   `json:"dice_result"`
	TotalWinnings int64 `json:"total_winnings"`

	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewGameRound(userID, roomID int64) *GameRound {
	return &GameRound{
		RoundID:   NewRoundID(),
		UserID:    userID,
		RoomID:    roomID,
		Status:    BettingPhase,
		CreatedAt: time.Now(),
	}
}

func (r *GameRound) AddBet(bet *Bet) {
	r.Bets = append(r.Bets, bet)
}

// FinishBetting closes the betting phase. The transition is one-way.
func (r *GameRound) FinishBetting() {
	r.Status = WaitingResults
}

// TotalWagered sums the stakes of all placed bets.
func (r *GameRound) TotalWagered() int64 {
	var total int64
	for _, bet := range r.Bets {
		total += bet.Amount
	}
	return total
}

// Settle resolves every bet against the rolled face and returns the total
// winnings. A winning bet pays exactly six times its stake.
func (r *GameRound) Settle(diceResult int) int64 {
	r.DiceResult = diceResult

	var totalWinnings int64
	for _, bet := range r.Bets {
		bet.Won = bet.DiceFace == diceResult
		if bet.Won {
			bet.Payout = bet.Amount * 6
		}
		bet.Resolved = true
		totalWinnings += bet.Payout
	}

	r.TotalWinnings = totalWinnings
	r.FinishedAt = time.Now()
	return totalWinnings
}
