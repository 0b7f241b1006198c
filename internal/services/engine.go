package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"dice-game-server/internal/models"
)

// Roller produces one die outcome per call. Production uses crypto/rand;
// tests inject a fixed-outcome double.
type Roller interface {
	Roll() (int, error)
}

// CryptoRoller draws uniformly from [1,6] using crypto/rand.
type CryptoRoller struct{}

func (CryptoRoller) Roll() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(6))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 1, nil
}

// PlaceBetResult reports an accepted bet.
type PlaceBetResult struct {
	BetID            string
	RoundID          string
	RemainingBalance int64
}

// SettlementResult reports one settled round.
type SettlementResult struct {
	RoundID       string
	DiceResult    int
	Bets          []*models.Bet
	TotalWinnings int64
	NewBalance    int64
	JackpotPool   int64
}

// UserSnapshot is the state view returned for snapshot requests.
type UserSnapshot struct {
	UserBalance int64
	ActiveBets  []*models.Bet
	CurrentRoom int64
	JackpotPool int64
	RoundStatus models.RoundStatus
}

// RoundEngine owns the per-user betting round state machine. A user holds
// at most one active round; the first accepted bet creates it. Round
// mutations for one user are serialized through a per-user lock, and
// settlement touches the user registry before the room registry, never
// holding both at once.
type RoundEngine struct {
	users *UserRegistry
	rooms *RoomRegistry

	mu        sync.Mutex
	byUser    map[int64]*models.GameRound
	userLocks map[int64]*sync.Mutex

	roller          Roller
	maxBetsPerRound int
	logger          *zap.Logger
}

func NewRoundEngine(users *UserRegistry, rooms *RoomRegistry, roller Roller, maxBetsPerRound int, logger *zap.Logger) *RoundEngine {
	return &RoundEngine{
		users:           users,
		rooms:           rooms,
		byUser:          make(map[int64]*models.GameRound),
		userLocks:       make(map[int64]*sync.Mutex),
		roller:          roller,
		maxBetsPerRound: maxBetsPerRound,
		logger:          logger,
	}
}

func (e *RoundEngine) userLock(userID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.userLocks[userID] = lock
	}
	return lock
}

func (e *RoundEngine) activeRound(userID int64) *models.GameRound {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byUser[userID]
}

func (e *RoundEngine) setActiveRound(userID int64, round *models.GameRound) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if round == nil {
		delete(e.byUser, userID)
	} else {
		e.byUser[userID] = round
	}
}

// PlaceBet validates the wager, debits the stake, and appends the bet to
// the user's active round, creating the round on the first bet. Every
// check runs before the debit; a rejected bet never mutates balance.
func (e *RoundEngine) PlaceBet(userID int64, diceFace int, amount int64, roundID string) (*PlaceBetResult, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if diceFace < 1 || diceFace > 6 {
		return nil, NewBetError("invalid dice face (must be 1-6)")
	}

	roomID := e.rooms.RoomOf(userID)
	if roomID == 0 {
		return nil, NewRoomError("join a room before placing bets")
	}

	minBet, maxBet, err := e.rooms.BetBounds(roomID)
	if err != nil {
		return nil, err
	}
	if amount < minBet || amount > maxBet {
		return nil, NewBetError(fmt.Sprintf("invalid bet amount (%d-%d)", minBet, maxBet))
	}

	round := e.activeRound(userID)
	if roundID != "" && (round == nil || round.RoundID != roundID) {
		return nil, NewBetError("invalid round")
	}
	if round != nil {
		if round.Status != models.BettingPhase {
			return nil, NewBetError("betting phase has ended")
		}
		if len(round.Bets) >= e.maxBetsPerRound {
			return nil, NewBetError("maximum bets per round exceeded")
		}
	}

	remaining, err := e.users.Debit(userID, amount)
	if err != nil {
		return nil, err
	}

	if round == nil {
		round = models.NewGameRound(userID, roomID)
		e.setActiveRound(userID, round)
	}

	bet := models.NewBet(userID, round.RoundID, diceFace, amount)
	round.AddBet(bet)

	e.logger.Info("bet placed",
		zap.Int64("user_id", userID),
		zap.String("bet_id", bet.BetID),
		zap.String("round_id", round.RoundID),
		zap.Int("dice_face", diceFace),
		zap.Int64("amount", amount),
	)

	return &PlaceBetResult{
		BetID:            bet.BetID,
		RoundID:          round.RoundID,
		RemainingBalance: remaining,
	}, nil
}

// FinishBetting closes the betting phase of the user's active round. The
// transition is one-way: a second call fails because the round already
// left BETTING_PHASE.
func (e *RoundEngine) FinishBetting(userID int64, roundID string) error {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	round := e.activeRound(userID)
	if round == nil || round.RoundID != roundID {
		return NewBetError("invalid round")
	}
	if round.Status != models.BettingPhase {
		return NewBetError("round is not in betting phase")
	}
	if len(round.Bets) == 0 {
		return NewBetError("no bets placed in current round")
	}

	round.FinishBetting()
	e.logger.Info("betting finished",
		zap.Int64("user_id", userID),
		zap.String("round_id", roundID),
		zap.Int("bets", len(round.Bets)),
	)
	return nil
}

// ReckonResult rolls the die, resolves every bet, credits winnings,
// feeds the room jackpot, and discards the round.
func (e *RoundEngine) ReckonResult(userID int64, roundID string) (*SettlementResult, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	round := e.activeRound(userID)
	if round == nil || round.RoundID != roundID {
		return nil, NewBetError("invalid round")
	}
	if round.Status != models.WaitingResults {
		return nil, NewBetError("round is not awaiting results")
	}

	return e.settleLocked(round)
}

// settleLocked runs the settlement path. Callers hold the user lock.
func (e *RoundEngine) settleLocked(round *models.GameRound) (*SettlementResult, error) {
	diceResult, err := e.roller.Roll()
	if err != nil {
		return nil, NewServerError("outcome generation failed")
	}

	totalWinnings := round.Settle(diceResult)

	newBalance, err := e.users.Credit(round.UserID, totalWinnings)
	if err != nil {
		return nil, err
	}

	// 1% of the wagered total, truncated toward zero.
	contribution := round.TotalWagered() / 100
	jackpotPool, err := e.rooms.CreditJackpot(round.RoomID, contribution)
	if err != nil {
		// The round's room always exists; rooms are never destroyed.
		return nil, err
	}

	e.setActiveRound(round.UserID, nil)

	e.logger.Info("round settled",
		zap.Int64("user_id", round.UserID),
		zap.String("round_id", round.RoundID),
		zap.Int("dice_result", diceResult),
		zap.Int64("total_winnings", totalWinnings),
		zap.Int64("jackpot_contribution", contribution),
	)

	return &SettlementResult{
		RoundID:       round.RoundID,
		DiceResult:    diceResult,
		Bets:          round.Bets,
		TotalWinnings: totalWinnings,
		NewBalance:    newBalance,
		JackpotPool:   jackpotPool,
	}, nil
}

// Snapshot assembles the user's balance, room, jackpot, and active round
// view.
func (e *RoundEngine) Snapshot(userID int64) (*UserSnapshot, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	balance, err := e.users.Balance(userID)
	if err != nil {
		return nil, err
	}

	snapshot := &UserSnapshot{
		UserBalance: balance,
		RoundStatus: models.NoActiveRound,
		CurrentRoom: e.rooms.RoomOf(userID),
	}

	if snapshot.CurrentRoom != 0 {
		view, err := e.rooms.Snapshot(snapshot.CurrentRoom)
		if err == nil {
			snapshot.JackpotPool = view.JackpotPool
		}
	}

	if round := e.activeRound(userID); round != nil {
		snapshot.RoundStatus = round.Status
		snapshot.ActiveBets = round.Bets
	}
	return snapshot, nil
}

// SweepStaleRounds force-settles rounds older than maxAge through the
// normal settlement path so no wager is dropped without resolution.
// Returns the number of rounds settled.
func (e *RoundEngine) SweepStaleRounds(maxAge time.Duration) int {
	e.mu.Lock()
	var stale []*models.GameRound
	for _, round := range e.byUser {
		if time.Since(round.CreatedAt) > maxAge {
			stale = append(stale, round)
		}
	}
	e.mu.Unlock()

	settled := 0
	for _, round := range stale {
		lock := e.userLock(round.UserID)
		lock.Lock()
		// Re-check under the lock: the owner may have settled it already.
		current := e.activeRound(round.UserID)
		if current == nil || current.RoundID != round.RoundID {
			lock.Unlock()
			continue
		}
		if current.Status == models.BettingPhase {
			current.FinishBetting()
		}
		if _, err := e.settleLocked(current); err != nil {
			e.logger.Error("stale round settlement failed",
				zap.String("round_id", current.RoundID),
				zap.Error(err),
			)
		} else {
			e.logger.Warn("force-settled stale round",
				zap.String("round_id", current.RoundID),
				zap.Int64("user_id", current.UserID),
			)
			settled++
		}
		lock.Unlock()
	}
	return settled
}
