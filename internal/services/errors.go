package services

import (
	"fmt"

	"dice-game-server/internal/protocol"
)

// GameError is a domain failure that maps onto one wire error code. The
// dispatcher turns any GameError into a 0x9999 envelope and keeps the
// connection open.
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return fmt.Sprintf("game error %d: %s", e.Code, e.Message)
}

func NewAuthError(message string) *GameError {
	return &GameError{Code: protocol.ErrCodeAuthRequired, Message: message}
}

func NewBalanceError(message string) *GameError {
	return &GameError{Code: protocol.ErrCodeInsufficientBalance, Message: message}
}

func NewRoomError(message string) *GameError {
	return &GameError{Code: protocol.ErrCodeInvalidRoom, Message: message}
}

// NewBetError covers both out-of-range parameters and round-state
// violations; the wire contract folds them into one code.
func NewBetError(message string) *GameError {
	return &GameError{Code: protocol.ErrCodeInvalidBet, Message: message}
}

func NewServerError(message string) *GameError {
	return &GameError{Code: protocol.ErrCodeServerError, Message: message}
}
