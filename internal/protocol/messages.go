package protocol

import (
	"encoding/json"
	"fmt"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SessionToken string `json:"session_token,omitempty"`
	UserID       int64  `json:"user_id,omitempty"`
	Balance      int64  `json:"balance"`
}

type RoomJoinRequest struct {
	RoomID int64 `json:"room_id"`
}

type RoomJoinResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RoomID      int64  `json:"room_id"`
	PlayerCount int    `json:"player_count"`
	JackpotPool int64  `json:"jackpot_pool"`
}

type SnapshotRequest struct{}

// ActiveBet is the snapshot view of a bet still held by an open round.
type ActiveBet struct {
	BetID    string `json:"bet_id"`
	RoundID  string `json:"round_id"`
	DiceFace int    `json:"dice_face"`
	Amount   int64  `json:"amount"`
}

type SnapshotResponse struct {
	UserBalance int64       `json:"user_balance"`
	ActiveBets  []ActiveBet `json:"active_bets"`
	CurrentRoom int64       `json:"current_room"`
	JackpotPool int64       `json:"jackpot_pool"`
	RoundStatus int         `json:"round_status"`
}

type BetPlacementRequest struct {
	DiceFace int    `json:"dice_face"`
	Amount   int64  `json:"amount"`
	RoundID  string `json:"round_id,omitempty"`
}

type BetPlacementResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	BetID            string `json:"bet_id"`
	RemainingBalance int64  `json:"remaining_balance"`
	RoundID          string `json:"round_id"`
}

type BetFinishedRequest struct {
	RoundID string `json:"round_id"`
}

type BetFinishedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	RoundID string `json:"round_id"`
}

type ReckonResultRequest struct {
	RoundID string `json:"round_id"`
}

// BetResult is the settled view of a single bet.
type BetResult struct {
	BetID     string `json:"bet_id"`
	RoundID   string `json:"round_id"`
	DiceFace  int    `json:"dice_face"`
	BetAmount int64  `json:"bet_amount"`
	Won       bool   `json:"won"`
	Payout    int64  `json:"payout"`
}

type ReckonResultResponse struct {
	DiceResult         int         `json:"dice_result"`
	BetResults         []BetResult `json:"bet_results"`
	TotalWinnings      int64       `json:"total_winnings"`
	NewBalance         int64       `json:"new_balance"`
	UpdatedJackpotPool int64       `json:"updated_jackpot_pool"`
	RoundID            string      `json:"round_id"`
}

type ErrorResponse struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	Details      string `json:"details"`
}

// DecodeRequest parses the payload for a known client command id into its
// typed request struct. Unknown ids and malformed payloads are decode
// errors, never a silent no-op.
func DecodeRequest(commandID uint32, payload []byte) (any, error) {
	var req any
	switch commandID {
	case CmdLoginReq:
		req = &LoginRequest{}
	case CmdRoomJoinReq:
		req = &RoomJoinRequest{}
	case CmdSnapshotReq:
		req = &SnapshotRequest{}
	case CmdBetPlacementReq:
		req = &BetPlacementRequest{}
	case CmdBetFinishedReq:
		req = &BetFinishedRequest{}
	case CmdReckonResultReq:
		req = &ReckonResultRequest{}
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown command: 0x%04x", commandID)}
	}

	// The snapshot request carries no fields; an empty payload is valid.
	if len(payload) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(payload, req); err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("invalid payload for command 0x%04x: %v", commandID, err)}
	}
	return req, nil
}
