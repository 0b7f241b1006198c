package handlers

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"dice-game-server/internal/protocol"
	"dice-game-server/internal/services"
)

// FrameConn is one client connection able to exchange protocol frames.
// Both transports (TCP, websocket) implement it.
type FrameConn interface {
	// ReadFrame blocks for the next inbound frame. A *protocol.DecodeError
	// means the frame was malformed but the connection is still usable;
	// any other error is a transport failure.
	ReadFrame() (uint32, []byte, error)
	WriteFrame(frame []byte) error
	Close() error
	RemoteAddr() string
}

// connState is the per-connection context: empty until login succeeds.
type connState struct {
	token  string
	userID int64
}

// Dispatcher routes decoded frames to the session, room, and round
// operations and writes the responses. One Serve call handles one
// connection; frames within a connection are processed strictly in
// arrival order.
type Dispatcher struct {
	sessions *services.SessionStore
	users    *services.UserRegistry
	rooms    *services.RoomRegistry
	engine   *services.RoundEngine
	logger   *zap.Logger
}

func NewDispatcher(sessions *services.SessionStore, users *services.UserRegistry, rooms *services.RoomRegistry, engine *services.RoundEngine, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sessions: sessions,
		users:    users,
		rooms:    rooms,
		engine:   engine,
		logger:   logger,
	}
}

// Serve runs the connection's read loop until the transport fails or the
// client goes away, then performs disconnect cleanup. An active round is
// deliberately left in place for reconnects; housekeeping reclaims
// long-idle orphans.
func (d *Dispatcher) Serve(conn FrameConn) {
	state := &connState{}
	d.logger.Info("client connected", zap.String("remote", conn.RemoteAddr()))

	defer func() {
		d.cleanup(state)
		conn.Close()
		d.logger.Info("client disconnected", zap.String("remote", conn.RemoteAddr()))
	}()

	for {
		commandID, payload, err := conn.ReadFrame()
		if err != nil {
			var decodeErr *protocol.DecodeError
			if errors.As(err, &decodeErr) {
				d.writeError(conn, protocol.ErrCodeInvalidFormat, decodeErr.Reason)
				continue
			}
			return
		}

		d.handleFrame(conn, state, commandID, payload)
	}
}

func (d *Dispatcher) cleanup(state *connState) {
	if state.token == "" {
		return
	}
	// Leave the room only when this connection still owned the session; a
	// later login on another connection has already taken over the user.
	if d.sessions.Invalidate(state.token) {
		d.rooms.Leave(state.userID)
		d.users.SetCurrentRoom(state.userID, 0)
	}
}

// handleFrame decodes and routes one frame. Any panic below this point is
// converted into a generic server-error response; a broken handler never
// takes the connection down.
func (d *Dispatcher) handleFrame(conn FrameConn, state *connState, commandID uint32, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in command handler",
				zap.Uint32("command", commandID),
				zap.Any("panic", r),
			)
			d.writeError(conn, protocol.ErrCodeServerError, "internal server error")
		}
	}()

	req, err := protocol.DecodeRequest(commandID, payload)
	if err != nil {
		d.respondError(conn, err)
		return
	}

	if commandID == protocol.CmdLoginReq {
		d.handleLogin(conn, state, req.(*protocol.LoginRequest))
		return
	}

	// Every other command requires a live session bound to this connection.
	userID, err := d.authenticate(state)
	if err != nil {
		d.respondError(conn, err)
		return
	}

	switch msg := req.(type) {
	case *protocol.RoomJoinRequest:
		d.handleRoomJoin(conn, userID, msg)
	case *protocol.SnapshotRequest:
		d.handleSnapshot(conn, userID)
	case *protocol.BetPlacementRequest:
		d.handleBetPlacement(conn, userID, msg)
	case *protocol.BetFinishedRequest:
		d.handleBetFinished(conn, userID, msg)
	case *protocol.ReckonResultRequest:
		d.handleReckonResult(conn, userID, msg)
	default:
		d.writeError(conn, protocol.ErrCodeInvalidFormat, fmt.Sprintf("unknown command: 0x%04x", commandID))
	}
}

func (d *Dispatcher) authenticate(state *connState) (int64, error) {
	if state.token == "" {
		return 0, services.NewAuthError("authentication required")
	}
	userID, err := d.sessions.Validate(state.token)
	if err != nil {
		state.token = ""
		return 0, err
	}
	return userID, nil
}

func (d *Dispatcher) handleLogin(conn FrameConn, state *connState, req *protocol.LoginRequest) {
	user, ok := d.users.VerifyCredentials(req.Username, req.Password)
	if !ok {
		d.logger.Warn("failed login attempt", zap.String("username", req.Username))
		d.writeError(conn, protocol.ErrCodeAuthRequired, "invalid credentials")
		return
	}

	// Re-login on the same connection discards the session it held.
	if state.token != "" {
		d.sessions.Invalidate(state.token)
	}

	session, err := d.sessions.Create(user.ID)
	if err != nil {
		d.respondError(conn, err)
		return
	}

	state.token = session.Token
	state.userID = user.ID

	balance, _ := d.users.Balance(user.ID)
	d.logger.Info("user logged in", zap.String("username", req.Username), zap.Int64("user_id", user.ID))

	d.respond(conn, protocol.CmdLoginRsp, &protocol.LoginResponse{
		Success:      true,
		Message:      "Login successful",
		SessionToken: session.Token,
		UserID:       user.ID,
		Balance:      balance,
	})
}

func (d *Dispatcher) handleRoomJoin(conn FrameConn, userID int64, req *protocol.RoomJoinRequest) {
	snapshot, err := d.rooms.Join(userID, req.RoomID)
	if err != nil {
		d.respondError(conn, err)
		return
	}
	d.users.SetCurrentRoom(userID, req.RoomID)

	d.logger.Info("user joined room", zap.Int64("user_id", userID), zap.Int64("room_id", req.RoomID))

	d.respond(conn, protocol.CmdRoomJoinRsp, &protocol.RoomJoinResponse{
		Success:     true,
		Message:     "Joined room successfully",
		RoomID:      snapshot.RoomID,
		PlayerCount: snapshot.PlayerCount,
		JackpotPool: snapshot.JackpotPool,
	})
}

func (d *Dispatcher) handleSnapshot(conn FrameConn, userID int64) {
	snapshot, err := d.engine.Snapshot(userID)
	if err != nil {
		d.respondError(conn, err)
		return
	}

	activeBets := make([]protocol.ActiveBet, 0, len(snapshot.ActiveBets))
	for _, bet := range snapshot.ActiveBets {
		activeBets = append(activeBets, protocol.ActiveBet{
			BetID:    bet.BetID,
			RoundID:  bet.RoundID,
			DiceFace: bet.DiceFace,
			Amount:   bet.Amount,
		})
	}

	d.respond(conn, protocol.CmdSnapshotRsp, &protocol.SnapshotResponse{
		UserBalance: snapshot.UserBalance,
		ActiveBets:  activeBets,
		CurrentRoom: snapshot.CurrentRoom,
		JackpotPool: snapshot.JackpotPool,
		RoundStatus: int(snapshot.RoundStatus),
	})
}

func (d *Dispatcher) handleBetPlacement(conn FrameConn, userID int64, req *protocol.BetPlacementRequest) {
	result, err := d.engine.PlaceBet(userID, req.DiceFace, req.Amount, req.RoundID)
	if err != nil {
		d.respondError(conn, err)
		return
	}

	d.respond(conn, protocol.CmdBetPlacementRsp, &protocol.BetPlacementResponse{
		Success:          true,
		Message:          "Bet placed successfully",
		BetID:            result.BetID,
		RemainingBalance: result.RemainingBalance,
		RoundID:          result.RoundID,
	})
}

func (d *Dispatcher) handleBetFinished(conn FrameConn, userID int64, req *protocol.BetFinishedRequest) {
	if err := d.engine.FinishBetting(userID, req.RoundID); err != nil {
		d.respondError(conn, err)
		return
	}

	d.respond(conn, protocol.CmdBetFinishedRsp, &protocol.BetFinishedResponse{
		Success: true,
		Message: "Betting phase completed",
		RoundID: req.RoundID,
	})
}

func (d *Dispatcher) handleReckonResult(conn FrameConn, userID int64, req *protocol.ReckonResultRequest) {
	result, err := d.engine.ReckonResult(userID, req.RoundID)
	if err != nil {
		d.respondError(conn, err)
		return
	}

	betResults := make([]protocol.BetResult, 0, len(result.Bets))
	for _, bet := range result.Bets {
		betResults = append(betResults, protocol.BetResult{
			BetID:     bet.BetID,
			RoundID:   bet.RoundID,
			DiceFace:  bet.DiceFace,
			BetAmount: bet.Amount,
			Won:       bet.Won,
			Payout:    bet.Payout,
		})
	}

	d.respond(conn, protocol.CmdReckonResultRsp, &protocol.ReckonResultResponse{
		DiceResult:         result.DiceResult,
		BetResults:         betResults,
		TotalWinnings:      result.TotalWinnings,
		NewBalance:         result.NewBalance,
		UpdatedJackpotPool: result.JackpotPool,
		RoundID:            result.RoundID,
	})
}

func (d *Dispatcher) respond(conn FrameConn, commandID uint32, payload any) {
	frame, err := protocol.Encode(commandID, payload)
	if err != nil {
		d.logger.Error("failed to encode response", zap.Uint32("command", commandID), zap.Error(err))
		return
	}
	if err := conn.WriteFrame(frame); err != nil {
		d.logger.Warn("failed to write response", zap.String("remote", conn.RemoteAddr()), zap.Error(err))
	}
}

// respondError maps a handler error onto the 0x9999 envelope.
func (d *Dispatcher) respondError(conn FrameConn, err error) {
	var gameErr *services.GameError
	if errors.As(err, &gameErr) {
		d.writeError(conn, gameErr.Code, gameErr.Message)
		return
	}

	var decodeErr *protocol.DecodeError
	if errors.As(err, &decodeErr) {
		d.writeError(conn, protocol.ErrCodeInvalidFormat, decodeErr.Reason)
		return
	}

	d.logger.Error("unexpected handler error", zap.Error(err))
	d.writeError(conn, protocol.ErrCodeServerError, "internal server error")
}

func (d *Dispatcher) writeError(conn FrameConn, code int, message string) {
	d.respond(conn, protocol.CmdErrorRsp, &protocol.ErrorResponse{
		ErrorCode:    code,
		ErrorMessage: message,
	})
}
