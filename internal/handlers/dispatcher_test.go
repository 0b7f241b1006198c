package handlers_test

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dice-game-server/internal/handlers"
	"dice-game-server/internal/models"
	"dice-game-server/internal/protocol"
	"dice-game-server/internal/services"
)

// fixedRoller forces the die outcome for deterministic settlements.
type fixedRoller struct {
	face int
}

func (r *fixedRoller) Roll() (int, error) {
	return r.face, nil
}

type testEnv struct {
	dispatcher *handlers.Dispatcher
	sessions   *services.SessionStore
	users      *services.UserRegistry
	rooms      *services.RoomRegistry
	engine     *services.RoundEngine
	roller     *fixedRoller
	userID     int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := services.NewUserRegistry()
	require.NoError(t, users.SeedUsers(map[string]string{"alice": "alicepass"}, 1000))
	user, ok := users.VerifyCredentials("alice", "alicepass")
	require.True(t, ok)

	sessions := services.NewSessionStore(30 * time.Minute)
	rooms := services.NewRoomRegistry(10, 50, 1, 1000)
	roller := &fixedRoller{face: 1}
	engine := services.NewRoundEngine(users, rooms, roller, 10, zap.NewNop())

	return &testEnv{
		dispatcher: handlers.NewDispatcher(sessions, users, rooms, engine, zap.NewNop()),
		sessions:   sessions,
		users:      users,
		rooms:      rooms,
		engine:     engine,
		roller:     roller,
		userID:     user.ID,
	}
}

// clientConn is an in-memory FrameConn driven frame by frame from the test.
type clientConn struct {
	in   chan []byte
	out  chan []byte
	done chan struct{}
}

func dial(env *testEnv) *clientConn {
	conn := &clientConn{
		in:   make(chan []byte),
		out:  make(chan []byte, 16),
		done: make(chan struct{}),
	}
	go func() {
		env.dispatcher.Serve(conn)
		close(conn.done)
	}()
	return conn
}

func (c *clientConn) ReadFrame() (uint32, []byte, error) {
	frame, ok := <-c.in
	if !ok {
		return 0, nil, io.EOF
	}
	return protocol.Decode(frame)
}

func (c *clientConn) WriteFrame(frame []byte) error {
	c.out <- frame
	return nil
}

func (c *clientConn) Close() error { return nil }

func (c *clientConn) RemoteAddr() string { return "pipe" }

// disconnect closes the client side and waits for Serve to clean up.
func (c *clientConn) disconnect() {
	close(c.in)
	<-c.done
}

// roundTrip sends one request frame and returns the response.
func (c *clientConn) roundTrip(t *testing.T, commandID uint32, payload any) (uint32, []byte) {
	t.Helper()

	frame, err := protocol.Encode(commandID, payload)
	require.NoError(t, err)
	c.in <- frame

	respCmd, respPayload, err := protocol.Decode(<-c.out)
	require.NoError(t, err)
	return respCmd, respPayload
}

func unmarshalInto(t *testing.T, payload []byte, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(payload, target))
}

func login(t *testing.T, conn *clientConn) protocol.LoginResponse {
	t.Helper()

	respCmd, payload := conn.roundTrip(t, protocol.CmdLoginReq, &protocol.LoginRequest{
		Username: "alice",
		Password: "alicepass",
	})
	require.Equal(t, protocol.CmdLoginRsp, respCmd)

	var resp protocol.LoginResponse
	unmarshalInto(t, payload, &resp)
	require.True(t, resp.Success)
	return resp
}

func expectError(t *testing.T, respCmd uint32, payload []byte, code int) {
	t.Helper()
	require.Equal(t, protocol.CmdErrorRsp, respCmd)

	var resp protocol.ErrorResponse
	unmarshalInto(t, payload, &resp)
	assert.Equal(t, code, resp.ErrorCode)
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(env)
	defer conn.disconnect()

	resp := login(t, conn)
	assert.Len(t, resp.SessionToken, 64)
	assert.Equal(t, env.userID, resp.UserID)
	assert.Equal(t, int64(1000), resp.Balance)
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(env)
	defer conn.disconnect()

	respCmd, payload := conn.roundTrip(t, protocol.CmdLoginReq, &protocol.LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	expectError(t, respCmd, payload, protocol.ErrCodeAuthRequired)
}

func TestCommandsRequireAuthentication(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(env)
	defer conn.disconnect()

	respCmd, payload := conn.roundTrip(t, protocol.CmdSnapshotReq, &protocol.SnapshotRequest{})
	expectError(t, respCmd, payload, protocol.ErrCodeAuthRequired)
}

func TestUnknownCommandID(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(env)
	defer conn.disconnect()

	respCmd, payload := conn.roundTrip(t, 0x0042, struct{}{})
	expectError(t, respCmd, payload, protocol.ErrCodeInvalidFormat)
}

func TestMalformedPayload(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(env)
	defer conn.disconnect()

	login(t, conn)

	// dice_face should be an integer.
	respCmd, payload := conn.roundTrip(t, protocol.CmdBetPlacementReq, map[string]any{
		"dice_face": "three",
		"amount":    10,
	})
	expectError(t, respCmd, payload, protocol.ErrCodeInvalidFormat)
}

func TestJoinInvalidRoom(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(env)
	defer conn.disconnect()

	login(t, conn)

	respCmd, payload := conn.roundTrip(t, protocol.CmdRoomJoinReq, &protocol.RoomJoinRequest{RoomID: 999})
	expectError(t, respCmd, payload, protocol.ErrCodeInvalidRoom)
	assert.Zero(t, env.rooms.RoomOf(env.userID))
}

func TestFullGameFlow(t *testing.T) {
	env := newTestEnv(t)
	env.roller.face = 3
	conn := dial(env)
	defer conn.disconnect()

	login(t, conn)

	respCmd, payload := conn.roundTrip(t, protocol.CmdRoomJoinReq, &protocol.RoomJoinRequest{RoomID: 1})
	require.Equal(t, protocol.CmdRoomJoinRsp, respCmd)
	var joinResp protocol.RoomJoinResponse
	unmarshalInto(t, payload, &joinResp)
	assert.True(t, joinResp.Success)
	assert.Equal(t, 1, joinResp.PlayerCount)

	respCmd, payload = conn.roundTrip(t, protocol.CmdBetPlacementReq, &protocol.BetPlacementRequest{
		DiceFace: 3,
		Amount:   10,
	})
	require.Equal(t, protocol.CmdBetPlacementRsp, respCmd)
	var betResp protocol.BetPlacementResponse
	unmarshalInto(t, payload, &betResp)
	require.True(t, betResp.Success)
	assert.Equal(t, int64(990), betResp.RemainingBalance)

	respCmd, payload = conn.roundTrip(t, protocol.CmdSnapshotReq, &protocol.SnapshotRequest{})
	require.Equal(t, protocol.CmdSnapshotRsp, respCmd)
	var snapResp protocol.SnapshotResponse
	unmarshalInto(t, payload, &snapResp)
	assert.Equal(t, int(models.BettingPhase), snapResp.RoundStatus)
	assert.Equal(t, int64(1), snapResp.CurrentRoom)
	require.Len(t, snapResp.ActiveBets, 1)

	respCmd, payload = conn.roundTrip(t, protocol.CmdBetFinishedReq, &protocol.BetFinishedRequest{
		RoundID: betResp.RoundID,
	})
	require.Equal(t, protocol.CmdBetFinishedRsp, respCmd)
	var finishResp protocol.BetFinishedResponse
	unmarshalInto(t, payload, &finishResp)
	assert.True(t, finishResp.Success)

	respCmd, payload = conn.roundTrip(t, protocol.CmdReckonResultReq, &protocol.ReckonResultRequest{
		RoundID: betResp.RoundID,
	})
	require.Equal(t, protocol.CmdReckonResultRsp, respCmd)
	var reckonResp protocol.ReckonResultResponse
	unmarshalInto(t, payload, &reckonResp)
	assert.Equal(t, 3, reckonResp.DiceResult)
	assert.Equal(t, int64(60), reckonResp.TotalWinnings)
	assert.Equal(t, int64(1050), reckonResp.NewBalance)
	require.Len(t, reckonResp.BetResults, 1)
	assert.True(t, reckonResp.BetResults[0].Won)
	assert.Equal(t, int64(60), reckonResp.BetResults[0].Payout)

	respCmd, payload = conn.roundTrip(t, protocol.CmdSnapshotReq, &protocol.SnapshotRequest{})
	require.Equal(t, protocol.CmdSnapshotRsp, respCmd)
	unmarshalInto(t, payload, &snapResp)
	assert.Equal(t, int(models.NoActiveRound), snapResp.RoundStatus)
	assert.Equal(t, int64(1050), snapResp.UserBalance)
}

func TestInvalidBetFaceOverWire(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(env)
	defer conn.disconnect()

	login(t, conn)
	conn.roundTrip(t, protocol.CmdRoomJoinReq, &protocol.RoomJoinRequest{RoomID: 1})

	respCmd, payload := conn.roundTrip(t, protocol.CmdBetPlacementReq, &protocol.BetPlacementRequest{
		DiceFace: 7,
		Amount:   10,
	})
	expectError(t, respCmd, payload, protocol.ErrCodeInvalidBet)

	balance, err := env.users.Balance(env.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestDisconnectCleanupKeepsActiveRound(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(env)

	login(t, conn)
	conn.roundTrip(t, protocol.CmdRoomJoinReq, &protocol.RoomJoinRequest{RoomID: 1})
	conn.roundTrip(t, protocol.CmdBetPlacementReq, &protocol.BetPlacementRequest{DiceFace: 3, Amount: 10})

	conn.disconnect()

	assert.Zero(t, env.sessions.Count())
	assert.Zero(t, env.rooms.RoomOf(env.userID))

	// The in-flight round survives disconnect for a fast reconnect.
	snapshot, err := env.engine.Snapshot(env.userID)
	require.NoError(t, err)
	assert.Equal(t, models.BettingPhase, snapshot.RoundStatus)
}

func TestSecondLoginInvalidatesFirstConnection(t *testing.T) {
	env := newTestEnv(t)

	first := dial(env)
	defer first.disconnect()
	second := dial(env)
	defer second.disconnect()

	login(t, first)
	login(t, second)

	respCmd, payload := first.roundTrip(t, protocol.CmdSnapshotReq, &protocol.SnapshotRequest{})
	expectError(t, respCmd, payload, protocol.ErrCodeAuthRequired)

	respCmd, _ = second.roundTrip(t, protocol.CmdSnapshotReq, &protocol.SnapshotRequest{})
	assert.Equal(t, protocol.CmdSnapshotRsp, respCmd)
}
