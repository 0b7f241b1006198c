package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dice-game-server/internal/models"
	"dice-game-server/internal/services"
)

func TestSweepReclaimsSessionsAndRounds(t *testing.T) {
	f := newEngineFixture(t, 1000)
	f.roller.face = 2

	sessions := services.NewSessionStore(time.Millisecond)
	_, err := sessions.Create(f.userID)
	require.NoError(t, err)

	_, err = f.engine.PlaceBet(f.userID, 2, 100, "")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	housekeeper := services.NewHousekeeper(sessions, f.engine, time.Hour, 0, zap.NewNop())
	housekeeper.Sweep()

	assert.Zero(t, sessions.Count())

	// The orphaned round was settled, not dropped: bet on 2, forced roll 2.
	assert.Equal(t, int64(1000-100+600), f.balance(t))

	snapshot, err := f.engine.Snapshot(f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.NoActiveRound, snapshot.RoundStatus)
}

func TestHousekeeperStartStop(t *testing.T) {
	f := newEngineFixture(t, 1000)
	sessions := services.NewSessionStore(time.Minute)

	housekeeper := services.NewHousekeeper(sessions, f.engine, 10*time.Millisecond, time.Minute, zap.NewNop())
	housekeeper.Start()

	time.Sleep(30 * time.Millisecond)
	housekeeper.Stop()
}
