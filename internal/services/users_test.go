package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dice-game-server/internal/services"
)

func seedOneUser(t *testing.T, balance int64) (*services.UserRegistry, int64) {
	t.Helper()
	registry := services.NewUserRegistry()
	require.NoError(t, registry.SeedUsers(map[string]string{"alice": "alicepass"}, balance))

	user, ok := registry.VerifyCredentials("alice", "alicepass")
	require.True(t, ok)
	return registry, user.ID
}

func TestVerifyCredentials(t *testing.T) {
	registry, _ := seedOneUser(t, 1000)

	_, ok := registry.VerifyCredentials("alice", "wrong")
	assert.False(t, ok)

	_, ok = registry.VerifyCredentials("nobody", "alicepass")
	assert.False(t, ok)
}

func TestDebitAndCredit(t *testing.T) {
	registry, userID := seedOneUser(t, 1000)

	remaining, err := registry.Debit(userID, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(700), remaining)

	newBalance, err := registry.Credit(userID, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(750), newBalance)
}

func TestDebitInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	registry, userID := seedOneUser(t, 100)

	_, err := registry.Debit(userID, 101)
	assertGameErrorCode(t, err, 1002)

	balance, err := registry.Balance(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestSeedUsersSkipsDuplicates(t *testing.T) {
	registry := services.NewUserRegistry()
	require.NoError(t, registry.SeedUsers(map[string]string{"alice": "alicepass"}, 1000))
	require.NoError(t, registry.SeedUsers(map[string]string{"alice": "otherpass"}, 1000))

	user, ok := registry.VerifyCredentials("alice", "alicepass")
	require.True(t, ok)
	assert.Equal(t, int64(1000), user.Balance)
}
