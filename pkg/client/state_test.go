package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeolun/votefeed/pkg/client/crypto"
)

func openTestState(t *testing.T) *State {
	t.Helper()
	state, err := OpenState(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	return state
}

func TestStateConfig(t *testing.T) {
	state := openTestState(t)

	value, err := state.GetConfig("missing")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	require.NoError(t, state.SetConfig("k", "v1"))
	require.NoError(t, state.SetConfig("k", "v2"))
	value, err = state.GetConfig("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)

	require.NoError(t, state.DeleteConfig("k"))
	value, _ = state.GetConfig("k")
	assert.Equal(t, "", value)
}

func TestStateTokenPlain(t *testing.T) {
	state := openTestState(t)

	_, ok := state.Token()
	assert.False(t, ok)

	require.NoError(t, state.SetToken("T1"))
	token, ok := state.Token()
	assert.True(t, ok)
	assert.Equal(t, "T1", token)

	require.NoError(t, state.RemoveToken())
	_, ok = state.Token()
	assert.False(t, ok)
}

func TestStateTokenSealed(t *testing.T) {
	state := openTestState(t)
	keys := crypto.NewKeyStore(state.GetStateDir())
	sealer, err := keys.SealerFor("http://feed.example.com")
	require.NoError(t, err)
	state.SetSealer(sealer)

	require.NoError(t, state.SetToken("T1"))

	raw, err := state.GetConfig(configSessionToken)
	require.NoError(t, err)
	assert.NotEqual(t, "T1", raw, "token must not be stored in the clear")

	token, ok := state.Token()
	assert.True(t, ok)
	assert.Equal(t, "T1", token)

	// Losing the secret makes the token unreadable, which reads as logged out
	require.NoError(t, keys.DeleteSecret())
	other, err := keys.SealerFor("http://feed.example.com")
	require.NoError(t, err)
	state.SetSealer(other)
	_, ok = state.Token()
	assert.False(t, ok)
}

func TestStateReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	state, err := OpenState(path)
	require.NoError(t, err)
	require.NoError(t, state.SetLastUsername("alice"))
	require.NoError(t, state.SetFirstRunComplete())
	require.NoError(t, state.Close())

	// Migrations must be idempotent
	state, err = OpenState(path)
	require.NoError(t, err)
	defer state.Close()

	assert.Equal(t, "alice", state.LastUsername())
	assert.False(t, state.GetFirstRun())
	assert.Equal(t, filepath.Dir(path), state.GetStateDir())
}

func TestStateFirstRun(t *testing.T) {
	state := openTestState(t)
	assert.True(t, state.GetFirstRun())
	require.NoError(t, state.SetFirstRunComplete())
	assert.False(t, state.GetFirstRun())
}

func TestStateImplementsCredentialStore(t *testing.T) {
	var _ CredentialStore = openTestState(t)
}

func TestMemoryCredentials(t *testing.T) {
	var creds CredentialStore = NewMemoryCredentials("")
	_, ok := creds.Token()
	assert.False(t, ok)

	require.NoError(t, creds.SetToken("T1"))
	token, ok := creds.Token()
	assert.True(t, ok)
	assert.Equal(t, "T1", token)

	require.NoError(t, creds.RemoveToken())
	_, ok = creds.Token()
	assert.False(t, ok)

	seeded, ok := NewMemoryCredentials("T0").Token()
	assert.True(t, ok)
	assert.Equal(t, "T0", seeded)
}

func TestMockCredentialsRecordsAndFails(t *testing.T) {
	creds := NewMockCredentials("T0")
	require.NoError(t, creds.SetToken("T1"))
	assert.Equal(t, []string{"T1"}, creds.History())

	creds.SetSetError(assert.AnError)
	assert.ErrorIs(t, creds.SetToken("T2"), assert.AnError)
	token, _ := creds.Token()
	assert.Equal(t, "T1", token)

	creds.SetRemoveError(assert.AnError)
	assert.ErrorIs(t, creds.RemoveToken(), assert.AnError)
	_, ok := creds.Token()
	assert.True(t, ok, "failed remove keeps the token")
}
