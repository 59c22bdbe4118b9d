package auth_test

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo/internal/auth"
	"todo/internal/backend/todoapi"
	"todo/internal/config"
	"todo/internal/session"
	"todo/internal/testutil"
)

// newLiveMachine wires a Machine to the fake HTTP API through the real
// transport and a file-backed store.
func newLiveMachine(t *testing.T, api *testutil.FakeAPI, store session.Store) *auth.Machine {
	t.Helper()
	cfg := &config.Config{BaseURL: api.URL(), Timeout: 5 * time.Second}
	client, err := todoapi.New(cfg, store)
	require.NoError(t, err)
	return auth.New(client, store, auth.WithTimeout(5*time.Second))
}

func TestScenario_FirstLoginRegisters(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	store := session.NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	m := newLiveMachine(t, api, store)
	ctx := context.Background()

	st, err := m.CheckSession(ctx)
	require.NoError(t, err)
	require.Equal(t, auth.Unauthenticated, st.Status)

	st, err = m.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, auth.Authenticated, st.Status)
	require.NotNil(t, st.User)
	assert.Equal(t, int64(1), st.User.ID)
	assert.Equal(t, "a@x.com", st.User.Email)
	assert.Equal(t, "tok1", st.Token)
	assert.Equal(t, "tok1", storedToken(t, store))

	assert.Equal(t, 1, api.Calls(http.MethodPost, "/api/auth/login"))
	assert.Equal(t, 1, api.Calls(http.MethodPost, "/api/auth/register"))
}

func TestScenario_WrongPassword(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("a@x.com", "right")
	store := session.NewMemoryStore()
	m := newLiveMachine(t, api, store)

	st, err := m.Login(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Incorrect password", err.Error())
	assert.Equal(t, auth.Error, st.Status)
	assert.Equal(t, "Incorrect password", st.ErrorMessage)
	assert.Empty(t, storedToken(t, store))
	assert.Equal(t, 0, api.Calls(http.MethodPost, "/api/auth/register"))
}

func TestScenario_UnrelatedNotFoundDoesNotRegister(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Fail(http.MethodPost, "/api/auth/login", http.StatusNotFound, "Not Found")
	m := newLiveMachine(t, api, session.NewMemoryStore())

	st, err := m.Login(context.Background(), "a@x.com", "pw")
	require.Error(t, err)
	assert.Equal(t, auth.Error, st.Status)
	assert.Equal(t, 0, api.Calls(http.MethodPost, "/api/auth/register"))
}

func TestScenario_ReloadRecoversSession(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	path := filepath.Join(t.TempDir(), "token.json")

	first := newLiveMachine(t, api, session.NewFileStore(path))
	_, err := first.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	// A new process over the same token file.
	store := session.NewFileStore(path)
	second := newLiveMachine(t, api, store)
	st, err := second.CheckSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.Authenticated, st.Status)
	assert.Equal(t, "a@x.com", st.User.Email)

	// The server forgets every token; the next recovery logs out.
	api.RevokeTokens()
	third := newLiveMachine(t, api, store)
	st, err = third.CheckSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.Unauthenticated, st.Status)
	assert.Empty(t, storedToken(t, store))
}

func TestScenario_NoTokenNoNetwork(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	m := newLiveMachine(t, api, session.NewMemoryStore())

	st, err := m.CheckSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.Unauthenticated, st.Status)
	assert.Zero(t, api.TotalCalls())
}
