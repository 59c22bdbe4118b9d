package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo/internal/session"
	"todo/internal/transport"
)

type recorded struct {
	auth        string
	contentType string
	requestID   string
	body        string
}

func newServer(t *testing.T, status int, respBody string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.auth = r.Header.Get("Authorization")
		rec.contentType = r.Header.Get("Content-Type")
		rec.requestID = r.Header.Get("X-Request-ID")
		data, _ := io.ReadAll(r.Body)
		rec.body = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost", "://bad"} {
		_, err := transport.New(u, session.NewMemoryStore())
		assert.Error(t, err, "base url %q", u)
	}
}

func TestDo_NoTokenSendsNoHeader(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{}`)
	c, err := transport.New(srv.URL, session.NewMemoryStore())
	require.NoError(t, err)

	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/api/tasks", nil, nil))
	assert.Empty(t, rec.auth)
}

func TestDo_AttachesBearerToken(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"id": 7}`)
	store := session.NewMemoryStore()
	require.NoError(t, store.Save("tok1"))

	c, err := transport.New(srv.URL, store)
	require.NoError(t, err)

	var out struct {
		ID int `json:"id"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/api/tasks/7", nil, &out))

	assert.Equal(t, "Bearer tok1", rec.auth)
	assert.Equal(t, 7, out.ID)
	_, err = uuid.Parse(rec.requestID)
	assert.NoError(t, err, "request id should be a uuid")
}

func TestDo_ReadsTokenOnEveryRequest(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{}`)
	store := session.NewMemoryStore()
	c, err := transport.New(srv.URL, store)
	require.NoError(t, err)

	require.NoError(t, store.Save("first"))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/", nil, nil))
	assert.Equal(t, "Bearer first", rec.auth)

	require.NoError(t, store.Save("second"))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/", nil, nil))
	assert.Equal(t, "Bearer second", rec.auth)

	require.NoError(t, store.Clear())
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/", nil, nil))
	assert.Empty(t, rec.auth)
}

func TestDo_Bodies(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{}`)
	c, err := transport.New(srv.URL, session.NewMemoryStore())
	require.NoError(t, err)

	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/json", transport.JSON(map[string]string{"title": "A"}), nil))
	assert.Equal(t, "application/json", rec.contentType)
	assert.JSONEq(t, `{"title":"A"}`, rec.body)

	form := url.Values{"username": {"a@x.com"}, "password": {"pw"}}
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/form", transport.Form(form), nil))
	assert.Equal(t, "application/x-www-form-urlencoded", rec.contentType)
	assert.Equal(t, "password=pw&username=a%40x.com", rec.body)
}

func TestDo_UnauthorizedClearsSession(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
	store := session.NewMemoryStore()
	require.NoError(t, store.Save("stale"))

	loggedOut := 0
	c, err := transport.New(srv.URL, store, transport.WithUnauthorizedHandler(func() { loggedOut++ }))
	require.NoError(t, err)

	err = c.Do(context.Background(), http.MethodGet, "/api/tasks", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrUnauthorized)
	assert.Equal(t, "Could not validate credentials", transport.Detail(err))
	assert.Equal(t, 1, loggedOut)

	_, err = store.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestDo_ForbiddenKeepsSession(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden, `{"detail":"Not authorized to update this task"}`)
	store := session.NewMemoryStore()
	require.NoError(t, store.Save("tok"))

	var notices []string
	unauthorized := false
	c, err := transport.New(srv.URL, store,
		transport.WithForbiddenHandler(func(n string) { notices = append(notices, n) }),
		transport.WithUnauthorizedHandler(func() { unauthorized = true }),
	)
	require.NoError(t, err)

	err = c.Do(context.Background(), http.MethodPut, "/api/tasks/1", transport.JSON(map[string]any{}), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrForbidden)
	assert.False(t, errors.Is(err, transport.ErrUnauthorized))
	assert.Equal(t, []string{transport.ForbiddenNotice}, notices)
	assert.False(t, unauthorized)

	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestDo_OtherErrorsPassThrough(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		notFound   bool
	}{
		{"not found", http.StatusNotFound, `{"detail":"Task not found"}`, "Task not found", true},
		{"bad request", http.StatusBadRequest, `{"detail":"Email already registered"}`, "Email already registered", false},
		{"validation", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","title"],"msg":"field required","type":"missing"}]}`, "title: field required", false},
		{"server error without body", http.StatusInternalServerError, ``, "", false},
		{"non-json body", http.StatusBadGateway, `<html>bad gateway</html>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.body)
			store := session.NewMemoryStore()
			require.NoError(t, store.Save("tok"))

			c, err := transport.New(srv.URL, store, transport.WithForbiddenHandler(func(string) {
				t.Error("forbidden handler should not fire")
			}))
			require.NoError(t, err)

			err = c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
			require.Error(t, err)
			assert.Equal(t, tt.status, transport.StatusCode(err))
			assert.Equal(t, tt.wantDetail, transport.Detail(err))
			assert.Equal(t, tt.notFound, errors.Is(err, transport.ErrNotFound))
			if tt.wantDetail == "" {
				assert.NotEmpty(t, err.Error())
			}

			_, err = store.Load()
			assert.NoError(t, err, "session must survive non-401 failures")
		})
	}
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := transport.New(srv.URL, session.NewMemoryStore())
	require.NoError(t, err)

	err = c.Do(context.Background(), http.MethodGet, "/api/tasks", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 0, transport.StatusCode(err))
}

func TestDo_ContextCancelled(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{}`)
	c, err := transport.New(srv.URL, session.NewMemoryStore())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.Do(ctx, http.MethodGet, "/", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
