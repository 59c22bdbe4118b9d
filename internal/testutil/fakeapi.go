package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"todo/internal/service"
)

// FakeTimestamp is stamped on every task the fake API creates or updates.
const FakeTimestamp = "2026-01-01T00:00:00"

type fakeUser struct {
	user     service.User
	password string
}

type fakeTask struct {
	task  service.Task
	owner int64
}

type failure struct {
	status int
	detail string
}

// FakeAPI is an in-process todo HTTP API for exercising the real transport
// and backend client. It follows the wire contract of the real service,
// including the "User not found" login failure.
type FakeAPI struct {
	mu         sync.Mutex
	server     *httptest.Server
	users      map[string]*fakeUser // email -> user
	tokens     map[string]int64     // token -> user id
	tasks      []*fakeTask
	nextUserID int64
	nextTaskID int64
	tokenSeq   int
	failures   map[string]failure // "METHOD route" -> forced response
	calls      map[string]int     // "METHOD path" -> count
}

// NewFakeAPI starts a fake API server that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:      make(map[string]*fakeUser),
		tokens:     make(map[string]int64),
		failures:   make(map[string]failure),
		calls:      make(map[string]int),
		nextUserID: 1,
		nextTaskID: 1,
	}

	r := mux.NewRouter()
	r.Use(f.record)
	r.HandleFunc("/api/auth/login", f.login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/register", f.register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/session", f.session).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/logout", f.logout).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks", f.listTasks).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks", f.createTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{id:[0-9]+}", f.getTask).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{id:[0-9]+}", f.updateTask).Methods(http.MethodPut)
	r.HandleFunc("/api/tasks/{id:[0-9]+}", f.deleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/api/tasks/{id:[0-9]+}/complete", f.toggleTask).Methods(http.MethodPatch)

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the server base URL.
func (f *FakeAPI) URL() string {
	return f.server.URL
}

// AddUser registers an account directly.
func (f *FakeAPI) AddUser(email, password string) service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(email, password)
}

// IssueToken returns a fresh valid token for an existing user.
func (f *FakeAPI) IssueToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		panic("testutil: no such user " + email)
	}
	return f.issueLocked(u.user.ID)
}

// RevokeTokens invalidates every issued token.
func (f *FakeAPI) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]int64)
}

// AddTask creates a task owned by email's account.
func (f *FakeAPI) AddTask(email, title string) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		panic("testutil: no such user " + email)
	}
	return f.addTaskLocked(u.user.ID, service.NewTask{Title: title})
}

// Fail forces every request matching method and route (a mux template such
// as "/api/tasks/{id}") to fail with status and detail.
func (f *FakeAPI) Fail(method, route string, status int, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+route] = failure{status: status, detail: detail}
}

// Calls returns how many requests hit method and path.
func (f *FakeAPI) Calls(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

// TotalCalls returns the number of requests served.
func (f *FakeAPI) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		var forced *failure
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				tmpl = strings.Replace(tmpl, "{id:[0-9]+}", "{id}", 1)
				if fl, ok := f.failures[r.Method+" "+tmpl]; ok {
					forced = &fl
				}
			}
		}
		f.mu.Unlock()

		if forced != nil {
			writeDetail(w, forced.status, forced.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	email, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if u.password != password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect password")
		return
	}
	writeJSON(w, http.StatusOK, service.AuthResult{
		AccessToken: f.issueLocked(u.user.ID),
		TokenType:   "bearer",
		User:        u.user,
	})
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if body.Email == "" || body.Password == "" {
		writeDetail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[body.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	user := f.addUserLocked(body.Email, body.Password)
	writeJSON(w, http.StatusOK, service.AuthResult{
		AccessToken: f.issueLocked(user.ID),
		TokenType:   "bearer",
		User:        user,
	})
}

func (f *FakeAPI) session(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.authenticateLocked(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]service.User{"user": user.user})
}

func (f *FakeAPI) logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (f *FakeAPI) listTasks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.authenticateLocked(w, r)
	if !ok {
		return
	}
	tasks := []service.Task{}
	for _, t := range f.tasks {
		if t.owner == user.user.ID {
			tasks = append(tasks, t.task)
		}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (f *FakeAPI) createTask(w http.ResponseWriter, r *http.Request) {
	var body service.NewTask
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.authenticateLocked(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Title is required")
		return
	}
	writeJSON(w, http.StatusOK, f.addTaskLocked(user.user.ID, body))
}

func (f *FakeAPI) getTask(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.ownedTaskLocked(w, r, "view")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t.task)
}

func (f *FakeAPI) updateTask(w http.ResponseWriter, r *http.Request) {
	var body service.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.ownedTaskLocked(w, r, "update")
	if !ok {
		return
	}
	if body.Title != nil {
		t.task.Title = *body.Title
	}
	if body.Description != nil {
		t.task.Description = *body.Description
	}
	if body.IsCompleted != nil {
		t.task.IsCompleted = *body.IsCompleted
	}
	t.task.UpdatedAt = FakeTimestamp
	writeJSON(w, http.StatusOK, t.task)
}

func (f *FakeAPI) toggleTask(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.ownedTaskLocked(w, r, "complete")
	if !ok {
		return
	}
	t.task.IsCompleted = !t.task.IsCompleted
	t.task.UpdatedAt = FakeTimestamp
	writeJSON(w, http.StatusOK, t.task)
}

func (f *FakeAPI) deleteTask(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.ownedTaskLocked(w, r, "delete")
	if !ok {
		return
	}
	for i, other := range f.tasks {
		if other == t {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (f *FakeAPI) addUserLocked(email, password string) service.User {
	active := true
	u := &fakeUser{
		user:     service.User{ID: f.nextUserID, Email: email, IsActive: &active},
		password: password,
	}
	f.nextUserID++
	f.users[email] = u
	return u.user
}

func (f *FakeAPI) issueLocked(userID int64) string {
	f.tokenSeq++
	tok := fmt.Sprintf("tok%d", f.tokenSeq)
	f.tokens[tok] = userID
	return tok
}

func (f *FakeAPI) addTaskLocked(owner int64, nt service.NewTask) service.Task {
	t := &fakeTask{
		task: service.Task{
			ID:          f.nextTaskID,
			Title:       nt.Title,
			Description: nt.Description,
			OwnerID:     json.RawMessage(strconv.FormatInt(owner, 10)),
			CreatedAt:   FakeTimestamp,
			UpdatedAt:   FakeTimestamp,
		},
		owner: owner,
	}
	f.nextTaskID++
	f.tasks = append(f.tasks, t)
	return t.task
}

func (f *FakeAPI) authenticateLocked(w http.ResponseWriter, r *http.Request) (*fakeUser, bool) {
	tok, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	id, valid := f.tokens[tok]
	if !found || !valid {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return nil, false
	}
	for _, u := range f.users {
		if u.user.ID == id {
			return u, true
		}
	}
	writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
	return nil, false
}

func (f *FakeAPI) ownedTaskLocked(w http.ResponseWriter, r *http.Request, verb string) (*fakeTask, bool) {
	user, ok := f.authenticateLocked(w, r)
	if !ok {
		return nil, false
	}
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	for _, t := range f.tasks {
		if t.task.ID != id {
			continue
		}
		if t.owner != user.user.ID {
			writeDetail(w, http.StatusForbidden, "Not authorized to "+verb+" this task")
			return nil, false
		}
		return t, true
	}
	writeDetail(w, http.StatusNotFound, "Task not found")
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
