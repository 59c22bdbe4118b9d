// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"todo/internal/service"
	"todo/internal/transport"
)

// FakeService is an in-memory implementation of service.Service for testing.
// Failures are reported as *transport.APIError values carrying the same
// status codes and details as the real API.
type FakeService struct {
	mu         sync.RWMutex
	accounts   map[string]fakeUser // email -> account
	current    *service.User
	tasks      []service.Task
	nextUserID int64
	nextTaskID int64
	tokenSeq   int

	// Error injection for testing
	LoginErr      error
	RegisterErr   error
	SessionErr    error
	LogoutErr     error
	ListTasksErr  error
	GetTaskErr    error
	CreateTaskErr error
	UpdateTaskErr error
	ToggleTaskErr error
	DeleteTaskErr error

	// LogoutCalls counts calls to Logout.
	LogoutCalls int
}

// NewFakeService creates an empty FakeService with nobody signed in.
func NewFakeService() *FakeService {
	return &FakeService{
		accounts:   make(map[string]fakeUser),
		nextUserID: 1,
		nextTaskID: 1,
	}
}

// AddUser registers an account without signing it in.
func (f *FakeService) AddUser(email, password string) service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(email, password)
}

// SignIn makes email the session owner, creating the account if needed, and
// returns a fresh token for it.
func (f *FakeService) SignIn(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[email]
	if !ok {
		f.addUserLocked(email, "")
		acct = f.accounts[email]
	}
	u := acct.user
	f.current = &u
	return f.tokenLocked()
}

// SignOut forgets the session owner, as if the server revoked the token.
func (f *FakeService) SignOut() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = nil
}

// AddTask adds an open task and returns it.
func (f *FakeService) AddTask(title string) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addTaskLocked(service.NewTask{Title: title})
}

// Task returns the stored task with id.
func (f *FakeService) Task(id int64) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if i := f.indexLocked(id); i >= 0 {
		return f.tasks[i], true
	}
	return service.Task{}, false
}

// TaskCount returns the number of stored tasks.
func (f *FakeService) TaskCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.tasks)
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	if f.LoginErr != nil {
		return service.AuthResult{}, f.LoginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	acct, ok := f.accounts[email]
	if !ok {
		return service.AuthResult{}, apiError(http.StatusNotFound, "User not found")
	}
	if acct.password != password {
		return service.AuthResult{}, apiError(http.StatusUnauthorized, "Incorrect password")
	}
	u := acct.user
	f.current = &u
	return service.AuthResult{AccessToken: f.tokenLocked(), TokenType: "bearer", User: u}, nil
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, email, password string) (service.AuthResult, error) {
	if f.RegisterErr != nil {
		return service.AuthResult{}, f.RegisterErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.accounts[email]; ok {
		return service.AuthResult{}, apiError(http.StatusBadRequest, "Email already registered")
	}
	u := f.addUserLocked(email, password)
	f.current = &u
	return service.AuthResult{AccessToken: f.tokenLocked(), TokenType: "bearer", User: u}, nil
}

// Session implements service.Service.
func (f *FakeService) Session(ctx context.Context) (service.User, error) {
	if f.SessionErr != nil {
		return service.User{}, f.SessionErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current == nil {
		return service.User{}, apiError(http.StatusUnauthorized, "Could not validate credentials")
	}
	return *f.current, nil
}

// Logout implements service.Service.
func (f *FakeService) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogoutCalls++
	if f.LogoutErr != nil {
		return f.LogoutErr
	}
	f.current = nil
	return nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]service.Task, len(f.tasks))
	copy(result, f.tasks)
	return result, nil
}

// GetTask implements service.Service.
func (f *FakeService) GetTask(ctx context.Context, id int64) (service.Task, error) {
	if f.GetTaskErr != nil {
		return service.Task{}, f.GetTaskErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	i := f.indexLocked(id)
	if i < 0 {
		return service.Task{}, errTaskNotFound()
	}
	return f.tasks[i], nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addTaskLocked(task), nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id int64, update service.TaskUpdate) (service.Task, error) {
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexLocked(id)
	if i < 0 {
		return service.Task{}, errTaskNotFound()
	}
	t := &f.tasks[i]
	if update.Title != nil {
		t.Title = *update.Title
	}
	if update.Description != nil {
		t.Description = *update.Description
	}
	if update.IsCompleted != nil {
		t.IsCompleted = *update.IsCompleted
	}
	t.UpdatedAt = FakeTimestamp
	return *t, nil
}

// ToggleTask implements service.Service.
func (f *FakeService) ToggleTask(ctx context.Context, id int64) (service.Task, error) {
	if f.ToggleTaskErr != nil {
		return service.Task{}, f.ToggleTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexLocked(id)
	if i < 0 {
		return service.Task{}, errTaskNotFound()
	}
	f.tasks[i].IsCompleted = !f.tasks[i].IsCompleted
	f.tasks[i].UpdatedAt = FakeTimestamp
	return f.tasks[i], nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id int64) error {
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexLocked(id)
	if i < 0 {
		return errTaskNotFound()
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

func (f *FakeService) addUserLocked(email, password string) service.User {
	u := service.User{ID: f.nextUserID, Email: email}
	f.nextUserID++
	f.accounts[email] = fakeUser{user: u, password: password}
	return u
}

func (f *FakeService) tokenLocked() string {
	f.tokenSeq++
	return fmt.Sprintf("tok%d", f.tokenSeq)
}

func (f *FakeService) addTaskLocked(nt service.NewTask) service.Task {
	t := service.Task{
		ID:          f.nextTaskID,
		Title:       nt.Title,
		Description: nt.Description,
		CreatedAt:   FakeTimestamp,
		UpdatedAt:   FakeTimestamp,
	}
	f.nextTaskID++
	f.tasks = append(f.tasks, t)
	return t
}

func (f *FakeService) indexLocked(id int64) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func apiError(status int, detail string) error {
	return &transport.APIError{StatusCode: status, Detail: detail}
}

func errTaskNotFound() error {
	return apiError(http.StatusNotFound, "Task not found")
}
