package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"todo/internal/service"
)

// Field limits enforced by the server; checked locally to fail fast.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

var (
	// ErrInvalidTitle is returned for an empty or overlong title.
	ErrInvalidTitle = errors.New("invalid title")

	// ErrInvalidDescription is returned for an overlong description.
	ErrInvalidDescription = errors.New("invalid description")

	// ErrEmptyUpdate is returned for an update that changes nothing.
	ErrEmptyUpdate = errors.New("nothing to update")
)

// Backend is the subset of service.Service the manager drives.
type Backend interface {
	ListTasks(ctx context.Context) ([]service.Task, error)
	GetTask(ctx context.Context, id int64) (service.Task, error)
	CreateTask(ctx context.Context, task service.NewTask) (service.Task, error)
	UpdateTask(ctx context.Context, id int64, update service.TaskUpdate) (service.Task, error)
	ToggleTask(ctx context.Context, id int64) (service.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Manager performs task operations against the backend and folds each
// confirmed result into its collection. A failed call leaves the collection
// untouched.
type Manager struct {
	backend Backend
	logger  *slog.Logger

	mu   sync.Mutex
	coll Collection
}

// NewManager returns a Manager with an empty collection.
func NewManager(backend Backend, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{backend: backend, logger: logger}
}

// Tasks returns the current collection in order.
func (m *Manager) Tasks() []service.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coll.Tasks()
}

// Collection returns the current collection.
func (m *Manager) Collection() Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coll
}

func (m *Manager) apply(mut Mutation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coll = Apply(m.coll, mut)
	m.logger.Debug("task collection updated", "mutation", fmt.Sprintf("%T", mut), "size", m.coll.Len())
}

// Refresh replaces the collection with the server's list.
func (m *Manager) Refresh(ctx context.Context) ([]service.Task, error) {
	list, err := m.backend.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	m.apply(SetAll{Tasks: list})
	return m.Tasks(), nil
}

// Fetch loads one task and refreshes the local copy if it is known.
func (m *Manager) Fetch(ctx context.Context, id int64) (service.Task, error) {
	t, err := m.backend.GetTask(ctx, id)
	if err != nil {
		return service.Task{}, err
	}
	m.apply(Replaced{Task: t})
	return t, nil
}

// Create creates a task and appends the server's record.
func (m *Manager) Create(ctx context.Context, title, description string) (service.Task, error) {
	if err := validateTitle(title); err != nil {
		return service.Task{}, err
	}
	if err := validateDescription(description); err != nil {
		return service.Task{}, err
	}

	t, err := m.backend.CreateTask(ctx, service.NewTask{Title: title, Description: description})
	if err != nil {
		return service.Task{}, err
	}
	m.apply(Added{Task: t})
	return t, nil
}

// Update applies a partial update and stores the server's record.
func (m *Manager) Update(ctx context.Context, id int64, update service.TaskUpdate) (service.Task, error) {
	if update.Empty() {
		return service.Task{}, ErrEmptyUpdate
	}
	if update.Title != nil {
		if err := validateTitle(*update.Title); err != nil {
			return service.Task{}, err
		}
	}
	if update.Description != nil {
		if err := validateDescription(*update.Description); err != nil {
			return service.Task{}, err
		}
	}

	t, err := m.backend.UpdateTask(ctx, id, update)
	if err != nil {
		return service.Task{}, err
	}
	m.apply(Replaced{Task: t})
	return t, nil
}

// SetCompleted marks a task completed or open.
func (m *Manager) SetCompleted(ctx context.Context, id int64, completed bool) (service.Task, error) {
	return m.Update(ctx, id, service.TaskUpdate{IsCompleted: &completed})
}

// Toggle flips a task's completion flag on the server.
func (m *Manager) Toggle(ctx context.Context, id int64) (service.Task, error) {
	t, err := m.backend.ToggleTask(ctx, id)
	if err != nil {
		return service.Task{}, err
	}
	m.apply(Replaced{Task: t})
	return t, nil
}

// Delete deletes a task and drops it locally.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := m.backend.DeleteTask(ctx, id); err != nil {
		return err
	}
	m.apply(Removed{ID: id})
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidTitle)
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidTitle, MaxTitleLen)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidDescription, MaxDescriptionLen)
	}
	return nil
}
