// Package service defines the backend-agnostic interface for auth and task
// operations.
package service

import "context"

// Service defines the interface for todo backend operations.
// All HTTP calls go through this interface; commands never build requests
// themselves.
type Service interface {
	// Login exchanges credentials for a token.
	Login(ctx context.Context, email, password string) (AuthResult, error)

	// Register creates an account and returns a token for it.
	Register(ctx context.Context, email, password string) (AuthResult, error)

	// Session returns the user owning the stored token.
	Session(ctx context.Context) (User, error)

	// Logout tells the server the session is over. Best-effort.
	Logout(ctx context.Context) error

	// ListTasks returns the user's tasks in server order.
	ListTasks(ctx context.Context) ([]Task, error)

	// GetTask returns a single task.
	GetTask(ctx context.Context, id int64) (Task, error)

	// CreateTask creates a task and returns it with its server-assigned ID.
	CreateTask(ctx context.Context, task NewTask) (Task, error)

	// UpdateTask applies a partial update and returns the updated task.
	UpdateTask(ctx context.Context, id int64, update TaskUpdate) (Task, error)

	// ToggleTask flips the completion flag and returns the updated task.
	ToggleTask(ctx context.Context, id int64) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id int64) error
}
