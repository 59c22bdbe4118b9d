package service

import "encoding/json"

// User is the account returned by the auth endpoints.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// AuthResult is the body of a successful login or register call.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        User   `json:"user"`
}

// Task represents a single task item. The ID is assigned by the server.
// OwnerID, CreatedAt and UpdatedAt are server metadata and are carried
// through untouched.
type Task struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	IsCompleted bool            `json:"is_completed"`
	OwnerID     json.RawMessage `json:"user_id,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

// NewTask is the body of a create call.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// TaskUpdate is the body of an update call. Nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.IsCompleted == nil
}
