// Package todoapi implements the service.Service interface over the todo
// service's HTTP API.
package todoapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"todo/internal/config"
	"todo/internal/service"
	"todo/internal/session"
	"todo/internal/transport"
)

// API paths.
const (
	loginPath    = "/api/auth/login"
	registerPath = "/api/auth/register"
	sessionPath  = "/api/auth/session"
	logoutPath   = "/api/auth/logout"
	tasksPath    = "/api/tasks"
)

// Client implements service.Service using the todo HTTP API.
type Client struct {
	http    *transport.Client
	timeout time.Duration
}

// New creates a client for cfg.BaseURL that authenticates from store.
// opts are passed through to the transport.
func New(cfg *config.Config, store session.Store, opts ...transport.Option) (*Client, error) {
	tc, err := transport.New(cfg.BaseURL, store, opts...)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return &Client{http: tc, timeout: timeout}, nil
}

// NewWithTransport creates a client over an existing transport (for testing).
func NewWithTransport(tc *transport.Client, timeout time.Duration) *Client {
	return &Client{http: tc, timeout: timeout}
}

func (c *Client) do(ctx context.Context, method, path string, body transport.Body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.http.Do(ctx, method, path, body, out)
}

// Login implements service.Service. Credentials go out form-encoded with the
// email in the username field.
func (c *Client) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var res service.AuthResult
	if err := c.do(ctx, http.MethodPost, loginPath, transport.Form(form), &res); err != nil {
		return service.AuthResult{}, err
	}
	if res.AccessToken == "" {
		return service.AuthResult{}, fmt.Errorf("login response carried no access token")
	}
	return res, nil
}

// Register implements service.Service.
func (c *Client) Register(ctx context.Context, email, password string) (service.AuthResult, error) {
	body := map[string]string{"email": email, "password": password}

	var res service.AuthResult
	if err := c.do(ctx, http.MethodPost, registerPath, transport.JSON(body), &res); err != nil {
		return service.AuthResult{}, err
	}
	if res.AccessToken == "" {
		return service.AuthResult{}, fmt.Errorf("register response carried no access token")
	}
	return res, nil
}

// Session implements service.Service.
func (c *Client) Session(ctx context.Context) (service.User, error) {
	var res struct {
		User *service.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, sessionPath, nil, &res); err != nil {
		return service.User{}, err
	}
	if res.User == nil {
		return service.User{}, fmt.Errorf("session response carried no user")
	}
	return *res.User, nil
}

// Logout implements service.Service.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, logoutPath, nil, nil)
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var tasks []service.Task
	if err := c.do(ctx, http.MethodGet, tasksPath, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask implements service.Service.
func (c *Client) GetTask(ctx context.Context, id int64) (service.Task, error) {
	var task service.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, &task); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	var created service.Task
	if err := c.do(ctx, http.MethodPost, tasksPath, transport.JSON(task), &created); err != nil {
		return service.Task{}, err
	}
	return created, nil
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, id int64, update service.TaskUpdate) (service.Task, error) {
	var updated service.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), transport.JSON(update), &updated); err != nil {
		return service.Task{}, err
	}
	return updated, nil
}

// ToggleTask implements service.Service.
func (c *Client) ToggleTask(ctx context.Context, id int64) (service.Task, error) {
	var updated service.Task
	if err := c.do(ctx, http.MethodPatch, taskPath(id)+"/complete", nil, &updated); err != nil {
		return service.Task{}, err
	}
	return updated, nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func taskPath(id int64) string {
	return fmt.Sprintf("%s/%d", tasksPath, id)
}
