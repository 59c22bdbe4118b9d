package commands

import (
	"errors"
	"fmt"
	"io"

	"todo/internal/auth"
	"todo/internal/exitcode"
	"todo/internal/tasks"
	"todo/internal/transport"
)

// notLoggedIn is printed whenever a command needs a session and has none.
const notLoggedIn = "error: not logged in (run: todo login)"

// reportError prints err and returns the exit code for it.
func reportError(errOut io.Writer, err error) int {
	var opErr *auth.OpError
	var apiErr *transport.APIError

	switch {
	case errors.As(err, &opErr):
		fmt.Fprintf(errOut, "error: %s\n", opErr.Message)
		return exitcode.AuthError

	case errors.Is(err, transport.ErrUnauthorized):
		fmt.Fprintln(errOut, notLoggedIn)
		return exitcode.AuthError

	case errors.Is(err, tasks.ErrInvalidTitle),
		errors.Is(err, tasks.ErrInvalidDescription),
		errors.Is(err, tasks.ErrEmptyUpdate):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError

	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		// 403, 404 and validation failures are about what the user asked for.
		fmt.Fprintf(errOut, "error: %s\n", apiErr.Error())
		return exitcode.UserError

	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}
