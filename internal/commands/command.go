// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"
	"log/slog"

	"todo/internal/auth"
	"todo/internal/config"
	"todo/internal/session"
	"todo/internal/tasks"
)

// Env carries the dependencies a command runs against. The dispatcher builds
// one per invocation.
type Env struct {
	Config *config.Config
	Store  session.Store
	Auth   *auth.Machine
	Tasks  *tasks.Manager
	Logger *slog.Logger

	// In is where passwords are read from when it is not a terminal.
	In io.Reader
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires authentication.
	// The dispatcher recovers the session before running such commands and
	// refuses to run them without one.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}
