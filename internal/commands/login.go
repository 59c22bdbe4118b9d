package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todo/internal/auth"
	"todo/internal/exitcode"
)

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// LoginCmd implements the login command. Logging in with an unknown email
// creates the account.
type LoginCmd struct {
	passwordStdin bool
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in, creating the account if needed" }
func (c *LoginCmd) Usage() string     { return "todo login [common flags] [--password-stdin] <email>" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.passwordStdin, "password-stdin", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return runSignIn(ctx, env, env.Auth.Login, c.passwordStdin, args, out, errOut)
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	passwordStdin bool
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account and sign in" }
func (c *RegisterCmd) Usage() string {
	return "todo register [common flags] [--password-stdin] <email>"
}
func (c *RegisterCmd) NeedsAuth() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.passwordStdin, "password-stdin", false, "")
}

func (c *RegisterCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return runSignIn(ctx, env, env.Auth.Register, c.passwordStdin, args, out, errOut)
}

type signInFunc func(ctx context.Context, email, password string) (auth.State, error)

// runSignIn is the shared implementation for login and register.
func runSignIn(ctx context.Context, env *Env, signIn signInFunc, passwordStdin bool, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: email required")
		return exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}
	email := strings.TrimSpace(args[0])
	if email == "" {
		fmt.Fprintln(errOut, "error: email required")
		return exitcode.UserError
	}

	password, err := readPassword(env.In, errOut, passwordStdin)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := env.Config.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}

	st, err := signIn(ctx, email, password)
	if err != nil {
		return reportError(errOut, err)
	}

	env.Logger.Debug("signed in", "user_id", st.User.ID, "token_path", env.Config.TokenPath())
	if !env.Config.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", st.User.Email)
	}
	return exitcode.Success
}
