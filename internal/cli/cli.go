package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/app"
	"github.com/noah-isme/cleanops-client/internal/navigation"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

const usage = `Usage: cleanops <command> [flags]

Session:
  login --email E [--password P]    sign in (password falls back to CLEANOPS_PASSWORD)
  logout                            sign out and forget the stored token
  me                                print the signed-in identity

Assignee:
  tasks list [--status S] [--period ID] [--page N] [--page-size N]
  tasks clean ID [--notes TEXT]
  tasks export [--format csv|pdf] [--title T]

Reviewer:
  reviews list [--status S] [--page N] [--page-size N]
  reviews approve ID [--rating 1-5] [--notes TEXT]
  reviews reject ID --reason TEXT
  reviews export [--format csv|pdf] [--title T]

Administrator:
  stats                             active period counters
  ref list KIND [--search Q] [--filter k=v] [--page N] [--page-size N]
  ref create KIND --data JSON
  ref delete KIND ID

Background:
  watch [--export csv|pdf] [--once]  re-fetch the role's view on RECONCILE_SCHEDULE
`

type command func(ctx context.Context, args []string) error

// CLI maps command lines onto the wired client.
type CLI struct {
	app    *app.App
	nav    *navigation.Navigator
	logger *zap.Logger
	env    func(string) string

	outMu sync.Mutex
	out   io.Writer

	booted bool
}

// New constructs a CLI writing command output to out.
func New(a *app.App, out io.Writer, env func(string) string) *CLI {
	if env == nil {
		env = func(string) string { return "" }
	}
	return &CLI{
		app:    a,
		nav:    navigation.NewNavigator(nil),
		logger: a.Logger,
		env:    env,
		out:    out,
	}
}

// Run executes one command line.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		c.printf("%s", usage)
		return nil
	}

	commands := map[string]command{
		"login":   c.login,
		"logout":  c.logout,
		"me":      c.me,
		"tasks":   c.tasks,
		"reviews": c.reviews,
		"stats":   c.stats,
		"ref":     c.ref,
		"watch":   c.watch,
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return usageError("unknown command %q", args[0])
	}
	return cmd(ctx, args[1:])
}

func (c *CLI) subcommand(ctx context.Context, group string, args []string, subs map[string]command) error {
	if len(args) == 0 {
		return usageError("%s needs a subcommand (%s)", group, strings.Join(sortedKeys(subs), ", "))
	}
	sub, ok := subs[args[0]]
	if !ok {
		return usageError("unknown %s subcommand %q", group, args[0])
	}
	return sub(ctx, args[1:])
}

// boot restores the persisted session once per process. A token the server
// refuses just leaves the session signed out.
func (c *CLI) boot(ctx context.Context) error {
	if c.booted {
		return nil
	}
	c.booted = true
	if err := <-c.app.Session.Boot(ctx); err != nil {
		if appErrors.IsUnauthorized(err) {
			c.logger.Debug("stored session rejected", zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}

// enter runs the navigation guard for path and fails when it redirects away.
func (c *CLI) enter(ctx context.Context, path string) (navigation.Match, error) {
	if err := c.boot(ctx); err != nil {
		return navigation.Match{}, err
	}
	want, ok := c.nav.Resolve(path)
	if !ok {
		return navigation.Match{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no view for %s", path))
	}
	got, err := c.nav.Navigate(path, c.app.Session)
	if err != nil {
		return navigation.Match{}, err
	}
	if got.Route.Name == want.Route.Name {
		return got, nil
	}
	if got.Route.Path == navigation.LoginPath {
		return got, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in, run `cleanops login`")
	}
	role := ""
	if identity := c.app.Session.Identity(); identity != nil {
		role = string(identity.Role)
	}
	return got, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s is not available to role %s", want.Route.Name, role))
}

func (c *CLI) printf(format string, args ...interface{}) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *CLI) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	c.printf("%s\n", data)
	return nil
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return usageError("%s flags:\n%s", fs.Name(), fs.FlagUsages())
		}
		return usageError("%s: %v", fs.Name(), err)
	}
	return nil
}

// positional parses flags and requires exactly n positional arguments.
func positional(fs *pflag.FlagSet, args []string, names ...string) ([]string, error) {
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if fs.NArg() != len(names) {
		return nil, usageError("%s expects %s", fs.Name(), strings.Join(names, " "))
	}
	return fs.Args(), nil
}

func usageError(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(format, args...))
}

func sortedKeys(m map[string]command) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
