package cli

import (
	"context"

	"github.com/noah-isme/cleanops-client/internal/navigation"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

// PasswordEnv is read when --password is omitted.
const PasswordEnv = "CLEANOPS_PASSWORD"

func (c *CLI) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if _, err := positional(fs, args); err != nil {
		return err
	}
	if *password == "" {
		*password = c.env(PasswordEnv)
	}

	match, err := c.enter(ctx, navigation.LoginPath)
	if err != nil {
		return err
	}
	if match.Route.Path != navigation.LoginPath {
		identity := c.app.Session.Identity()
		c.printf("already signed in as %s (%s), run `cleanops logout` first\n", identity.Email, identity.Role)
		return nil
	}

	user, err := c.app.Session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	home, _ := navigation.HomeFor(user.Role)
	c.printf("signed in as %s (%s), home %s\n", user.FullName, user.Role, home)
	return nil
}

func (c *CLI) logout(ctx context.Context, args []string) error {
	if _, err := positional(newFlagSet("logout"), args); err != nil {
		return err
	}
	c.app.Session.Logout(ctx)
	c.printf("signed out\n")
	return nil
}

func (c *CLI) me(ctx context.Context, args []string) error {
	if _, err := positional(newFlagSet("me"), args); err != nil {
		return err
	}
	if err := c.boot(ctx); err != nil {
		return err
	}
	identity := c.app.Session.Identity()
	if identity == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "not signed in, run `cleanops login`")
	}
	return c.printJSON(identity)
}
