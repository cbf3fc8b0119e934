package navigation

import "github.com/noah-isme/cleanops-client/internal/models"

// LoginPath is the login entry point.
const LoginPath = "/login"

// Route describes a navigable view and its access requirements.
type Route struct {
	Name         string
	Path         string
	RequiresAuth bool
	// Role, when set, must equal the identity's role exactly.
	Role models.UserRole
	// Redirect makes the route a static alias for another path.
	Redirect string
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allow    bool
	Redirect string
}

// Allow lets the transition proceed.
func Allow() Decision {
	return Decision{Allow: true}
}

// RedirectTo sends the transition to path instead.
func RedirectTo(path string) Decision {
	return Decision{Redirect: path}
}

// SessionView is what the guard needs to know about the session.
type SessionView interface {
	IsAuthenticated() bool
	Identity() *models.User
}

var roleHomes = map[models.UserRole]string{
	models.RoleAdmin:      "/admin/dashboard",
	models.RoleStaff:      "/staff/tasks",
	models.RoleSupervisor: "/supervisor/reviews",
}

// HomeFor returns the landing path for role.
func HomeFor(role models.UserRole) (string, bool) {
	home, ok := roleHomes[role]
	return home, ok
}

// Decide applies the access rules to a transition towards target. It has no
// side effects.
func Decide(target Route, session SessionView) Decision {
	authenticated := session != nil && session.IsAuthenticated()

	if !target.RequiresAuth && !authenticated {
		return Allow()
	}

	if target.Path == LoginPath && authenticated {
		if home, ok := HomeFor(currentRole(session)); ok {
			return RedirectTo(home)
		}
		return Allow()
	}

	if target.RequiresAuth && !authenticated {
		return RedirectTo(LoginPath)
	}

	if target.Role != "" {
		role := currentRole(session)
		if role != target.Role {
			if home, ok := HomeFor(role); ok {
				return RedirectTo(home)
			}
			return RedirectTo(LoginPath)
		}
	}

	return Allow()
}

func currentRole(session SessionView) models.UserRole {
	if session == nil {
		return ""
	}
	identity := session.Identity()
	if identity == nil {
		return ""
	}
	return identity.Role
}
