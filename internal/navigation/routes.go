package navigation

import (
	"fmt"
	"strings"

	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

const maxRedirects = 5

// DefaultRoutes is the application route table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "Login", Path: LoginPath},
		{Name: "StaffTasks", Path: "/staff/tasks", RequiresAuth: true, Role: models.RoleStaff},
		{Name: "StaffTaskDetail", Path: "/staff/tasks/:id", RequiresAuth: true, Role: models.RoleStaff},
		{Name: "SupervisorReviews", Path: "/supervisor/reviews", RequiresAuth: true, Role: models.RoleSupervisor},
		{Name: "SupervisorReviewDetail", Path: "/supervisor/reviews/:id", RequiresAuth: true, Role: models.RoleSupervisor},
		{Name: "AdminDashboard", Path: "/admin/dashboard", RequiresAuth: true, Role: models.RoleAdmin},
		{Name: "Root", Path: "/", Redirect: LoginPath},
	}
}

// Match is a resolved route with its path parameters.
type Match struct {
	Route  Route
	Params map[string]string
}

// Navigator resolves paths against a route table and applies the guard.
type Navigator struct {
	routes []Route
}

// NewNavigator builds a Navigator; nil routes selects DefaultRoutes.
func NewNavigator(routes []Route) *Navigator {
	if routes == nil {
		routes = DefaultRoutes()
	}
	return &Navigator{routes: routes}
}

// Resolve finds the first route whose pattern matches path.
func (n *Navigator) Resolve(path string) (Match, bool) {
	for _, route := range n.routes {
		if params, ok := matchPattern(route.Path, path); ok {
			return Match{Route: route, Params: params}, true
		}
	}
	return Match{}, false
}

// Navigate follows static and guard redirects until a route is allowed and
// returns it.
func (n *Navigator) Navigate(path string, session SessionView) (Match, error) {
	current := path
	for hop := 0; hop <= maxRedirects; hop++ {
		match, ok := n.Resolve(current)
		if !ok {
			return Match{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no route for %s", current))
		}
		if match.Route.Redirect != "" {
			current = match.Route.Redirect
			continue
		}
		decision := Decide(match.Route, session)
		if decision.Allow {
			return match, nil
		}
		current = decision.Redirect
	}
	return Match{}, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("too many redirects navigating to %s", path))
}

func matchPattern(pattern, path string) (map[string]string, bool) {
	want := splitPath(pattern)
	got := splitPath(path)
	if len(want) != len(got) {
		return nil, false
	}
	params := map[string]string{}
	for i, segment := range want {
		if strings.HasPrefix(segment, ":") {
			if got[i] == "" {
				return nil, false
			}
			params[segment[1:]] = got[i]
			continue
		}
		if segment != got[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
