// Package guard decides whether an identity may open a route.
package guard

import (
	"fmt"
	"strings"
)

const (
	// LoginRoute is where unauthenticated callers are sent.
	LoginRoute = "/login"
	// RegisterRoute hosts account registration.
	RegisterRoute = "/register"
	// DashboardRoute is where authenticated non-administrators are sent from admin routes.
	DashboardRoute = "/dashboard"
	// AuditsRoute is the root of audit routes.
	AuditsRoute = "/audits"
	// ProfileRoute shows the current account.
	ProfileRoute = "/profile"
	// AdminRoute is the root of administrator routes.
	AdminRoute = "/admin"

	rootRouteConstant                     = "/"
	routeSeparatorConstant                = "/"
	redirectErrorTemplateConstant         = "access to %s denied: redirecting to %s"
	requirementPublicLabelConstant        = "public"
	requirementAuthenticatedLabelConstant = "authenticated"
	requirementAdminLabelConstant         = "admin"
)

// Requirement is the access level a route demands.
type Requirement int

// Access levels.
const (
	RequirePublic Requirement = iota
	RequireAuthenticated
	RequireAdmin
)

// String renders the requirement name.
func (requirement Requirement) String() string {
	switch requirement {
	case RequireAdmin:
		return requirementAdminLabelConstant
	case RequireAuthenticated:
		return requirementAuthenticatedLabelConstant
	default:
		return requirementPublicLabelConstant
	}
}

// Identity is the caller presented to the guard; nil means unauthenticated.
type Identity struct {
	Username string
	IsAdmin  bool
}

// Decision is the outcome of a guard evaluation.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// Evaluate applies a requirement to an identity without any network access.
func Evaluate(requirement Requirement, identity *Identity) Decision {
	if requirement == RequirePublic {
		return Decision{Allowed: true}
	}
	if identity == nil {
		return Decision{RedirectTo: LoginRoute}
	}
	if requirement == RequireAdmin && !identity.IsAdmin {
		return Decision{RedirectTo: DashboardRoute}
	}
	return Decision{Allowed: true}
}

// RedirectError reports a refused route together with the route the caller should use instead.
type RedirectError struct {
	Route  string
	Target string
}

// Error describes the refusal.
func (redirectError RedirectError) Error() string {
	return fmt.Sprintf(redirectErrorTemplateConstant, redirectError.Route, redirectError.Target)
}

// RouteTable maps route prefixes to requirements.
type RouteTable struct {
	entries  map[string]Requirement
	fallback Requirement
}

// DefaultRouteTable mirrors the application's routes: login and registration are public,
// administrator routes need staff rights and everything else needs a signed-in user.
func DefaultRouteTable() RouteTable {
	return RouteTable{
		entries: map[string]Requirement{
			LoginRoute:     RequirePublic,
			RegisterRoute:  RequirePublic,
			DashboardRoute: RequireAuthenticated,
			AuditsRoute:    RequireAuthenticated,
			ProfileRoute:   RequireAuthenticated,
			AdminRoute:     RequireAdmin,
		},
		fallback: RequireAuthenticated,
	}
}

// Resolve finds the requirement of the longest registered prefix of the route.
func (table RouteTable) Resolve(route string) Requirement {
	normalizedRoute := normalizeRoute(route)
	for candidate := normalizedRoute; ; {
		if requirement, exists := table.entries[candidate]; exists {
			return requirement
		}
		separatorIndex := strings.LastIndex(candidate, routeSeparatorConstant)
		if separatorIndex <= 0 {
			return table.fallback
		}
		candidate = candidate[:separatorIndex]
	}
}

// Check evaluates the route for the identity and returns a RedirectError when refused.
func (table RouteTable) Check(route string, identity *Identity) error {
	decision := Evaluate(table.Resolve(route), identity)
	if decision.Allowed {
		return nil
	}
	return RedirectError{Route: normalizeRoute(route), Target: decision.RedirectTo}
}

func normalizeRoute(route string) string {
	trimmedRoute := strings.TrimSpace(route)
	if len(trimmedRoute) == 0 {
		return rootRouteConstant
	}
	if !strings.HasPrefix(trimmedRoute, routeSeparatorConstant) {
		trimmedRoute = routeSeparatorConstant + trimmedRoute
	}
	if len(trimmedRoute) > 1 {
		trimmedRoute = strings.TrimRight(trimmedRoute, routeSeparatorConstant)
	}
	return trimmedRoute
}
