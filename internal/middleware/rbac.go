package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-console/internal/models"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
)

// Console routes subject to the role gate.
const (
	RouteCourses          = "/courses"
	RouteStudents         = "/students"
	RouteEnrollments      = "/enrollments"
	RouteEnrollmentGrade  = "/enrollments/grade"
	RouteEnrollmentExport = "/enrollments/export"
)

// DefaultFallbackRoute receives requests the role gate turns away.
const DefaultFallbackRoute = RouteEnrollments

// Capabilities is what a role may open and where it lands after login.
type Capabilities struct {
	AllowedRoutes []string `json:"allowedRoutes"`
	LandingRoute  string   `json:"landingRoute"`
}

// Allows reports whether route is in the allowed set.
func (c Capabilities) Allows(route string) bool {
	for _, allowed := range c.AllowedRoutes {
		if allowed == route {
			return true
		}
	}
	return false
}

// ResolveCapabilities is the single place roles are mapped to routes. A
// session restored without a role may only open the enrollments view.
func ResolveCapabilities(role models.Role) Capabilities {
	switch role {
	case models.RoleStudent:
		return Capabilities{
			AllowedRoutes: []string{RouteEnrollments, RouteEnrollmentExport},
			LandingRoute:  RouteEnrollments,
		}
	case models.RoleInstructor, models.RoleAdmin:
		return Capabilities{
			AllowedRoutes: []string{RouteCourses, RouteStudents, RouteEnrollments, RouteEnrollmentGrade, RouteEnrollmentExport},
			LandingRoute:  RouteCourses,
		}
	default:
		return Capabilities{
			AllowedRoutes: []string{RouteEnrollments},
			LandingRoute:  RouteCourses,
		}
	}
}

// RequireCapability is the role gate for route. Users lacking it are sent to
// fallback, DefaultFallbackRoute when omitted.
func RequireCapability(route string, fallback ...string) gin.HandlerFunc {
	target := DefaultFallbackRoute
	if len(fallback) > 0 && fallback[0] != "" {
		target = fallback[0]
	}
	return func(c *gin.Context) {
		store := StoreFrom(c)
		if store == nil {
			deny(c, LoginRoute, appErrors.ErrUnauthorized)
			return
		}
		if !ResolveCapabilities(store.Auth.Snapshot().Role()).Allows(route) {
			deny(c, target, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
