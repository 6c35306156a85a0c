package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/mwalimu/core"
)

const contextSessionKey = "session"

// sessionMiddleware resolves the session of every request.
// Anonymous requests and requests with an invalid session pass through without one:
// routes that need a session reject them in requireRoles.
func sessionMiddleware(provider core.SessionProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := provider.GetSession(ctx.Request())
			if err == nil && sess != nil {
				ctx.Set(contextSessionKey, *sess)
			}
			return next(ctx)
		}
	}
}

func getContextSession(ctx echo.Context) (core.Session, bool) {
	sess, ok := ctx.Get(contextSessionKey).(core.Session)
	return sess, ok
}

// requireInstructor admits INSTRUCTOR sessions, plus ADMIN ones on read-only routes.
func requireInstructor(readOnly bool) echo.MiddlewareFunc {
	roles := []string{core.RoleInstructor}
	if readOnly {
		roles = append(roles, core.RoleAdmin)
	}
	return requireRoles(errNotInstructor, roles...)
}

func requireAdmin() echo.MiddlewareFunc {
	return requireRoles(errHttpForbidden, core.RoleAdmin)
}

func requireRoles(forbidden error, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, ok := getContextSession(ctx)
			if !ok {
				return errUnauthorized
			}
			if !sess.HasAnyRole(roles...) {
				return forbidden
			}
			return next(ctx)
		}
	}
}

// mustSession returns the session set by the auth middlewares.
func mustSession(ctx echo.Context) core.Session {
	sess, _ := getContextSession(ctx)
	return sess
}
