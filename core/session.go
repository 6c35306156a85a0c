package core

import "net/http"

const (
	RoleAdmin      = "ADMIN"
	RoleInstructor = "INSTRUCTOR"
	RoleStudent    = "STUDENT"
)

// Session is the identity resolved by the external authentication provider.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

func (s Session) IsAdmin() bool      { return s.Role == RoleAdmin }
func (s Session) IsInstructor() bool { return s.Role == RoleInstructor }

// HasAnyRole reports whether the session's role is one of `roles`.
func (s Session) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// SessionProvider resolves the session of an incoming request.
// It returns a nil Session (and no error) for anonymous requests.
type SessionProvider interface {
	GetSession(r *http.Request) (*Session, error)
}
