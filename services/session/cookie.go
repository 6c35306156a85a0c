package sessionsvc

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
)

// Cookie reads the session the auth provider stores in a signed cookie.
type Cookie struct {
	store sessions.Store
	name  string
}

var _ core.SessionProvider = (*Cookie)(nil)

func NewCookieStore(conf *core.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(conf.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(conf.Session.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   conf.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func NewCookie(store sessions.Store, name string) *Cookie {
	return &Cookie{store: store, name: name}
}

// GetSession returns nil for requests without a valid session cookie, or whose session has no user id or email.
func (c *Cookie) GetSession(r *http.Request) (*core.Session, error) {
	s, err := c.store.Get(r, c.name)
	if err != nil { // tampered or expired cookie
		return nil, nil
	}
	userID, email := toString(s.Values["user_id"]), toString(s.Values["email"])
	if userID == "" || email == "" {
		return nil, nil
	}
	return &core.Session{
		UserID: userID,
		Email:  email,
		Name:   toString(s.Values["name"]),
		Role:   toString(s.Values["role"]),
	}, nil
}

// Save writes sess to the response cookie (dev tooling and tests).
func (c *Cookie) Save(w http.ResponseWriter, r *http.Request, sess core.Session) error {
	s, err := c.store.Get(r, c.name)
	if err != nil && s == nil {
		return errors.Wrap(err, "getting session")
	}
	s.Values["user_id"] = sess.UserID
	s.Values["email"] = sess.Email
	s.Values["name"] = sess.Name
	s.Values["role"] = sess.Role
	return errors.Wrap(s.Save(r, w), "saving session")
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}
