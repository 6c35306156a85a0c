package sessionsvc

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims represents the session claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Token reads sessions from "Authorization: Bearer" HS256 tokens.
type Token struct {
	secret []byte
	issuer string
}

var _ core.SessionProvider = (*Token)(nil)

func NewToken(secret, issuer string) *Token {
	return &Token{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token for sess valid for ttl (dev tooling and tests).
func (tk *Token) Issue(sess core.Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tk.issuer,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: sess.Email,
		Name:  sess.Name,
		Role:  sess.Role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tk.secret)
	return token, errors.Wrap(err, "signing token")
}

// GetSession returns nil when the request carries no bearer token and
// ErrInvalidToken when the token does not verify or lacks the user id or email.
func (tk *Token) GetSession(r *http.Request) (*core.Session, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil, nil
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tk.secret, nil
	})
	if err != nil || claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	if tk.issuer != "" && !claims.VerifyIssuer(tk.issuer, true) {
		return nil, ErrInvalidToken
	}
	return &core.Session{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
	}, nil
}
