// Package sessionsvc reads the sessions issued by the external auth provider.
package sessionsvc

import (
	"net/http"

	"github.com/trezcool/mwalimu/core"
)

// Chain asks each provider in turn and returns the first session found.
type Chain []core.SessionProvider

var _ core.SessionProvider = (Chain)(nil)

func (c Chain) GetSession(r *http.Request) (*core.Session, error) {
	for _, p := range c {
		sess, err := p.GetSession(r)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	}
	return nil, nil
}
