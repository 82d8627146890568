package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/citizenwallet/feed/pkg/indexer"
)

type Auth struct {
	apiKey string
}

func New(apiKey string) *Auth {
	return &Auth{apiKey: apiKey}
}

// AuthMiddleware is a middleware that checks for a valid API key. Without a configured
// key every request is refused.
func (a *Auth) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(indexer.AuthorizationHeader)
		apiKey = strings.TrimPrefix(apiKey, "Bearer ")
		if apiKey == "" || a.apiKey == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(a.apiKey)) != 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
