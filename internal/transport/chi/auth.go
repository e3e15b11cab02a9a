package chi

import (
	"net/http"
	"strings"
)

// Accepted Authorization schemes.
const (
	bearerPrefix = "Bearer "
	tokenPrefix  = "Token "
)

// TokenAuthMiddleware returns a middleware that validates API keys sent as
// "Authorization: Bearer <key>", "Authorization: Token <key>" or ?token=<key>.
// If apiKeys is empty, authentication is disabled (pass-through).
func TokenAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := requestToken(r)
			if msg != "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
				return
			}
			if _, ok := validKeys[token]; !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestToken extracts the API key; msg describes why none was usable.
func requestToken(r *http.Request) (token, msg string) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, ""
		}
		return "", "missing authorization header"
	}
	switch {
	case strings.HasPrefix(auth, bearerPrefix):
		return auth[len(bearerPrefix):], ""
	case strings.HasPrefix(auth, tokenPrefix):
		return auth[len(tokenPrefix):], ""
	default:
		return "", "authorization header must use Bearer or Token scheme"
	}
}
