package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BenDundee/ravana/internal/logging"
)

// authMiddleware returns an HTTP middleware that enforces Bearer token
// authentication on API routes. If apiKey is empty the middleware is a
// no-op — auth is disabled and a warning is logged at server startup, not
// per-request. Operational endpoints (health, readiness, metrics) are
// always reachable without a token so probes and scrapers keep working on
// a locked-down server.
//
// Protected routes must supply:
//
//	Authorization: Bearer <apiKey>
//
// Requests missing or presenting an incorrect token receive 401 Unauthorized
// with a WWW-Authenticate: Bearer challenge. The presented token value is
// never logged, only its presence. Token comparison is constant-time.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if exemptPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		log := logging.FromContext(r.Context())

		token := bearerToken(r)
		if token == "" {
			log.Warn("auth: missing bearer token",
				slog.String("path", r.URL.Path),
			)
			unauthorized(w, `Bearer realm="ravana"`, "authorization required")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			log.Warn("auth: invalid token",
				slog.String("path", r.URL.Path),
				slog.Bool("token_present", true),
			)
			unauthorized(w, `Bearer realm="ravana" error="invalid_token"`, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// unauthorized writes a 401 with the given WWW-Authenticate challenge.
func unauthorized(w http.ResponseWriter, challenge, msg string) {
	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, msg, http.StatusUnauthorized)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns an empty string if the header is absent, uses a different
// scheme, or carries no token.
func bearerToken(r *http.Request) string {
	scheme, rest, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}
