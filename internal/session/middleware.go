package session

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vantage-intel/vantage-intel/internal/platform/httpx"
	"github.com/vantage-intel/vantage-intel/internal/shared"
)

// RoleLookup resolves the role attached to a username. The auth credential
// store satisfies this.
type RoleLookup interface {
	FindRole(ctx context.Context, username string) (string, error)
}

// ValidationMetrics records session validation outcomes.
type ValidationMetrics interface {
	ObserveValidation(valid bool)
}

// Middleware gates protected routes on a live session. The identity is
// resolved once at request entry and travels via context; handlers never
// consult ambient state.
type Middleware struct {
	Manager *Manager
	Roles   RoleLookup
	Logger  *slog.Logger
	Metrics ValidationMetrics
}

// Require rejects requests without a valid session token and injects the
// resolved identity into the request context.
func (mw Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		username, ok := mw.Manager.Resolve(r.Context(), token)
		if mw.Metrics != nil {
			mw.Metrics.ObserveValidation(ok)
		}
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing or expired session")
			return
		}
		role := ""
		if mw.Roles != nil {
			var err error
			role, err = mw.Roles.FindRole(r.Context(), username)
			if err != nil {
				if mw.Logger != nil {
					mw.Logger.Warn("role lookup failed", slog.String("username", username), slog.Any("error", err))
				}
				// A session whose owner cannot be resolved does not
				// authenticate: the credential row is gone or storage is
				// unhealthy, and both deny.
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing or expired session")
				return
			}
		}
		id := &shared.Identity{Username: username, Role: role, Token: token}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
	})
}

// BearerToken extracts the session token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
