package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nmoreno/storefront-checkout/pkg/logger"
)

const (
	cartSessionCookie = "cart_session"
	cartSessionHeader = "X-Cart-Session"
	cartSessionMaxAge = 30 * 24 * time.Hour
)

type cartSessionKey struct{}

// CartSession resolves a stable cart session id for the request: cookie
// first, then the explicit header for cross-origin callers without cookies,
// otherwise a freshly minted token. The id is always written back (cookie
// set and header echoed) so the same browser reuses it. This step cannot
// fail; a missing session just means a new one.
func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := resolveSessionID(r)

			http.SetCookie(w, &http.Cookie{
				Name:     cartSessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(cartSessionMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(cartSessionHeader, sessionID)

			ctx := context.WithValue(r.Context(), cartSessionKey{}, sessionID)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveSessionID(r *http.Request) string {
	if cookie, err := r.Cookie(cartSessionCookie); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}
	if value := strings.TrimSpace(r.Header.Get(cartSessionHeader)); value != "" {
		return value
	}
	return uuid.NewString()
}

// CartSessionFromContext returns the session id resolved by CartSession.
func CartSessionFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(cartSessionKey{}).(string); ok {
		return value
	}
	return ""
}
