package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/referral-labels/internal/correction"
)

// ActorHeader names the reviewer recorded in the correction audit trail.
const ActorHeader = "X-Actor"

// Authentication requires "Authorization: Bearer <token>" when token is set.
// The X-Actor header, or "api" when absent, becomes the request's actor.
func Authentication(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if token != "" {
				got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
					w.Header().Set("WWW-Authenticate", `Bearer realm="labels"`)
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
			}

			actor := strings.TrimSpace(r.Header.Get(ActorHeader))
			if actor == "" {
				actor = "api"
			}
			next.ServeHTTP(w, r.WithContext(correction.WithActor(r.Context(), actor)))
		})
	}
}
