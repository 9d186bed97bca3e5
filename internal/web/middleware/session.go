// Package middleware holds the qubicweb HTTP middleware.
package middleware

import (
	"context"
	"net/http"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/session"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/web/handlers"
)

// RequireSession redirects requests without a live browser session to the
// login page. A session whose API credential was retired by a 401 reads
// as absent, so an expired token lands back on login too.
func RequireSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("session_id")
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			b, ok := store.Get(cookie.Value)
			if !ok {
				http.SetCookie(w, &http.Cookie{
					Name:   "session_id",
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), handlers.SessionContextKey, b)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
