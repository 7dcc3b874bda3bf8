package auth

import (
	"context"
	"net/http"
)

// Identity is placed into the request context by the middleware.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ctxUserKey struct{}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, id)
}

// FromContext returns the signed-in user, or nil for guests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxUserKey{}).(*Identity)
	return id
}

// UserLookup is the part of Users the middleware needs.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*User, error)
}

// Optional decorates requests with an Identity when a valid token names an
// existing user. It never rejects; guests pass through untouched.
func Optional(tokens *Tokens, users UserLookup, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := BearerOrCookie(r, cookieName); raw != "" {
				if c, err := tokens.Parse(raw); err == nil {
					if u, err := users.FindByID(r.Context(), c.ID); err == nil {
						r = r.WithContext(WithIdentity(r.Context(), &Identity{ID: u.ID, Username: u.Username}))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require rejects requests without an Identity. Mount it after Optional.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"sign in required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
