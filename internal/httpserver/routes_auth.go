package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Cristianojr9/palavreco/internal/auth"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) mountAuthRoutes(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)
	r.With(auth.Require).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, auth.FromContext(r.Context()))
	})
}

// handleSignup creates a user, signs a token, sets the auth cookie, and
// claims the caller's anonymous history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	u, err := s.users.Create(r.Context(), body.Username, body.Password)
	var ve *auth.ValidationError
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken", err.Error())
		return
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "invalid_signup", ve.Error())
		return
	case err != nil:
		internalError(w, r, "signup_failed", err)
		return
	}
	log.Info().Str("user", u.ID).Str("username", u.Username).Msg("user signed up")
	s.signIn(w, r, u, http.StatusCreated)
}

// handleLogin authenticates the user, sets the cookie, and claims anonymous history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	u, err := s.users.Authenticate(r.Context(), body.Username, body.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
		return
	}
	if err != nil {
		internalError(w, r, "login_failed", err)
		return
	}
	s.signIn(w, r, u, http.StatusOK)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request, u *auth.User, status int) {
	tok, exp, err := s.tokens.Sign(u.ID, u.Username)
	if err != nil {
		internalError(w, r, "sign_failed", err)
		return
	}
	s.setCookie(w, s.cfg.Auth.CookieName, tok, exp)
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		s.claim(r.Context(), c.Value, u.ID)
	}
	writeJSON(w, status, map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"createdAt": u.CreatedAt,
		"token":     tok,
	})
}

// claim moves anonymous stats and history onto the account (best effort).
func (s *Server) claim(ctx context.Context, anonID, userID string) {
	ctx, cancel := background(ctx)
	defer cancel()
	if err := s.stats.Claim(ctx, anonID, userID, time.Now()); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("claim anonymous history")
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, s.cfg.Auth.CookieName, "", time.Time{})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
