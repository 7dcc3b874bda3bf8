// internal/httpserver/server.go
//
// HTTP server wiring for the Palavreco backend.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, logging, panic recovery,
//     Sentry, CORS, optional auth, timeouts, JSON content type).
//   - Public endpoints: "/", "/health", "/debug/words".
//   - Game endpoints (guests allowed): /game/new, /game/{id}/... and the
//     /game/{id}/ws command channel.
//   - Account endpoints: /auth/*; player endpoints: /stats/me, /games/mine.
//
// Notes:
//   - Players are identified by account ID when signed in, otherwise by the
//     anonymous cookie. A session created as a guest stays playable after login.
//   - The WebSocket route is mounted outside the handler timeout.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Cristianojr9/palavreco/internal/auth"
	"github.com/Cristianojr9/palavreco/internal/config"
	"github.com/Cristianojr9/palavreco/internal/game"
	"github.com/Cristianojr9/palavreco/internal/stats"
	"github.com/Cristianojr9/palavreco/internal/store"
	"github.com/Cristianojr9/palavreco/internal/telemetry"
)

const anonCookieName = "palavreco_anon"

// WordList is what the server needs from the word lists.
type WordList interface {
	game.WordSource
	Stats() (answersCount int, allowedCount int)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Config   config.Config
	Words    WordList
	Sessions store.Store
	Stats    *stats.Store
	Users    *auth.Users
	Tokens   *auth.Tokens
}

// Server bundles the router and its collaborators.
type Server struct {
	r   *chi.Mux
	cfg config.Config

	words    WordList
	sessions store.Store
	stats    *stats.Store
	users    *auth.Users
	tokens   *auth.Tokens

	now func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      d.Config,
		words:    d.Words,
		sessions: d.Sessions,
		stats:    d.Stats,
		users:    d.Users,
		tokens:   d.Tokens,
		now:      time.Now,
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger)
	s.r.Use(chimw.Recoverer)
	s.r.Use(telemetry.Middleware())
	s.r.Use(s.cors)
	s.r.Use(auth.Optional(s.tokens, s.users, s.cfg.Auth.CookieName))

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", r.URL.Path)
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method)
	})

	// Long-lived; no handler timeout.
	s.r.Get("/game/{id}/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		timeout := s.cfg.HTTP.HandlerTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		r.Use(chimw.Timeout(timeout))
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service":   "palavreco",
				"endpoints": []string{"/health", "POST /game/new", "GET /game/{id}", "GET /game/{id}/ws", "/auth/*", "/stats/me"},
			})
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
			a, g := s.words.Stats()
			writeJSON(w, http.StatusOK, map[string]int{"answers": a, "allowed": g})
		})

		s.mountGameRoutes(r)
		s.mountAuthRoutes(r)
		s.mountPlayerRoutes(r)
	})

	return s
}

// Handler exposes the router, for http.Server and tests.
func (s *Server) Handler() http.Handler { return s.r }

// ----------------------------- middleware ----------------------------------

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.HTTP.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ------------------------------ responses ----------------------------------

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with {"error","message"}.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, apiError{Error: code, Message: msg})
}

// internalError logs and reports err, then answers 500.
func internalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Error().Err(err).Str("request_id", chimw.GetReqID(r.Context())).Msg(code)
	telemetry.CaptureError(r.Context(), err, map[string]string{"code": code, "path": r.URL.Path})
	writeError(w, http.StatusInternalServerError, code, "")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v)
}

// ------------------------------- players -----------------------------------

// player identifies who is calling.
type player struct {
	// ID is the account ID when signed in, otherwise the anonymous ID.
	ID string
	// AnonID is the anonymous cookie value, possibly empty.
	AnonID string
}

// owns reports whether a session belongs to p under either identity.
func (p player) owns(sess store.Session) bool {
	return sess.OwnerID != "" && (sess.OwnerID == p.ID || sess.OwnerID == p.AnonID)
}

// currentPlayer resolves the caller. With create set, guests without an
// anonymous cookie get one.
func (s *Server) currentPlayer(w http.ResponseWriter, r *http.Request, create bool) player {
	var p player
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		p.AnonID = c.Value
	}
	if me := auth.FromContext(r.Context()); me != nil {
		p.ID = me.ID
		return p
	}
	if p.AnonID == "" && create {
		p.AnonID = uuid.NewString()
		s.setCookie(w, anonCookieName, p.AnonID, time.Now().Add(180*24*time.Hour))
	}
	p.ID = p.AnonID
	return p
}

// setCookie writes an HttpOnly cookie with the environment's security attributes.
func (s *Server) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	secure := s.cfg.Production()
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	}
	if value == "" {
		c.MaxAge = -1
		c.Expires = time.Time{}
	}
	http.SetCookie(w, c)
}

// background detaches persistence work from the request deadline.
func background(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}
