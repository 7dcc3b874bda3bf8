package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Cristianojr9/palavreco/internal/store"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second
	wsMaxMessage = 1024
)

// wsError is sent instead of a commandResult when a command fails.
type wsError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.cfg.HTTP.ClientOrigin || origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
}

// wsConn serializes writes to one socket.
type wsConn struct {
	ws   *websocket.Conn
	send chan any
	done chan struct{} // closed when writeLoop exits

	closeOnce sync.Once
}

// push queues msg unless the writer is gone.
func (c *wsConn) push(msg any) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		close(c.done)
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWS upgrades to a command channel for one game. The current view is
// sent first; every command is answered with a commandResult or a wsError.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := s.currentPlayer(w, r, false)

	sess, err := s.sessions.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !p.owns(sess)) {
		writeError(w, http.StatusNotFound, "not_found", "no such game")
		return
	}
	if err != nil {
		internalError(w, r, "load_failed", err)
		return
	}

	up := s.upgrader()
	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("gameId", id).Msg("websocket upgrade")
		return
	}
	log.Info().Str("gameId", id).Str("player", p.ID).Msg("websocket connected")

	c := &wsConn{ws: ws, send: make(chan any, 16), done: make(chan struct{})}
	go c.writeLoop()

	ws.SetReadLimit(wsMaxMessage)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	c.push(commandResult{Game: newView(sess)})

	ctx := r.Context()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.push(wsError{Error: "bad_json", Message: err.Error()})
			continue
		}
		res, err := s.apply(ctx, p, id, cmd)
		if err != nil {
			c.push(s.wsErrorFor(err))
			continue
		}
		c.push(res)
	}

	c.close()
	<-c.done
	log.Info().Str("gameId", id).Msg("websocket closed")
}

func (s *Server) wsErrorFor(err error) wsError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return wsError{Error: "not_found", Message: "no such game"}
	case errors.Is(err, errLetterAbsent):
		return wsError{Error: hintLetterAbsent, Message: err.Error()}
	case errors.Is(err, errBadLetter), errors.Is(err, errUnknownOp):
		return wsError{Error: "bad_command", Message: err.Error()}
	case errors.Is(err, store.ErrConflict):
		return wsError{Error: "conflict", Message: "game was modified concurrently, retry"}
	default:
		log.Error().Err(err).Msg("websocket command")
		return wsError{Error: "command_failed"}
	}
}
