package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Cristianojr9/palavreco/internal/config"
	"github.com/Cristianojr9/palavreco/internal/game"
	"github.com/Cristianojr9/palavreco/internal/stats"
	"github.com/Cristianojr9/palavreco/internal/store"
	"github.com/Cristianojr9/palavreco/internal/telemetry"
)

// Hints returned with applied=false when a caller-side check declines a command.
const (
	hintLetterAbsent  = "letter_absent"
	hintIncomplete    = "incomplete_word"
	hintNotInWordList = "not_in_word_list"
)

// Command ops accepted over HTTP and WebSocket.
const (
	opLetter    = "letter"
	opBackspace = "backspace"
	opSubmit    = "submit"
	opReset     = "reset"
)

var (
	errLetterAbsent = errors.New("letter already marked absent")
	errBadLetter    = errors.New("letter must be a single character")
	errUnknownOp    = errors.New("unknown op")
)

// gameView is the client's picture of a session. The target is only
// revealed once the game is over.
type gameView struct {
	ID           string         `json:"id"`
	Board        game.Board     `json:"board"`
	CurrentGuess string         `json:"currentGuess"`
	CurrentRow   int            `json:"currentRow"`
	Status       game.Status    `json:"status"`
	KeyStates    game.KeyStates `json:"keyStates"`
	Target       string         `json:"target,omitempty"`
	StartedAt    time.Time      `json:"startedAt"`
}

func newView(sess store.Session) gameView {
	st := sess.State
	v := gameView{
		ID:           sess.ID,
		Board:        st.DisplayBoard(),
		CurrentGuess: st.CurrentGuess,
		CurrentRow:   st.CurrentRow,
		Status:       st.GameStatus,
		KeyStates:    st.KeyStates,
		StartedAt:    sess.StartedAt,
	}
	if v.KeyStates == nil {
		v.KeyStates = game.KeyStates{}
	}
	if st.Finished() {
		v.Target = st.TargetWord
	}
	return v
}

// command is one engine operation, as sent by HTTP handlers or the socket.
type command struct {
	Op     string `json:"op"`
	Letter string `json:"letter,omitempty"`
}

// commandResult is the answer to every command.
type commandResult struct {
	Game    gameView     `json:"game"`
	Applied bool         `json:"applied"`
	Hint    string       `json:"hint,omitempty"`
	Stats   *stats.Stats `json:"stats,omitempty"`
}

func (s *Server) mountGameRoutes(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Get("/game/{id}", s.handleGetGame)
	r.Post("/game/{id}/letter", s.handleLetter)
	r.Post("/game/{id}/backspace", s.commandHandler(opBackspace))
	r.Post("/game/{id}/submit", s.commandHandler(opSubmit))
	r.Post("/game/{id}/reset", s.commandHandler(opReset))
}

// handleNewGame starts a session with a random target for the caller.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	p := s.currentPlayer(w, r, true)
	sess := store.Session{
		ID:        uuid.NewString(),
		OwnerID:   p.ID,
		StartedAt: s.now().UTC(),
		State:     game.NewEngine(s.words).State(),
	}
	if err := s.sessions.Create(r.Context(), sess); err != nil {
		internalError(w, r, "save_failed", err)
		return
	}
	log.Info().Str("gameId", sess.ID).Str("player", p.ID).Msg("game created")
	writeJSON(w, http.StatusCreated, newView(sess))
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	p := s.currentPlayer(w, r, false)
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && !p.owns(sess)) {
		writeError(w, http.StatusNotFound, "not_found", "no such game")
		return
	}
	if err != nil {
		internalError(w, r, "load_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, newView(sess))
}

func (s *Server) handleLetter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Letter string `json:"letter"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	s.runCommand(w, r, command{Op: opLetter, Letter: body.Letter})
}

func (s *Server) commandHandler(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.runCommand(w, r, command{Op: op})
	}
}

func (s *Server) runCommand(w http.ResponseWriter, r *http.Request, cmd command) {
	p := s.currentPlayer(w, r, false)
	res, err := s.apply(r.Context(), p, chi.URLParam(r, "id"), cmd)
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeCommandError maps apply errors to HTTP answers.
func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no such game")
	case errors.Is(err, errLetterAbsent):
		writeError(w, http.StatusUnprocessableEntity, hintLetterAbsent, err.Error())
	case errors.Is(err, errBadLetter), errors.Is(err, errUnknownOp):
		writeError(w, http.StatusBadRequest, "bad_command", err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "game was modified concurrently, retry")
	default:
		internalError(w, r, "command_failed", err)
	}
}

// apply runs cmd against the session atomically and records stats when the
// command finishes the game.
func (s *Server) apply(ctx context.Context, p player, id string, cmd command) (commandResult, error) {
	var (
		res      commandResult
		finished bool
		sess     store.Session
	)
	err := s.sessions.Update(ctx, id, func(cur *store.Session) error {
		if !p.owns(*cur) {
			return store.ErrNotFound
		}
		e, err := game.Restore(s.words, cur.State)
		if err != nil {
			return fmt.Errorf("restore %s: %w", id, err)
		}
		before := e.State().GameStatus

		res = commandResult{}
		if err := s.exec(e, cmd, &res); err != nil {
			return err
		}
		if cmd.Op == opReset {
			cur.StartedAt = s.now().UTC()
		}
		cur.State = e.State()
		finished = before == game.StatusPlaying && cur.State.Finished()
		sess = *cur
		return nil
	})
	if err != nil {
		return commandResult{}, err
	}

	res.Game = newView(sess)
	if finished {
		res.Stats = s.recordFinished(ctx, p, sess)
	}
	return res, nil
}

// exec performs one op on e, applying the caller-side guards first.
func (s *Server) exec(e *game.Engine, cmd command, res *commandResult) error {
	switch cmd.Op {
	case opLetter:
		if utf8.RuneCountInString(cmd.Letter) != 1 {
			return errBadLetter
		}
		ch, _ := utf8.DecodeRuneInString(cmd.Letter)
		if e.State().KeyStates[strings.ToUpper(cmd.Letter)] == game.MarkAbsent {
			switch s.cfg.Game.AbsentLetterPolicy {
			case config.AbsentReject:
				return errLetterAbsent
			case config.AbsentIgnore:
				res.Hint = hintLetterAbsent
				return nil
			}
		}
		res.Applied = e.AddLetter(ch)

	case opBackspace:
		res.Applied = e.RemoveLetter()

	case opSubmit:
		st := e.State()
		if st.GameStatus == game.StatusPlaying {
			if len(st.CurrentGuess) < game.Cols {
				res.Hint = hintIncomplete
				return nil
			}
			if !s.words.IsValid(st.CurrentGuess) {
				res.Hint = hintNotInWordList
				return nil
			}
		}
		res.Applied = e.SubmitGuess()

	case opReset:
		e.ResetGame()
		res.Applied = true

	default:
		return fmt.Errorf("%w %q", errUnknownOp, cmd.Op)
	}
	return nil
}

// recordFinished stores history and stats for a game that just ended.
// Failures are logged and reported but do not fail the command.
func (s *Server) recordFinished(ctx context.Context, p player, sess store.Session) *stats.Stats {
	ctx, cancel := background(ctx)
	defer cancel()

	st := sess.State
	won := st.GameStatus == game.StatusWon
	now := s.now()
	l := log.With().Str("gameId", sess.ID).Str("player", p.ID).Logger()
	l.Info().Str("status", string(st.GameStatus)).Int("attempts", st.Attempts()).Msg("game finished")

	if _, err := s.stats.SaveGame(ctx, stats.GameRecord{
		SessionID:  sess.ID,
		PlayerID:   p.ID,
		Status:     st.GameStatus,
		Attempts:   st.Attempts(),
		Target:     st.TargetWord,
		StartedAt:  sess.StartedAt,
		FinishedAt: now,
	}); err != nil {
		l.Warn().Err(err).Msg("save game history")
		telemetry.CaptureError(ctx, err, map[string]string{"op": "save_game"})
	}

	next, err := s.stats.Record(ctx, p.ID, won, st.Attempts(), now)
	if err != nil {
		l.Warn().Err(err).Msg("record stats")
		telemetry.CaptureError(ctx, err, map[string]string{"op": "record_stats"})
		return nil
	}
	l.Info().Int("played", next.GamesPlayed).Int("streak", next.CurrentStreak).Msg("stats recorded")
	return &next
}
