// internal/game/engine.go
//
// State machine for a single game session.
// Responsibilities:
//   - Start games with a random target from a WordSource.
//   - Accept the four commands: add letter, remove letter, submit, reset.
//   - Score submissions with Evaluate and fold them into KeyStates.
//   - Track transitions: playing → won/lost.
//
// Notes:
//   - Commands whose preconditions fail are silent no-ops; the returned bool
//     only tells the caller whether anything changed.
//   - Callers needing user-facing feedback ("too short", "not a word") check
//     the same preconditions themselves.
//   - An Engine is not safe for concurrent use. Callers serialize access.

package game

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// WordSource supplies targets and validates guesses.
type WordSource interface {
	PickTarget() string
	IsValid(candidate string) bool
}

// Engine exclusively owns one GameState.
type Engine struct {
	words WordSource
	state GameState
}

// NewEngine starts a game with a freshly picked target.
func NewEngine(words WordSource) *Engine {
	e := &Engine{words: words}
	e.ResetGame()
	return e
}

// Restore rebuilds an Engine around a previously captured state, checking
// the structural invariants a snapshot must hold.
func Restore(words WordSource, st GameState) (*Engine, error) {
	if err := validate(st); err != nil {
		return nil, fmt.Errorf("game: restore: %w", err)
	}
	st = st.Clone()
	return &Engine{words: words, state: st}, nil
}

// State returns a snapshot. Mutating it does not affect the Engine.
func (e *Engine) State() GameState {
	return e.state.Clone()
}

// AddLetter appends ch, uppercased, to the in-progress guess. It is ignored
// unless the game is playing, the guess has room, and ch is a letter A–Z.
func (e *Engine) AddLetter(ch rune) bool {
	if e.state.GameStatus != StatusPlaying || len(e.state.CurrentGuess) >= Cols {
		return false
	}
	if ch > unicode.MaxASCII {
		return false
	}
	up := strings.ToUpper(string(ch))
	if up[0] < 'A' || up[0] > 'Z' {
		return false
	}
	e.state.CurrentGuess += up
	return true
}

// RemoveLetter drops the last letter of the in-progress guess.
func (e *Engine) RemoveLetter() bool {
	if e.state.GameStatus != StatusPlaying || e.state.CurrentGuess == "" {
		return false
	}
	e.state.CurrentGuess = e.state.CurrentGuess[:len(e.state.CurrentGuess)-1]
	return true
}

// SubmitGuess evaluates the in-progress guess into the current row.
//
// Preconditions: playing, a full guess, a free row, and a word the source
// accepts. On success the row and key states are updated, the guess is
// cleared, the row advances, and the status becomes won (all correct), lost
// (that was the last row) or stays playing.
func (e *Engine) SubmitGuess() bool {
	s := &e.state
	if s.GameStatus != StatusPlaying || len(s.CurrentGuess) != Cols || s.CurrentRow >= Rows {
		return false
	}
	if !e.words.IsValid(s.CurrentGuess) {
		return false
	}

	row := Evaluate(s.CurrentGuess, s.TargetWord)
	s.Guesses[s.CurrentRow] = row
	s.KeyStates = MergeKeyStates(s.KeyStates, row)
	s.CurrentGuess = ""

	switch {
	case row.Won():
		s.GameStatus = StatusWon
	case s.CurrentRow == Rows-1:
		s.GameStatus = StatusLost
	}
	s.CurrentRow++
	return true
}

// ResetGame discards the current state and starts over with a new target.
func (e *Engine) ResetGame() {
	e.state = newState(strings.ToUpper(e.words.PickTarget()))
}

func validate(st GameState) error {
	switch st.GameStatus {
	case StatusPlaying, StatusWon, StatusLost:
	default:
		return fmt.Errorf("unknown status %q", st.GameStatus)
	}
	if len(st.TargetWord) != Cols {
		return errors.New("target word must be 5 letters")
	}
	if st.CurrentRow < 0 || st.CurrentRow > Rows {
		return fmt.Errorf("current row %d out of range", st.CurrentRow)
	}
	if len(st.CurrentGuess) > Cols {
		return errors.New("current guess longer than 5 letters")
	}
	if st.GameStatus == StatusPlaying && st.CurrentRow == Rows {
		return errors.New("playing game has no free row")
	}
	for i, row := range st.Guesses {
		for _, c := range row {
			evaluated := c.Status != MarkEmpty && c.Status != ""
			if i < st.CurrentRow && !evaluated {
				return fmt.Errorf("row %d is submitted but not evaluated", i)
			}
			if i >= st.CurrentRow && evaluated {
				return fmt.Errorf("row %d is evaluated ahead of the current row", i)
			}
		}
	}
	return nil
}
