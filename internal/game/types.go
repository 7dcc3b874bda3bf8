// internal/game/types.go
//
// Core type definitions for the game engine.
// Defines:
//   - Mark: per-letter result of an evaluated guess.
//   - Status: overall game status (playing → won/lost).
//   - LetterState, Board, KeyStates: the state tree handed to renderers.
//   - GameState: the root snapshot owned by an Engine.

package game

// Board dimensions.
const (
	Rows = 6
	Cols = 5
)

// Mark represents the evaluation result for a single letter.
type Mark string

const (
	MarkCorrect Mark = "correct" // right letter, right position
	MarkPresent Mark = "present" // in the target, elsewhere
	MarkAbsent  Mark = "absent"  // not in the (remaining) target
	MarkEmpty   Mark = "empty"   // cell never evaluated
)

// Status is the game's state machine position.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// LetterState is one board cell.
type LetterState struct {
	Letter string `json:"letter"`
	Status Mark   `json:"status"`
}

// Row is one evaluated (or empty) guess.
type Row [Cols]LetterState

// Board is the fixed 6x5 grid. It is a value type so copies never alias.
type Board [Rows]Row

// KeyStates maps an uppercase letter to its best-known mark. A missing key
// means the letter has not been seen in any submitted guess.
type KeyStates map[string]Mark

// GameState is the root entity of a single game session.
type GameState struct {
	Guesses      Board     `json:"guesses"`
	CurrentGuess string    `json:"currentGuess"`
	CurrentRow   int       `json:"currentRow"`
	GameStatus   Status    `json:"gameStatus"`
	TargetWord   string    `json:"targetWord"`
	KeyStates    KeyStates `json:"keyStates"`
}

func emptyRow() Row {
	var r Row
	for i := range r {
		r[i] = LetterState{Status: MarkEmpty}
	}
	return r
}

func emptyBoard() Board {
	var b Board
	for i := range b {
		b[i] = emptyRow()
	}
	return b
}

// newState builds a fresh game around target.
func newState(target string) GameState {
	return GameState{
		Guesses:    emptyBoard(),
		CurrentRow: 0,
		GameStatus: StatusPlaying,
		TargetWord: target,
		KeyStates:  KeyStates{},
	}
}

// Clone returns a deep copy; the KeyStates map is not shared.
func (s GameState) Clone() GameState {
	out := s
	out.KeyStates = make(KeyStates, len(s.KeyStates))
	for k, v := range s.KeyStates {
		out.KeyStates[k] = v
	}
	return out
}

// Finished reports whether the game reached a terminal status.
func (s GameState) Finished() bool {
	return s.GameStatus == StatusWon || s.GameStatus == StatusLost
}

// Attempts is the number of submitted guesses.
func (s GameState) Attempts() int {
	return s.CurrentRow
}

// DisplayBoard returns the board with the in-progress guess overlaid on the
// current row as unevaluated letters.
func (s GameState) DisplayBoard() Board {
	b := s.Guesses
	if s.GameStatus != StatusPlaying || s.CurrentRow >= Rows {
		return b
	}
	for i, r := range s.CurrentGuess {
		if i >= Cols {
			break
		}
		b[s.CurrentRow][i] = LetterState{Letter: string(r), Status: MarkEmpty}
	}
	return b
}

// Won reports whether every cell of the row is correct.
func (r Row) Won() bool {
	for _, c := range r {
		if c.Status != MarkCorrect {
			return false
		}
	}
	return true
}

// Word joins the row's letters.
func (r Row) Word() string {
	var b []byte
	for _, c := range r {
		b = append(b, c.Letter...)
	}
	return string(b)
}
