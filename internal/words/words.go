// internal/words/words.go
//
// Word source for the game engine.
//
// Responsibilities:
//   - Hold the target list (answers) and the guess list (allowed ⊇ answers).
//   - Pick a uniformly random target with crypto/rand.
//   - Answer case-insensitive membership queries for guesses.
//
// Loading (Load):
//  1. If both AnswersFile and AllowedFile are set, read each.
//  2. If only AllowedFile is set, use it for both lists.
//  3. Otherwise use the lists embedded in the assets package.
//
// Constraints:
//   - Words are exactly 5 letters A–Z; anything else is dropped on load.
//   - Lists are normalized to uppercase and deduplicated.
//   - A List is immutable after construction and safe for concurrent use.
package words

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/Cristianojr9/palavreco/assets"
)

// WordLength is the only word length the lists accept.
const WordLength = 5

// ErrNoAnswers is returned when the target list ends up empty.
var ErrNoAnswers = errors.New("words: answers list is empty")

// Config selects where Load reads the lists from. Empty paths fall back to
// the embedded defaults.
type Config struct {
	AnswersFile string
	AllowedFile string
}

// List is an immutable pair of word lists.
type List struct {
	answers []string
	allowed map[string]struct{} // answers ∪ extra guesses
	intn    func(n int) int
}

// Option customizes a List.
type Option func(*List)

// WithIntn replaces the random index function. Tests use it to make target
// selection deterministic.
func WithIntn(fn func(n int) int) Option {
	return func(l *List) { l.intn = fn }
}

// New builds a List from raw target and guess words.
func New(answers, allowed []string, opts ...Option) (*List, error) {
	l := &List{
		answers: normalize(answers),
		intn:    cryptoIntn,
	}
	if len(l.answers) == 0 {
		return nil, ErrNoAnswers
	}

	// Every target is always an accepted guess.
	l.allowed = toSet(l.answers)
	for _, w := range normalize(allowed) {
		l.allowed[w] = struct{}{}
	}

	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load builds a List from the configured files or the embedded assets.
func Load(cfg Config, opts ...Option) (*List, error) {
	var ansList, allowList []string

	switch {
	case cfg.AnswersFile != "" && cfg.AllowedFile != "":
		var err error
		if ansList, err = readWordFile(cfg.AnswersFile); err != nil {
			return nil, err
		}
		if allowList, err = readWordFile(cfg.AllowedFile); err != nil {
			return nil, err
		}

	case cfg.AllowedFile != "":
		var err error
		if allowList, err = readWordFile(cfg.AllowedFile); err != nil {
			return nil, err
		}
		ansList = allowList

	default:
		var err error
		if ansList, allowList, err = assets.Lists(); err != nil {
			return nil, fmt.Errorf("words: embedded lists: %w", err)
		}
	}

	return New(ansList, allowList, opts...)
}

// PickTarget returns a target word chosen uniformly at random.
func (l *List) PickTarget() string {
	return l.answers[l.intn(len(l.answers))]
}

// IsValid reports whether candidate is an accepted guess, ignoring case.
// Strings that are not five letters are never in the list.
func (l *List) IsValid(candidate string) bool {
	_, ok := l.allowed[strings.ToUpper(candidate)]
	return ok
}

// IsAnswer reports whether w is in the target list.
func (l *List) IsAnswer(w string) bool {
	w = strings.ToUpper(w)
	for _, a := range l.answers {
		if a == w {
			return true
		}
	}
	return false
}

// Stats returns the sizes of the target and guess lists.
func (l *List) Stats() (answersCount int, allowedCount int) {
	return len(l.answers), len(l.allowed)
}

// readWordFile loads one word per line from path.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("words: open %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("words: read %s: %w", path, err)
	}
	return out, nil
}

// normalize trims, uppercases, filters to 5-letter A–Z words and drops
// duplicates while keeping first-seen order.
func normalize(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		w := strings.ToUpper(strings.TrimSpace(raw))
		if len(w) != WordLength || !isAlpha(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}

// isAlpha reports whether s is all uppercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func cryptoIntn(n int) int {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(nBig.Int64())
}
