// Package stats tracks per-player results: totals, streaks, the guess
// distribution, and a short history of finished games.
package stats

import (
	"math"
	"time"

	"github.com/Cristianojr9/palavreco/internal/game"
)

// DateLayout is the calendar-day format used for LastPlayedDate.
const DateLayout = "2006-01-02"

// Stats is a player's running record.
type Stats struct {
	GamesPlayed       int            `json:"gamesPlayed"`
	GamesWon          int            `json:"gamesWon"`
	CurrentStreak     int            `json:"currentStreak"`
	MaxStreak         int            `json:"maxStreak"`
	WinPercentage     int            `json:"winPercentage"`
	GuessDistribution [game.Rows]int `json:"guessDistribution"`
	LastPlayedDate    string         `json:"lastPlayedDate"`
}

// Record returns s updated with one finished game.
//
// attempts is the number of rows used. Streaks move at most once per
// calendar day: a second win on the same day does not extend the streak
// and a loss on a day already played does not break it.
func (s Stats) Record(won bool, attempts int, today string) Stats {
	newDay := s.LastPlayedDate != today

	s.GamesPlayed++
	if won {
		s.GamesWon++
		if attempts >= 1 && attempts <= game.Rows {
			s.GuessDistribution[attempts-1]++
		}
		if newDay {
			s.CurrentStreak++
			s.MaxStreak = max(s.MaxStreak, s.CurrentStreak)
		}
	} else if newDay {
		s.CurrentStreak = 0
	}

	s.WinPercentage = winPercentage(s.GamesWon, s.GamesPlayed)
	s.LastPlayedDate = today
	return s
}

// Merge folds other into s, used when an anonymous player signs in.
// Counters add up; the current streak and date come from whichever record
// was played most recently.
func (s Stats) Merge(other Stats) Stats {
	s.GamesPlayed += other.GamesPlayed
	s.GamesWon += other.GamesWon
	for i := range s.GuessDistribution {
		s.GuessDistribution[i] += other.GuessDistribution[i]
	}
	if other.LastPlayedDate > s.LastPlayedDate {
		s.CurrentStreak = other.CurrentStreak
		s.LastPlayedDate = other.LastPlayedDate
	}
	s.MaxStreak = max(s.MaxStreak, other.MaxStreak, s.CurrentStreak)
	s.WinPercentage = winPercentage(s.GamesWon, s.GamesPlayed)
	return s
}

func winPercentage(won, played int) int {
	if played == 0 {
		return 0
	}
	return int(math.Round(float64(won) * 100 / float64(played)))
}

// Today formats t as a calendar day in UTC.
func Today(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// GameRecord is one finished game in a player's history.
type GameRecord struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"sessionId"`
	PlayerID   string      `json:"-"`
	Status     game.Status `json:"status"`
	Attempts   int         `json:"attempts"`
	Target     string      `json:"target"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
}
