package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Cristianojr9/palavreco/internal/game"
)

// tsLayout is fixed width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Store persists Stats and GameRecords in SQLite.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Get returns the player's stats. A player with no row has zero stats.
func (s *Store) Get(ctx context.Context, playerID string) (Stats, error) {
	return get(ctx, s.db, playerID)
}

func get(ctx context.Context, q queryer, playerID string) (Stats, error) {
	var st Stats
	d := &st.GuessDistribution
	err := q.QueryRowContext(ctx, `
		SELECT games_played, games_won, current_streak, max_streak,
		       dist_1, dist_2, dist_3, dist_4, dist_5, dist_6, last_played_date
		FROM player_stats WHERE player_id=?`, playerID,
	).Scan(&st.GamesPlayed, &st.GamesWon, &st.CurrentStreak, &st.MaxStreak,
		&d[0], &d[1], &d[2], &d[3], &d[4], &d[5], &st.LastPlayedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("get stats: %w", err)
	}
	st.WinPercentage = winPercentage(st.GamesWon, st.GamesPlayed)
	return st, nil
}

func put(ctx context.Context, q queryer, playerID string, st Stats, now time.Time) error {
	d := st.GuessDistribution
	_, err := q.ExecContext(ctx, `
		INSERT INTO player_stats (player_id, games_played, games_won, current_streak, max_streak,
		                          dist_1, dist_2, dist_3, dist_4, dist_5, dist_6,
		                          last_played_date, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(player_id) DO UPDATE SET
			games_played=excluded.games_played,
			games_won=excluded.games_won,
			current_streak=excluded.current_streak,
			max_streak=excluded.max_streak,
			dist_1=excluded.dist_1, dist_2=excluded.dist_2, dist_3=excluded.dist_3,
			dist_4=excluded.dist_4, dist_5=excluded.dist_5, dist_6=excluded.dist_6,
			last_played_date=excluded.last_played_date,
			updated_at=excluded.updated_at`,
		playerID, st.GamesPlayed, st.GamesWon, st.CurrentStreak, st.MaxStreak,
		d[0], d[1], d[2], d[3], d[4], d[5],
		st.LastPlayedDate, now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put stats: %w", err)
	}
	return nil
}

// Record applies one finished game to the player's stats and returns the
// new totals.
func (s *Store) Record(ctx context.Context, playerID string, won bool, attempts int, now time.Time) (Stats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := get(ctx, tx, playerID)
	if err != nil {
		return Stats{}, err
	}
	next := cur.Record(won, attempts, Today(now))
	if err := put(ctx, tx, playerID, next, now); err != nil {
		return Stats{}, err
	}
	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit stats: %w", err)
	}
	return next, nil
}

// Reset clears the player's stats. History rows are kept.
func (s *Store) Reset(ctx context.Context, playerID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM player_stats WHERE player_id=?`, playerID); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}
	return nil
}

// SaveGame appends a finished game to the history. An empty ID is filled in.
func (s *Store) SaveGame(ctx context.Context, g GameRecord) (GameRecord, error) {
	if g.Status != game.StatusWon && g.Status != game.StatusLost {
		return GameRecord{}, fmt.Errorf("save game: status %q is not final", g.Status)
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, session_id, player_id, status, attempts, target, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		g.ID, g.SessionID, g.PlayerID, string(g.Status), g.Attempts, g.Target,
		g.StartedAt.UTC().Format(tsLayout), g.FinishedAt.UTC().Format(tsLayout),
	)
	if err != nil {
		return GameRecord{}, fmt.Errorf("save game: %w", err)
	}
	return g, nil
}

// RecentGames lists the player's finished games, newest first.
func (s *Store) RecentGames(ctx context.Context, playerID string, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, player_id, status, attempts, target, started_at, finished_at
		FROM games
		WHERE player_id=?
		ORDER BY finished_at DESC
		LIMIT ?`, playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent games: %w", err)
	}
	defer rows.Close()

	out := []GameRecord{}
	for rows.Next() {
		var (
			g                 GameRecord
			status            string
			started, finished string
		)
		if err := rows.Scan(&g.ID, &g.SessionID, &g.PlayerID, &status, &g.Attempts, &g.Target, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g.Status = game.Status(status)
		var err error
		if g.StartedAt, err = time.Parse(tsLayout, started); err != nil {
			return nil, fmt.Errorf("game %s started_at: %w", g.ID, err)
		}
		if g.FinishedAt, err = time.Parse(tsLayout, finished); err != nil {
			return nil, fmt.Errorf("game %s finished_at: %w", g.ID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Claim moves everything recorded under fromID (an anonymous player) to toID.
func (s *Store) Claim(ctx context.Context, fromID, toID string, now time.Time) error {
	if fromID == "" || toID == "" || fromID == toID {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE games SET player_id=? WHERE player_id=?`, toID, fromID); err != nil {
		return fmt.Errorf("claim games: %w", err)
	}

	from, err := get(ctx, tx, fromID)
	if err != nil {
		return err
	}
	if from.GamesPlayed > 0 {
		to, err := get(ctx, tx, toID)
		if err != nil {
			return err
		}
		if err := put(ctx, tx, toID, to.Merge(from), now); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM player_stats WHERE player_id=?`, fromID); err != nil {
		return fmt.Errorf("claim stats: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit claim: %w", err)
	}
	return nil
}
