package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Cristianojr9/palavreco/internal/auth"
	"github.com/Cristianojr9/palavreco/internal/config"
	"github.com/Cristianojr9/palavreco/internal/database"
	"github.com/Cristianojr9/palavreco/internal/game"
	"github.com/Cristianojr9/palavreco/internal/stats"
	"github.com/Cristianojr9/palavreco/internal/store"
	"github.com/Cristianojr9/palavreco/internal/words"
)

func testConfig(policy string) config.Config {
	var c config.Config
	c.Env = "dev"
	c.HTTP.ClientOrigin = "http://localhost:5173"
	c.HTTP.HandlerTimeout = 5 * time.Second
	c.Auth.Secret = "test-secret"
	c.Auth.ExpiresIn = time.Hour
	c.Auth.CookieName = "palavreco_token"
	c.Game.AbsentLetterPolicy = policy
	return c
}

func newTestServer(t *testing.T, policy string) *httptest.Server {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	// Every game targets APOIO.
	wl, err := words.New([]string{"APOIO"}, []string{"ABRIR", "TERRA", "PORTA"})
	require.NoError(t, err)

	cfg := testConfig(policy)
	srv := New(Deps{
		Config:   cfg,
		Words:    wl,
		Sessions: store.NewMemory(time.Hour),
		Stats:    stats.NewStore(db),
		Users:    auth.NewUsers(db).WithCost(bcrypt.MinCost),
		Tokens:   auth.NewTokens(cfg.Auth.Secret, cfg.Auth.ExpiresIn),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// client is one browser: its own cookie jar against a shared server.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, ts *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: ts.URL, http: &http.Client{Jar: jar}}
}

// do sends body as JSON and decodes the answer into out when non-nil.
func (c *client) do(method, path string, body, out any) int {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()
	assert.Contains(c.t, res.Header.Get("Content-Type"), "application/json")
	if out != nil {
		require.NoError(c.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func (c *client) newGame() gameView {
	c.t.Helper()
	var v gameView
	require.Equal(c.t, http.StatusCreated, c.do(http.MethodPost, "/game/new", nil, &v))
	return v
}

func (c *client) letter(id, l string) (commandResult, int) {
	c.t.Helper()
	var res commandResult
	code := c.do(http.MethodPost, "/game/"+id+"/letter", map[string]string{"letter": l}, &res)
	return res, code
}

func (c *client) op(id, op string) commandResult {
	c.t.Helper()
	var res commandResult
	require.Equal(c.t, http.StatusOK, c.do(http.MethodPost, "/game/"+id+"/"+op, nil, &res))
	return res
}

// guess types w and submits it.
func (c *client) guess(id, w string) commandResult {
	c.t.Helper()
	for _, r := range w {
		res, code := c.letter(id, string(r))
		require.Equal(c.t, http.StatusOK, code)
		require.True(c.t, res.Applied, "letter %q", r)
	}
	return c.op(id, "submit")
}

func TestHealthAndDebug(t *testing.T) {
	ts := newTestServer(t, config.AbsentIgnore)
	c := newClient(t, ts)

	var health map[string]bool
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", nil, &health))
	assert.True(t, health["ok"])

	var counts map[string]int
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/debug/words", nil, &counts))
	assert.Equal(t, 1, counts["answers"])
	assert.Equal(t, 4, counts["allowed"])

	var e apiError
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/nope", nil, &e))
	assert.Equal(t, "not_found", e.Error)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, config.AbsentIgnore)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/game/new", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "http://localhost:5173", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))
}

func TestNewGame(t *testing.T) {
	ts := newTestServer(t, config.AbsentIgnore)
	c := newClient(t, ts)

	v := c.newGame()
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, game.StatusPlaying, v.Status)
	assert.Equal(t, 0, v.CurrentRow)
	assert.Empty(t, v.Target, "target stays hidden while playing")
	assert.NotNil(t, v.KeyStates)

	var got gameView
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/game/"+v.ID, nil, &got))
	assert.Equal(t, v.ID, got.ID)

	other := newClient(t, ts)
	assert.Equal(t, http.StatusNotFound, other.do(http.MethodGet, "/game/"+v.ID, nil, nil), "games are private")
	_, code := other.letter(v.ID, "A")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTypingAndSubmitHints(t *testing.T) {
	ts := newTestServer(t, config.AbsentIgnore)
	c := newClient(t, ts)
	id := c.newGame().ID

	res, code := c.letter(id, "a")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, res.Applied)
	assert.Equal(t, "A", res.Game.CurrentGuess)
	assert.Equal(t, game.LetterState{Letter: "A", Status: game.MarkEmpty}, res.Game.Board[0][0])

	res, code = c.letter(id, "1")
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, res.Applied, "non-letters are ignored")

	_, code = c.letter(id, "ab")
	assert.Equal(t, http.StatusBadRequest, code)

	res = c.op(id, "submit")
	assert.False(t, res.Applied)
	assert.Equal(t, "incomplete_word", res.Hint)

	for _, r := range "ZZZZ" {
		c.letter(id, string(r))
	}
	res = c.op(id, "submit")
	assert.False(t, res.Applied)
	assert.Equal(t, "not_in_word_list", res.Hint)
	assert.Equal(t, "AZZZZ", res.Game.CurrentGuess)

	for i := 0; i < game.Cols; i++ {
		assert.True(t, c.op(id, "backspace").Applied)
	}
	assert.False(t, c.op(id, "backspace").Applied)

	res = c.guess(id, "abrir")
	assert.True(t, res.Applied)
	assert.Empty(t, res.Hint)
	assert.Equal(t, 1, res.Game.CurrentRow)
	assert.Equal(t, game.MarkAbsent, res.Game.KeyStates["B"])
	assert.Equal(t, game.MarkCorrect, res.Game.KeyStates["A"])
	assert.Nil(t, res.Stats)
}

func TestAbsentLetterPolicy(t *testing.T) {
	tests := []struct {
		policy  string
		code    int
		applied bool
		hint    string
	}{
		{config.AbsentAllow, http.StatusOK, true, ""},
		{config.AbsentIgnore, http.StatusOK, false, "letter_absent"},
		{config.AbsentReject, http.StatusUnprocessableEntity, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			ts := newTestServer(t, tt.policy)
			c := newClient(t, ts)
			id := c.newGame().ID
			c.guess(id, "ABRIR")

			res, code := c.letter(id, "b")
			assert.Equal(t, tt.code, code)
			if code == http.StatusOK {
				assert.Equal(t, tt.applied, res.Applied)
				assert.Equal(t, tt.hint, res.Hint)
			}

			// Letters not known to be absent are unaffected.
			res, code = c.letter(id, "p")
			assert.Equal(t, http.StatusOK, code)
			assert.True(t, res.Applied)
		})
	}
}

func TestWinRecordsStatsAndHistory(t *testing.T) {
	ts := newTestServer(t, config.AbsentIgnore)
	c := newClient(t, ts)
	id := c.newGame().ID

	c.guess(id, "TERRA")
	res := c.guess(id, "APOIO")
	assert.True(t, res.Applied)
	assert.Equal(t, game.StatusWon, res.Game.Status)
	assert.Equal(t, "APOIO", res.Game.Target, "target revealed once finished")
	require.NotNil(t, res.Stats)
	assert.Equal(t, 1, res.Stats.GamesWon)
	assert.Equal(t, 1, res.Stats.GuessDistribution[1])

	// Terminal state: commands are no-ops and record nothing more.
	r2, _ := c.letter(id, "A")
	assert.False(t, r2.Applied)
	r3 := c.op(id, "submit")
	assert.False(t, r3.Applied)
	assert.Nil(t, r3.Stats)

	var st stats.Stats
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/stats/me", nil, &st))
	assert.Equal(t, 1, st.GamesPlayed)
	assert.Equal(t, 100, st.WinPercentage)
	assert.Equal(t, 1, st.CurrentStreak)

	var games []stats.GameRecord
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/games/mine", nil, &games))
	require.Len(t, games, 1)
	assert.Equal(t, game.StatusWon, games[0].Status)
	assert.Equal(t, 2, games[0].Attempts)
	assert.Equal(t, id, games[0].SessionID)

	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/stats/me", nil, &st))
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/stats/me", nil, &st))
	assert.Equal(t, stats.Stats{}, st)
}

func TestLossAndReset(t *testing.T) {
	ts := newTestServer(t, config.AbsentAllow)
	c := newClient(t, ts)
	v := c.newGame()

	var res commandResult
	for i := 0; i < game.Rows; i++ {
		res = c.guess(v.ID, "PORTA")
	}
	assert.Equal(t, game.StatusLost, res.Game.Status)
	assert.Equal(t, "APOIO", res.Game.Target)
	require.NotNil(t, res.Stats)
	assert.Equal(t, 0, res.Stats.GamesWon)

	res = c.op(v.ID, "reset")
	assert.True(t, res.Applied)
	assert.Equal(t, v.ID, res.Game.ID, "reset keeps the session id")
	assert.Equal(t, game.StatusPlaying, res.Game.Status)
	assert.Equal(t, 0, res.Game.CurrentRow)
	assert.Empty(t, res.Game.Target)
	assert.Empty(t, res.Game.KeyStates)

	// A second finished game on the same session is a second history row.
	c.guess(v.ID, "APOIO")
	var games []stats.GameRecord
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/games/mine", nil, &games))
	assert.Len(t, games, 2)
}

func TestGuestWithoutCookie(t *testing.T) {
	ts := newTestServer(t, config.AbsentIgnore)
	c := newClient(t, ts)

	var st stats.Stats
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/stats/me", nil, &st))
	assert.Equal(t, stats.Stats{}, st)

	var games []stats.GameRecord
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/games/mine", nil, &games))
	assert.Empty(t, games)

	var e apiError
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/auth/me", nil, &e))
}

func TestSignupLoginAndClaim(t *testing.T) {
	ts := newTestServer(t, config.AbsentIgnore)
	c := newClient(t, ts)

	// Win one game as a guest first.
	id := c.newGame().ID
	c.guess(id, "APOIO")

	var e apiError
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/auth/signup", credentials{"x", "password1"}, &e))
	assert.Equal(t, "invalid_signup", e.Error)

	var me map[string]any
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/auth/signup", credentials{"ana", "password1"}, &me))
	assert.Equal(t, "ana", me["username"])
	assert.NotEmpty(t, me["token"])

	var who auth.Identity
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/auth/me", nil, &who))
	assert.Equal(t, "ana", who.Username)

	var st stats.Stats
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/stats/me", nil, &st))
	assert.Equal(t, 1, st.GamesWon, "guest stats move to the account")

	var games []stats.GameRecord
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/games/mine", nil, &games))
	assert.Len(t, games, 1)

	// The game created as a guest is still reachable while signed in.
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/game/"+id, nil, nil))

	other := newClient(t, ts)
	assert.Equal(t, http.StatusConflict, other.do(http.MethodPost, "/auth/signup", credentials{"ANA", "password2"}, &e))
	assert.Equal(t, http.StatusUnauthorized, other.do(http.MethodPost, "/auth/login", credentials{"ana", "wrong-pass"}, &e))
	assert.Equal(t, "invalid_credentials", e.Error)
	require.Equal(t, http.StatusOK, other.do(http.MethodPost, "/auth/login", credentials{"ana", "password1"}, &me))
	require.Equal(t, http.StatusOK, other.do(http.MethodGet, "/stats/me", nil, &st))
	assert.Equal(t, 1, st.GamesWon, "same account from another browser")

	require.Equal(t, http.StatusOK, other.do(http.MethodPost, "/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, other.do(http.MethodGet, "/auth/me", nil, &e))
}

func TestBearerToken(t *testing.T) {
	ts := newTestServer(t, config.AbsentIgnore)
	c := newClient(t, ts)

	var me map[string]any
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/auth/signup", credentials{"bob_2", "password1"}, &me))
	tok, _ := me["token"].(string)
	require.NotEmpty(t, tok)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
