package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Cristianojr9/palavreco/internal/database"
)

func newTestUsers(t *testing.T) *Users {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return NewUsers(db).WithCost(bcrypt.MinCost)
}

func TestValidateSignup(t *testing.T) {
	tests := []struct {
		name     string
		user, pw string
		ok       bool
	}{
		{"valid", "ana_1", "password1", true},
		{"short name", "an", "password1", false},
		{"long name", strings.Repeat("a", 25), "password1", false},
		{"bad chars", "ana-1", "password1", false},
		{"accented", "joão", "password1", false},
		{"short password", "ana", "short", false},
		{"long password", "ana", strings.Repeat("p", 101), false},
		{"edges", "abc", "12345678", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignup(tt.user, tt.pw)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	users := newTestUsers(t)

	u, err := users.Create(ctx, "  Ana ", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Username)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "password1", u.PasswordHash)

	_, err = users.Create(ctx, "ANA", "password2")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	got, err := users.Authenticate(ctx, "ana", "password1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.Authenticate(ctx, "ana", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = users.Authenticate(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	byID, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", byID.Username)
	assert.True(t, u.CreatedAt.Equal(byID.CreatedAt))

	_, err = users.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUsersRejectCorruptCreatedAt(t *testing.T) {
	ctx := context.Background()
	users := newTestUsers(t)
	_, err := users.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ('u1', 'bia', 'x', 'not-a-time')`)
	require.NoError(t, err)

	_, err = users.FindByID(ctx, "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.Contains(t, err.Error(), "created_at")
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	raw, exp, err := tokens.Sign("id-1", "ana")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "id-1", c.ID)
	assert.Equal(t, "ana", c.Username)

	_, err = NewTokens("other", time.Hour).Parse(raw)
	assert.Error(t, err, "wrong secret")

	_, err = tokens.Parse("not-a-token")
	assert.Error(t, err)
}

func TestTokensExpire(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	raw, _, err := tokens.Sign("id-1", "ana")
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokensRejectOtherAlgorithms(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{ID: "id-1", Username: "ana"})
	raw, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokens("secret", time.Hour).Parse(raw)
	assert.Error(t, err)
}

func TestBearerOrCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", BearerOrCookie(r, "tok"))

	r.AddCookie(&http.Cookie{Name: "tok", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", BearerOrCookie(r, "tok"))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", BearerOrCookie(r, "tok"), "header wins")
}

type fakeLookup map[string]*User

func (f fakeLookup) FindByID(_ context.Context, id string) (*User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	users := fakeLookup{"id-1": {ID: "id-1", Username: "ana"}}
	good, _, err := tokens.Sign("id-1", "ana")
	require.NoError(t, err)
	gone, _, err := tokens.Sign("id-2", "bob")
	require.NoError(t, err)

	var seen *Identity
	h := Optional(tokens, users, "tok")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	gated := Optional(tokens, users, "tok")(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	tests := []struct {
		name   string
		token  string
		want   *Identity
		status int
	}{
		{"guest", "", nil, http.StatusUnauthorized},
		{"valid", good, &Identity{ID: "id-1", Username: "ana"}, http.StatusTeapot},
		{"deleted user", gone, nil, http.StatusUnauthorized},
		{"garbage", "xyz", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				if tt.token != "" {
					r.Header.Set("Authorization", "Bearer "+tt.token)
				}
				return r
			}

			seen = nil
			h.ServeHTTP(httptest.NewRecorder(), req())
			assert.Equal(t, tt.want, seen)

			rec := httptest.NewRecorder()
			gated.ServeHTTP(rec, req())
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
