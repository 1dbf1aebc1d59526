package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestDecode(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	id, err := Decode(signed(t, jwt.MapClaims{"handle": "alice", "userId": 4242, "exp": exp.Unix()}))
	require.NoError(t, err)
	require.Equal(t, "alice", id.Handle)
	require.Equal(t, "4242", id.UserID)
	require.True(t, exp.Equal(id.ExpiresAt))

	id, err = Decode(signed(t, jwt.MapClaims{
		"https://platform.example/handle": "bob",
		"https://platform.example/userId": "77",
	}))
	require.NoError(t, err)
	require.Equal(t, "bob", id.Handle)
	require.Equal(t, "77", id.UserID)
	require.True(t, id.ExpiresAt.IsZero())
}

func TestDecodeRejects(t *testing.T) {
	for name, tok := range map[string]string{
		"garbage":        "not-a-jwt",
		"empty":          "",
		"missing handle": signed(t, jwt.MapClaims{"userId": "1"}),
		"missing userId": signed(t, jwt.MapClaims{"handle": "a"}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tok)
			require.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestIdentityExpired(t *testing.T) {
	now := time.Now()
	require.False(t, Identity{}.Expired(now))
	require.True(t, Identity{ExpiresAt: now}.Expired(now))
	require.False(t, Identity{ExpiresAt: now.Add(time.Minute)}.Expired(now))
}

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	s := NewStore(path)

	tok, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, tok)

	require.NoError(t, s.Save("  abc.def.ghi \n"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err = s.Load()
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", tok)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	require.NoFileExists(t, path)
}

func TestProviderValidToken(t *testing.T) {
	stored := signed(t, jwt.MapClaims{"handle": "alice", "userId": "1", "exp": time.Now().Add(time.Hour).Unix()})
	fromEnv := signed(t, jwt.MapClaims{"handle": "ci-bot", "userId": "2"})

	store := NewStore(filepath.Join(t.TempDir(), "token"))
	p := NewProvider(store, "TCIDE_TOKEN")
	env := map[string]string{}
	p.getenv = func(k string) string { return env[k] }

	_, _, err := p.ValidToken(t.Context())
	require.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, store.Save(stored))
	tok, id, err := p.ValidToken(t.Context())
	require.NoError(t, err)
	require.Equal(t, stored, tok)
	require.Equal(t, "alice", id.Handle)

	env["TCIDE_TOKEN"] = fromEnv
	tok, id, err = p.ValidToken(t.Context())
	require.NoError(t, err)
	require.Equal(t, fromEnv, tok)
	require.Equal(t, "ci-bot", id.Handle)

	delete(env, "TCIDE_TOKEN")
	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, _, err = p.ValidToken(t.Context())
	require.ErrorIs(t, err, ErrTokenExpired)
}
