package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() *Store {
	return NewStore(memory.New(time.Hour, ""), time.Hour)
}

func TestCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	sess, err := s.Create(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, sess.ID, got.ID)

	require.NoError(t, s.Delete(ctx, sess.ID))
	_, err = s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_Unknown(t *testing.T) {
	_, err := newStore().Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = newStore().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_Expired(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sess, err := s.Create(ctx, 1)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddAuthorizedClient_OrderedSet(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sess, err := s.Create(ctx, 7)
	require.NoError(t, err)

	for _, c := range []string{"b", "a", "b", "c", "a"} {
		require.NoError(t, s.AddAuthorizedClient(ctx, sess.ID, c))
	}
	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, got.AuthorizedClients)

	assert.ErrorIs(t, s.AddAuthorizedClient(ctx, "missing", "x"), ErrNotFound)
}

func TestCookie(t *testing.T) {
	cfg := CookieConfig{SameSite: "strict", Secure: true}
	ck := cfg.Cookie("abc", time.Hour)
	assert.Equal(t, DefaultCookieName, ck.Name)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, 3600, ck.MaxAge)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", cfg.SID(r))
	r.AddCookie(ck)
	assert.Equal(t, "abc", cfg.SID(r))

	assert.Equal(t, -1, cfg.Deletion().MaxAge)
}
