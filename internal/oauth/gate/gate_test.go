package gate

import (
	"context"
	"testing"
	"time"

	cachemem "github.com/dropDatabas3/hellojohn-oidc/internal/cache/memory"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	"github.com/dropDatabas3/hellojohn-oidc/internal/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	sessions *session.Store
	gate     *Gate
	user     *repository.User
	client   *repository.Client
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	u := &repository.User{Username: "alice", Email: "alice@example.com", IsActive: true}
	require.NoError(t, st.Users().Create(ctx, u))
	c := &repository.Client{ClientID: "cid", ClientSecret: "sec", RedirectURI: "https://rp.example.com/cb", Type: repository.ClientTypeConfidential}
	require.NoError(t, st.Clients().Create(ctx, c))

	sessions := session.NewStore(cachemem.New(time.Hour, ""), time.Hour)
	g := New(Deps{
		Registry: scope.Default(),
		Trusted:  st.TrustedClients(),
		Tokens:   st.AccessTokens(),
		Sessions: sessions,
		Now:      func() time.Time { return now },
	})
	return &fixture{store: st, sessions: sessions, gate: g, user: u, client: c}
}

func (f *fixture) token(t *testing.T, raw string, exp time.Time) {
	t.Helper()
	err := f.store.AccessTokens().Create(context.Background(), &repository.AccessToken{
		Token: raw, User: f.user, Client: f.client, Scope: scope.OpenID, ExpiresAt: exp,
	})
	require.NoError(t, err)
}

func TestDecideConsent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d, err := f.gate.DecideConsent(ctx, f.client, []string{"email", "openid"})
	require.NoError(t, err)
	assert.False(t, d.AutoApprove)
	assert.Equal(t, []string{"openid", "email"}, d.Scopes)

	require.NoError(t, f.store.TrustedClients().Trust(ctx, "cid"))
	d, err = f.gate.DecideConsent(ctx, f.client, []string{"openid"})
	require.NoError(t, err)
	assert.True(t, d.AutoApprove)

	_, err = f.gate.DecideConsent(ctx, f.client, []string{"openid", "bogus"})
	assert.ErrorIs(t, err, scope.ErrUnknownScope)
}

func TestAuthenticateBearer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.token(t, "good", now.Add(time.Hour))
	f.token(t, "old", now.Add(-time.Second))

	_, err := f.gate.AuthenticateBearer(ctx, "")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.gate.AuthenticateBearer(ctx, "unknown")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.gate.AuthenticateBearer(ctx, "old")
	assert.ErrorIs(t, err, ErrInvalidToken)

	at, err := f.gate.AuthenticateBearer(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "alice", at.User.Username)
	assert.Equal(t, "cid", at.Client.ClientID)
}

func TestRememberAuthorizedClient(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sess, err := f.sessions.Create(ctx, f.user.ID)
	require.NoError(t, err)

	require.NoError(t, f.gate.RememberAuthorizedClient(ctx, sess.ID, "cid"))
	require.NoError(t, f.gate.RememberAuthorizedClient(ctx, sess.ID, "cid"))
	require.NoError(t, f.gate.RememberAuthorizedClient(ctx, "", "cid"))
	require.NoError(t, f.gate.RememberAuthorizedClient(ctx, "gone", "cid"))

	got, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cid"}, got.AuthorizedClients)
}

func TestParseBearer(t *testing.T) {
	assert.Equal(t, "abc", ParseBearer("Bearer abc"))
	assert.Equal(t, "abc", ParseBearer("bearer   abc "))
	assert.Equal(t, "Basic abc", ParseBearer("Basic abc"))
	assert.Equal(t, "", ParseBearer(""))
	assert.Equal(t, "", ParseBearer("Bearer "))
}
