package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellojohn-oidc/internal/security/password"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store/memory"
)

func newProvisioner(t *testing.T) (*Provisioner, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st, password.Fast), st
}

func TestCreateClient_Validation(t *testing.T) {
	p, _ := newProvisioner(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   ClientInput
		want error
	}{
		{"bad url", ClientInput{URL: "nope", RedirectURI: "https://rp.example.com/cb", Type: "public"}, ErrInvalidURLs},
		{"bad redirect", ClientInput{URL: "https://rp.example.com", RedirectURI: "cb", Type: "public"}, ErrInvalidURLs},
		{"bad type", ClientInput{URL: "https://rp.example.com", RedirectURI: "https://rp.example.com/cb", Type: "secret"}, ErrInvalidClientType},
		{"bad logout", ClientInput{URL: "https://rp.example.com", RedirectURI: "https://rp.example.com/cb", Type: "public", LogoutURI: "x"}, ErrInvalidLogoutURI},
		{"bad client id", ClientInput{URL: "https://rp.example.com", RedirectURI: "https://rp.example.com/cb", Type: "public", ClientID: "a b"}, ErrInvalidClientID},
		{"unknown user", ClientInput{URL: "https://rp.example.com", RedirectURI: "https://rp.example.com/cb", Type: "public", Username: "ghost"}, ErrUnknownUser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.CreateClient(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateClient_GeneratesCredentials(t *testing.T) {
	p, st := newProvisioner(t)
	ctx := context.Background()

	out, err := p.CreateClient(ctx, ClientInput{
		URL: "https://rp.example.com", RedirectURI: "https://rp.example.com/cb", Type: "Confidential", Trusted: true,
	})
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Len(t, out.ClientID, 32)
	assert.Len(t, out.ClientSecret, 64)
	assert.Equal(t, "confidential", out.ClientType)
	assert.Nil(t, out.User)

	trusted, err := st.TrustedClients().IsTrusted(ctx, out.ClientID)
	require.NoError(t, err)
	assert.True(t, trusted)
}

func TestCreateClient_UpsertsByClientID(t *testing.T) {
	p, st := newProvisioner(t)
	ctx := context.Background()

	u, err := p.CreateUser(ctx, UserInput{Username: "owner", Password: "pw"})
	require.NoError(t, err)

	first, err := p.CreateClient(ctx, ClientInput{
		URL: "https://rp.example.com", RedirectURI: "https://rp.example.com/cb", Type: "confidential",
		ClientID: "rp", ClientSecret: "s3cret", Name: "RP", Trusted: true,
	})
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := p.CreateClient(ctx, ClientInput{
		URL: "https://rp2.example.com", RedirectURI: "https://rp2.example.com/cb", Type: "public",
		ClientID: "rp", Username: "owner", LogoutURI: "https://rp2.example.com/logout",
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, "s3cret", second.ClientSecret)
	assert.Equal(t, "RP", second.Name)
	require.NotNil(t, second.User)
	assert.Equal(t, u.ID, *second.User)

	c, err := st.Clients().Get(ctx, "rp")
	require.NoError(t, err)
	assert.Equal(t, "https://rp2.example.com/cb", c.RedirectURI)
	assert.Equal(t, "public", c.Type)
	assert.Equal(t, "https://rp2.example.com/logout", c.LogoutURI)

	trusted, err := st.TrustedClients().IsTrusted(ctx, "rp")
	require.NoError(t, err)
	assert.False(t, trusted, "sin -t se quita la confianza")
}

func TestCreateUser(t *testing.T) {
	p, st := newProvisioner(t)
	ctx := context.Background()

	_, err := p.CreateUser(ctx, UserInput{Username: "alice"})
	assert.ErrorIs(t, err, ErrMissingUserFields)

	u, err := p.CreateUser(ctx, UserInput{Username: "alice", Email: "alice@example.com", Password: "pw", Inactive: true})
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	got, err := st.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, password.Verify("pw", got.PasswordHash))

	_, err = p.CreateUser(ctx, UserInput{Username: "alice", Password: "pw"})
	assert.Error(t, err)
}
