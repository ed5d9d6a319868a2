package issuer

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Store
	issuer *Issuer
	alice  *repository.User
	bob    *repository.User
	client *repository.Client
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	alice := &repository.User{Username: "alice", Email: "alice@example.com", FirstName: "Alice", LastName: "Smith", IsActive: true}
	bob := &repository.User{Username: "bob", Email: "bob@example.com", FirstName: "Bob", IsActive: true}
	require.NoError(t, st.Users().Create(ctx, alice))
	require.NoError(t, st.Users().Create(ctx, bob))

	c := &repository.Client{ClientID: "cid", ClientSecret: "s3cret", RedirectURI: "https://rp.example.com/cb", Type: repository.ClientTypeConfidential}
	require.NoError(t, st.Clients().Create(ctx, c))

	iss, err := New(Config{
		Registry:         scope.Default(),
		Issuer:           "https://example.com/",
		CollectorOptions: []claims.Option{claims.WithClock(func() time.Time { return fixedNow })},
	})
	require.NoError(t, err)
	return &fixture{store: st, issuer: iss, alice: alice, bob: bob, client: c}
}

func (f *fixture) token(t *testing.T, u *repository.User, bits scope.Bits) *repository.AccessToken {
	t.Helper()
	at := &repository.AccessToken{Token: "tok-" + u.Username, User: u, Client: f.client, Scope: bits, ExpiresAt: fixedNow.Add(time.Hour)}
	require.NoError(t, f.store.AccessTokens().Create(context.Background(), at))
	return at
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestBuildIDToken_Alice(t *testing.T) {
	f := setup(t)
	at := f.token(t, f.alice, scope.OpenID|scope.Profile)

	idt, err := f.issuer.BuildIDToken(context.Background(), at, "n-0S6_WzA2Mj", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"openid", "profile"}, idt.Scopes)
	c := idt.Claims
	assert.Equal(t, "https://example.com/", c["iss"])
	assert.Equal(t, "1", c["sub"])
	assert.Equal(t, "cid", c["aud"])
	assert.Equal(t, "Alice Smith", c["name"])
	assert.Equal(t, "alice", c["preferred_username"])
	assert.Equal(t, "Alice", c["given_name"])
	assert.Equal(t, "Smith", c["family_name"])
	assert.Equal(t, "n-0S6_WzA2Mj", c["nonce"])
	assert.Equal(t, fixedNow.Unix(), c["iat"])
	assert.Equal(t, fixedNow.Unix()+30, c["exp"])
	assert.NotContains(t, c, "email")
}

func TestBuildIDToken_RequiredClaimsAlwaysPresent(t *testing.T) {
	f := setup(t)
	at := f.token(t, f.alice, scope.None)

	param, err := claims.ParseParameter(`{"id_token": {"email": null, "unknown": {"essential": true}}}`)
	require.NoError(t, err)

	idt, err := f.issuer.BuildIDToken(context.Background(), at, "", param)
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, idt.Scopes)
	assert.ElementsMatch(t, []string{"iss", "sub", "aud", "iat", "exp"}, keys(idt.Claims))
}

func TestBuildIDToken_ScopeClaimSets(t *testing.T) {
	f := setup(t)
	base := []string{"iss", "sub", "aud", "iat", "exp"}
	profile := []string{"name", "family_name", "given_name", "preferred_username"}

	cases := []struct {
		name string
		bits scope.Bits
		want []string
	}{
		{"none", scope.OpenID, base},
		{"profile", scope.OpenID | scope.Profile, append(append([]string{}, base...), profile...)},
		{"email", scope.OpenID | scope.Email, append(append([]string{}, base...), "email")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			at := &repository.AccessToken{User: f.alice, Client: f.client, Scope: tc.bits}
			idt, err := f.issuer.BuildIDToken(context.Background(), at, "", nil)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.want, keys(idt.Claims))
		})
	}
}

func TestBuildIDToken_StableSub(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := &repository.AccessToken{User: f.alice, Client: f.client, Scope: scope.OpenID}
	b := &repository.AccessToken{User: f.bob, Client: f.client, Scope: scope.OpenID}

	a1, err := f.issuer.BuildIDToken(ctx, a, "", nil)
	require.NoError(t, err)
	a2, err := f.issuer.BuildIDToken(ctx, a, "", nil)
	require.NoError(t, err)
	b1, err := f.issuer.BuildIDToken(ctx, b, "", nil)
	require.NoError(t, err)

	assert.Equal(t, a1.Claims["sub"], a2.Claims["sub"])
	assert.NotEqual(t, a1.Claims["sub"], b1.Claims["sub"])
}

func TestBuildIDToken_IdempotentEncoding(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	at := &repository.AccessToken{User: f.alice, Client: f.client, Scope: scope.OpenID | scope.Profile | scope.Email}

	first, err := f.issuer.BuildIDToken(ctx, at, "abc", nil)
	require.NoError(t, err)
	second, err := f.issuer.BuildIDToken(ctx, at, "abc", nil)
	require.NoError(t, err)
	assert.Equal(t, first.Claims, second.Claims)

	e1, err := first.Encode(jwt.HMAC{}, jwt.DefaultAlg)
	require.NoError(t, err)
	e2, err := second.Encode(jwt.HMAC{}, jwt.DefaultAlg)
	require.NoError(t, err)
	assert.Equal(t, e1, e2)

	decoded, err := jwt.Decode(e1, "s3cret", jwt.DefaultAlg)
	require.NoError(t, err)
	assert.Equal(t, "alice", decoded["preferred_username"])
}

func TestBuildIDToken_InvalidClaims(t *testing.T) {
	f := setup(t)
	at := &repository.AccessToken{User: f.alice, Client: f.client, Scope: scope.OpenID}
	param := claims.Parameter{"id_token": map[string]any{"sub": map[string]any{"bogus": 1}}}

	_, err := f.issuer.BuildIDToken(context.Background(), at, "", param)
	assert.ErrorIs(t, err, claims.ErrInvalidClaim)
}

func TestBuildUserInfo(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	at := &repository.AccessToken{User: f.alice, Client: f.client, Scope: scope.OpenID | scope.Profile | scope.Email}

	// sin scope ni claims: todo lo del token
	ui, err := f.issuer.BuildUserInfo(ctx, at, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sub", "name", "family_name", "given_name", "preferred_username", "email"}, keys(ui.Claims))

	ui, err = f.issuer.BuildUserInfo(ctx, at, []string{"openid", "email"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "email"}, ui.Scopes)
	assert.ElementsMatch(t, []string{"sub", "email"}, keys(ui.Claims))

	param := claims.Parameter{"userinfo": map[string]any{"given_name": nil}}
	ui, err = f.issuer.BuildUserInfo(ctx, at, nil, param)
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, ui.Scopes)
	assert.ElementsMatch(t, []string{"sub", "given_name"}, keys(ui.Claims))
}

func TestIssueAccessTokenScope(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	bits, err := f.issuer.IssueAccessTokenScope(ctx, scope.OpenID|scope.Profile|scope.CourseStaff, f.alice, f.client)
	require.NoError(t, err)
	assert.Equal(t, scope.OpenID|scope.Profile, bits)

	bits, err = f.issuer.IssueAccessTokenScope(ctx, scope.Profile|scope.CourseStaff, f.alice, f.client)
	require.NoError(t, err)
	assert.Equal(t, scope.Profile|scope.CourseStaff, bits)
}

func TestResponseData(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	at := f.token(t, f.alice, scope.OpenID|scope.Email|scope.Permissions)

	param, err := claims.ParseParameter(`{"id_token": {"email": {"essential": true}}}`)
	require.NoError(t, err)
	data, err := f.issuer.ResponseData(ctx, at, "xyz", param)
	require.NoError(t, err)
	assert.Equal(t, "openid email", data["scope"])
	require.IsType(t, "", data["id_token"])

	decoded, err := jwt.Decode(data["id_token"].(string), "s3cret", jwt.DefaultAlg)
	require.NoError(t, err)
	assert.Equal(t, "xyz", decoded["nonce"])
	assert.Equal(t, "alice@example.com", decoded["email"])
	assert.Equal(t, scope.OpenID|scope.Email, at.Scope)
}

func TestResponseData_PlainOAuth2(t *testing.T) {
	f := setup(t)
	at := f.token(t, f.bob, scope.Profile)

	data, err := f.issuer.ResponseData(context.Background(), at, "", nil)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, scope.Profile, at.Scope)
}

func TestSupportedClaims(t *testing.T) {
	f := setup(t)
	assert.Subset(t, f.issuer.SupportedClaims(), []string{"sub", "iss", "email", "name", "nonce"})
}
