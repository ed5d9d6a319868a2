package claims

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func alice() Subject {
	return Subject{
		User: &repository.User{
			ID:        1,
			Username:  "alice",
			Email:     "alice@example.com",
			FirstName: "Alice",
			LastName:  "Smith",
			IsActive:  true,
		},
		Client: &repository.Client{ClientID: "cid", ClientSecret: "s3cret", Type: repository.ClientTypeConfidential},
	}
}

// dummyHandler: el claim "test" solo tiene valor si es essential; se intersecta con values.
func dummyHandler(Env) *Handler {
	return &Handler{
		Name:   "dummy",
		Scopes: map[string]ScopeFunc{scope.NameProfile: Static("test")},
		Claims: map[string]ClaimFunc{
			"test": func(_ context.Context, _ Subject, req *ClaimRequest) (any, error) {
				if req == nil || !req.Essential {
					return nil, nil
				}
				out := []int{}
				for i := 0; i < 10; i++ {
					if len(req.Values) == 0 || containsNumber(req.Values, i) {
						out = append(out, i)
					}
				}
				return out, nil
			},
		},
	}
}

func containsNumber(vals []any, n int) bool {
	for _, v := range vals {
		switch x := v.(type) {
		case int:
			if x == n {
				return true
			}
		case float64:
			if x == float64(n) {
				return true
			}
		}
	}
	return false
}

func newTestCollector(factories ...HandlerFactory) *Collector {
	env := Env{Issuer: "https://example.com/oauth2", IDTokenTTL: DefaultIDTokenTTL}
	return NewCollector(scope.Default(), env, factories, WithClock(func() time.Time { return fixedNow }))
}

func idTokenChain() []HandlerFactory {
	return []HandlerFactory{BasicIDTokenHandler, ProfileHandler, EmailHandler}
}

func userInfoChain() []HandlerFactory {
	return []HandlerFactory{BasicUserInfoHandler, ProfileHandler, EmailHandler}
}

func TestCollect_InclusiveAlice(t *testing.T) {
	c := newTestCollector(idTokenChain()...)

	res, err := c.Collect(context.Background(), Input{
		Subject:    alice(),
		TokenScope: scope.OpenID | scope.Profile | scope.Email,
		Inclusive:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"openid", "profile", "email"}, res.Scopes)
	assert.Equal(t, map[string]any{
		"iss":                "https://example.com/oauth2",
		"sub":                "1",
		"aud":                "cid",
		"iat":                fixedNow.Unix(),
		"exp":                fixedNow.Unix() + 30,
		"name":               "Alice Smith",
		"given_name":         "Alice",
		"family_name":        "Smith",
		"preferred_username": "alice",
		"email":              "alice@example.com",
	}, res.Claims)
}

func TestCollect_OpenIDAlwaysAuthorized(t *testing.T) {
	c := newTestCollector(idTokenChain()...)

	res, err := c.Collect(context.Background(), Input{Subject: alice(), TokenScope: 0, Inclusive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, res.Scopes)
	assert.Contains(t, res.Claims, "sub")
	assert.Contains(t, res.Claims, "iss")
	assert.NotContains(t, res.Claims, "nonce", "nonce is omitted without a request value")
}

func TestCollect_Nonce(t *testing.T) {
	c := newTestCollector(idTokenChain()...)

	res, err := c.Collect(context.Background(), Input{
		Subject:    alice(),
		TokenScope: scope.OpenID,
		Inclusive:  true,
		Claims:     map[string]any{"nonce": map[string]any{"value": "n-0S6"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "n-0S6", res.Claims["nonce"])
}

func TestCollect_SelectiveWithoutRequestReturnsOnlyOpenID(t *testing.T) {
	c := newTestCollector(userInfoChain()...)

	res, err := c.Collect(context.Background(), Input{
		Subject:    alice(),
		TokenScope: scope.OpenID | scope.Profile | scope.Email,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, res.Scopes)
	assert.Equal(t, map[string]any{"sub": "1"}, res.Claims)
}

func TestCollect_SelectiveScopeRequest(t *testing.T) {
	c := newTestCollector(userInfoChain()...)

	res, err := c.Collect(context.Background(), Input{
		Subject:      alice(),
		TokenScope:   scope.OpenID | scope.Profile | scope.Email,
		ScopeRequest: []string{"profile"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "profile"}, res.Scopes)
	assert.Equal(t, map[string]any{
		"sub":                "1",
		"name":               "Alice Smith",
		"given_name":         "Alice",
		"family_name":        "Smith",
		"preferred_username": "alice",
	}, res.Claims)
}

func TestCollect_RequestedClaimOnAuthorizedScope(t *testing.T) {
	c := newTestCollector(userInfoChain()...)

	res, err := c.Collect(context.Background(), Input{
		Subject:    alice(),
		TokenScope: scope.OpenID | scope.Email,
		Claims:     map[string]any{"email": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, res.Scopes)
	assert.Equal(t, "alice@example.com", res.Claims["email"])
}

func TestCollect_RequestedClaimWithoutScopeIsDropped(t *testing.T) {
	c := newTestCollector(userInfoChain()...)

	res, err := c.Collect(context.Background(), Input{
		Subject:      alice(),
		TokenScope:   scope.OpenID,
		ScopeRequest: []string{"email"},
		Claims:       map[string]any{"email": nil, "what": map[string]any{"values": []any{"one", "two"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, res.Scopes)
	assert.Equal(t, map[string]any{"sub": "1"}, res.Claims)
}

func TestCollect_HandlerGatesScope(t *testing.T) {
	deny := func(Env) *Handler {
		return &Handler{
			Name: "deny",
			Scopes: map[string]ScopeFunc{
				scope.NameEmail: func(context.Context, Subject) ([]string, bool) { return nil, false },
			},
		}
	}
	c := newTestCollector(BasicIDTokenHandler, deny)

	res, err := c.Collect(context.Background(), Input{
		Subject:    alice(),
		TokenScope: scope.OpenID | scope.Email,
		Inclusive:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, res.Scopes, "token bit alone does not authorize")
	assert.NotContains(t, res.Claims, "email")
}

func TestCollect_EmptyClaimListStillAuthorizes(t *testing.T) {
	bare := func(Env) *Handler {
		return &Handler{Name: "bare", Scopes: map[string]ScopeFunc{scope.NamePermissions: Static()}}
	}
	c := newTestCollector(BasicIDTokenHandler, bare)

	res, err := c.Collect(context.Background(), Input{
		Subject:    alice(),
		TokenScope: scope.OpenID | scope.Permissions,
		Inclusive:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "permissions"}, res.Scopes)
}

func constHandler(name string, v any) HandlerFactory {
	return func(Env) *Handler {
		return &Handler{
			Name:   name,
			Scopes: map[string]ScopeFunc{scope.NameOpenID: Static("x")},
			Claims: map[string]ClaimFunc{
				"x": func(context.Context, Subject, *ClaimRequest) (any, error) { return v, nil },
			},
		}
	}
}

func TestCollect_LastNonNilWins(t *testing.T) {
	c := newTestCollector(constHandler("a", 1), constHandler("b", 2))
	res, err := c.Collect(context.Background(), Input{Subject: alice(), Inclusive: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Claims["x"])

	c = newTestCollector(constHandler("a", 1), constHandler("b", nil))
	res, err = c.Collect(context.Background(), Input{Subject: alice(), Inclusive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Claims["x"], "nil never clears an earlier value")
}

func TestCollect_EssentialValues(t *testing.T) {
	c := newTestCollector(BasicIDTokenHandler, ProfileHandler, dummyHandler)

	res, err := c.Collect(context.Background(), Input{
		Subject:    alice(),
		TokenScope: scope.OpenID | scope.Profile,
		Inclusive:  true,
	})
	require.NoError(t, err)
	assert.NotContains(t, res.Claims, "test")

	res, err = c.Collect(context.Background(), Input{
		Subject:    alice(),
		TokenScope: scope.OpenID | scope.Profile,
		Inclusive:  true,
		Claims: map[string]any{
			"test": map[string]any{"essential": true, "values": []any{2, 6, 8, 12}},
		},
	})
	require.NoError(t, err)
	got := append([]int(nil), res.Claims["test"].([]int)...)
	sort.Ints(got)
	assert.Equal(t, []int{2, 6, 8}, got)
}

func TestCollect_InvalidClaimsRequest(t *testing.T) {
	c := newTestCollector(idTokenChain()...)

	_, err := c.Collect(context.Background(), Input{
		Subject:   alice(),
		Inclusive: true,
		Claims:    map[string]any{"email": map[string]any{"bogus": true}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidClaim))
}

func TestCollect_HandlerError(t *testing.T) {
	boom := func(Env) *Handler {
		return &Handler{
			Name:   "boom",
			Scopes: map[string]ScopeFunc{scope.NameOpenID: Static("x")},
			Claims: map[string]ClaimFunc{
				"x": func(context.Context, Subject, *ClaimRequest) (any, error) { return nil, errors.New("db down") },
			},
		}
	}
	c := newTestCollector(BasicIDTokenHandler, boom)
	_, err := c.Collect(context.Background(), Input{Subject: alice(), Inclusive: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandler)
}

func TestCollect_FrozenClockIsIdempotent(t *testing.T) {
	c := newTestCollector(idTokenChain()...)
	in := Input{Subject: alice(), TokenScope: scope.OpenID | scope.Profile, Inclusive: true}

	a, err := c.Collect(context.Background(), in)
	require.NoError(t, err)
	b, err := c.Collect(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCollect_ConcurrentMatchesSequential(t *testing.T) {
	env := Env{Issuer: "https://example.com/oauth2"}
	clock := WithClock(func() time.Time { return fixedNow })
	chain := []HandlerFactory{BasicIDTokenHandler, ProfileHandler, EmailHandler, constHandler("a", 1), constHandler("b", 2)}

	seq := NewCollector(scope.Default(), env, chain, clock)
	par := NewCollector(scope.Default(), env, chain, clock, WithConcurrency(4))

	in := Input{Subject: alice(), TokenScope: scope.OpenID | scope.Profile | scope.Email, Inclusive: true}
	a, err := seq.Collect(context.Background(), in)
	require.NoError(t, err)
	b, err := par.Collect(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 2, b.Claims["x"])
}

func TestCollect_Observer(t *testing.T) {
	var calls int
	c := NewCollector(scope.Default(), Env{}, idTokenChain(),
		WithObserver(func(time.Duration) { calls++ }))
	_, err := c.Collect(context.Background(), Input{Subject: alice(), Inclusive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestSupportedClaims(t *testing.T) {
	c := newTestCollector(userInfoChain()...)
	assert.Equal(t, []string{"email", "family_name", "given_name", "name", "preferred_username", "sub"}, c.SupportedClaims())
}
