package claims

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicIDTokenHandler(t *testing.T) {
	h := BasicIDTokenHandler(Env{Now: fixedNow, Issuer: "https://example.com/oauth2", IDTokenTTL: time.Minute})
	ctx := context.Background()
	s := alice()

	names, ok := h.Scopes["openid"](ctx, s)
	require.True(t, ok)
	assert.Equal(t, []string{"iss", "sub", "aud", "iat", "exp", "nonce"}, names)

	iat, _ := h.Claims["iat"](ctx, s, nil)
	exp, _ := h.Claims["exp"](ctx, s, nil)
	assert.Equal(t, fixedNow.Unix(), iat)
	assert.Equal(t, fixedNow.Unix()+60, exp)

	nonce, _ := h.Claims["nonce"](ctx, s, nil)
	assert.Nil(t, nonce)
	nonce, _ = h.Claims["nonce"](ctx, s, &ClaimRequest{Value: "n"})
	assert.Equal(t, "n", nonce)
}

func TestBasicIDTokenHandler_DefaultTTL(t *testing.T) {
	h := BasicIDTokenHandler(Env{Now: fixedNow})
	exp, _ := h.Claims["exp"](context.Background(), alice(), nil)
	assert.Equal(t, fixedNow.Unix()+30, exp)

	iss, _ := h.Claims["iss"](context.Background(), alice(), nil)
	assert.Nil(t, iss, "sin issuer configurado se omite")
}

func TestProfileHandler_FullNameTrimmed(t *testing.T) {
	h := ProfileHandler(Env{})
	s := Subject{User: &repository.User{ID: 7, FirstName: "", LastName: "Solo"}}
	v, err := h.Claims["name"](context.Background(), s, nil)
	require.NoError(t, err)
	assert.Equal(t, "Solo", v)
}

func TestHandlersWithoutUser(t *testing.T) {
	h := EmailHandler(Env{})
	v, err := h.Claims["email"](context.Background(), Subject{}, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{"basic_id_token", "basic_userinfo", "email", "profile"}, c.Names())

	fs, err := c.Resolve(DefaultUserInfoHandlers...)
	require.NoError(t, err)
	assert.Len(t, fs, 3)
	assert.Equal(t, HandlerBasicUserInfo, fs[0](Env{}).Name)

	_, err = c.Resolve("nope")
	assert.Error(t, err)

	c.Register("dummy", dummyHandler)
	fs, err = c.Resolve("dummy")
	require.NoError(t, err)
	assert.Equal(t, []string{"test"}, fs[0](Env{}).ClaimNames())
	assert.Equal(t, []string{"profile"}, fs[0](Env{}).ScopeNames())
}
