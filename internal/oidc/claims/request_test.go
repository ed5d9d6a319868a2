package claims

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	req, err := ValidateRequest(map[string]any{
		"sub":   nil,
		"email": map[string]any{"essential": true},
		"nonce": map[string]any{"value": "abc"},
		"test":  map[string]any{"values": []any{1.0, 2.0}},
	}, false)
	require.NoError(t, err)

	assert.Nil(t, req["sub"])
	assert.Equal(t, &ClaimRequest{Essential: true}, req["email"])
	assert.Equal(t, &ClaimRequest{Value: "abc"}, req["nonce"])
	assert.Equal(t, &ClaimRequest{Values: []any{1.0, 2.0}}, req["test"])
}

func TestValidateRequest_Nil(t *testing.T) {
	req, err := ValidateRequest(nil, false)
	require.NoError(t, err)
	assert.Empty(t, req)
}

func TestValidateRequest_Strict(t *testing.T) {
	cases := map[string]struct {
		in  map[string]any
		msg string
	}{
		"non object":  {map[string]any{"email": "yes"}, "Invalid claim email."},
		"unknown key": {map[string]any{"email": map[string]any{"foo": 1}}, "Unknown attribute foo in claim value email."},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateRequest(tc.in, false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidClaim))
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestValidateRequest_StrictKeepsRecognizedKeys(t *testing.T) {
	req, err := ValidateRequest(map[string]any{
		"email":    map[string]any{"essential": "true", "values": "a@b"},
		"name":     map[string]any{"essential": 1.0},
		"nickname": map[string]any{"essential": "nope", "value": 3.0},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, &ClaimRequest{Essential: true, Values: []any{"a@b"}}, req["email"])
	assert.Equal(t, &ClaimRequest{Essential: true}, req["name"])
	assert.Equal(t, &ClaimRequest{Value: 3.0}, req["nickname"])
}

func TestValidateRequest_Lenient(t *testing.T) {
	req, err := ValidateRequest(map[string]any{
		"email": "yes",
		"name":  map[string]any{"foo": 1, "essential": true},
	}, true)
	require.NoError(t, err)
	assert.NotContains(t, req, "email")
	assert.Equal(t, &ClaimRequest{Essential: true}, req["name"])
}

func TestParseParameter(t *testing.T) {
	p, err := ParseParameter(`{"userinfo": {"email": null}, "id_token": {"test": {"essential": true}}}`)
	require.NoError(t, err)

	ui, err := p.Section(SectionUserInfo)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"email": nil}, ui)

	idt, err := p.Section(SectionIDToken)
	require.NoError(t, err)
	assert.Contains(t, idt, "test")

	// La sección es una copia.
	idt["nonce"] = map[string]any{"value": "x"}
	again, _ := p.Section(SectionIDToken)
	assert.NotContains(t, again, "nonce")

	empty, err := ParseParameter("  ")
	require.NoError(t, err)
	s, err := empty.Section(SectionUserInfo)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestParseParameter_Errors(t *testing.T) {
	_, err := ParseParameter("{not json")
	assert.ErrorIs(t, err, ErrInvalidClaim)

	p, err := ParseParameter(`{"userinfo": [1,2]}`)
	require.NoError(t, err)
	_, err = p.Section(SectionUserInfo)
	assert.ErrorIs(t, err, ErrInvalidClaim)
}
