package jwt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	claims := map[string]any{"sub": "1", "aud": "cid", "iat": int64(1700000000)}

	tok, err := Encode(claims, "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(tok, ".")))

	again, err := Encode(claims, "s3cret", "HS256")
	require.NoError(t, err)
	assert.Equal(t, tok, again, "mismas claims y secreto = mismo token")

	got, err := Decode(tok, "s3cret", "HS256")
	require.NoError(t, err)
	assert.Equal(t, "1", got["sub"])
	assert.Equal(t, "cid", got["aud"])
	assert.EqualValues(t, 1700000000, got["iat"])
}

func TestDecode_WrongSecret(t *testing.T) {
	tok, err := HMAC{}.Encode(map[string]any{"sub": "1"}, "a", "HS512")
	require.NoError(t, err)

	_, err = Decode(tok, "b", "HS512")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = Decode(tok, "a", "HS256")
	assert.ErrorIs(t, err, ErrInvalidToken, "algoritmo distinto al esperado")
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(map[string]any{}, "", "HS256")
	assert.ErrorIs(t, err, ErrSigning)

	_, err = Encode(map[string]any{}, "x", "RS256")
	assert.ErrorIs(t, err, ErrSigning)

	_, err = Encode(map[string]any{}, "x", "none")
	assert.ErrorIs(t, err, ErrSigning)
}
