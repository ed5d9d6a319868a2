package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerify(t *testing.T) {
	phc, err := Hash(Fast, "pa55word")
	require.NoError(t, err)
	assert.Contains(t, phc, "$argon2id$v=19$m=8192,t=1,p=1$")

	assert.True(t, Verify("pa55word", phc))
	assert.False(t, Verify("wrong", phc))
	assert.False(t, Verify("pa55word", ""))
	assert.False(t, Verify("pa55word", "$argon2id$v=19$m=1,t=1,p=1$onlysalt"))
}

func TestHashEmpty(t *testing.T) {
	_, err := Hash(Fast, "")
	assert.ErrorIs(t, err, ErrEmpty)
}
