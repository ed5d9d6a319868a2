package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a…@e….com", MaskEmail(" Alice@Example.com "))
	assert.Equal(t, "a@e….org", MaskEmail("a@ex.org"))
	assert.Equal(t, "***", MaskEmail("bob"))
	assert.Equal(t, "", MaskEmail(""))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("short"))
	assert.Equal(t, "ab…yz", MaskSecret("abcdefghijklmnopqrstuvwxyz"))
}
