package domain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewHash(t *testing.T) {
	hash, err := NewHash(bytes.NewBufferString("hello"))
	require.Nil(t, err)

	assert.Equal(t, Hash("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"), hash)
	assert.True(t, hash.EqualsHex("2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824\n"))
	assert.False(t, hash.EqualsHex("2cf24d"))
}
