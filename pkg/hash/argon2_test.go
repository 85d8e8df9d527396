package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastConfig = Argon2Config{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestHashAndVerify(t *testing.T) {
	encoded, err := NewHasher(fastConfig).Hash("correct horse")
	require.NoError(t, err)
	assert.Contains(t, encoded, "$argon2id$v=19$m=8192,t=1,p=1$")

	ok, err := NewHasher(fastConfig).Verify("correct horse", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewHasher(fastConfig).Verify("battery staple", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashUsesFreshSalt(t *testing.T) {
	a, err := NewHasher(fastConfig).Hash("same")
	require.NoError(t, err)
	b, err := NewHasher(fastConfig).Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	_, err := NewHasher(fastConfig).Verify("x", "$bcrypt$whatever")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = NewHasher(fastConfig).Verify("x", "$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}
