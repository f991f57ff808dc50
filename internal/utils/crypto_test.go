package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := GenerateRandomKey()
	require.Len(t, key, 32)

	for _, plaintext := range []string{"", "short", "an application password with spaces"} {
		sealed, err := Encrypt(plaintext, key)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, sealed)

		opened, err := Decrypt(sealed, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	key := GenerateRandomKey()

	a, err := Encrypt("same input", key)
	require.NoError(t, err)
	b, err := Encrypt("same input", key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce must differ per call")
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	sealed, err := Encrypt("secret", GenerateRandomKey())
	require.NoError(t, err)

	_, err = Decrypt(sealed, GenerateRandomKey())
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	key := GenerateRandomKey()

	_, err := Decrypt("not base64!!!", key)
	assert.Error(t, err)

	_, err = Decrypt("QQ==", key)
	assert.Error(t, err, "too short for a nonce")
}
