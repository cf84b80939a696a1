package profile

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	key := make([]byte, chacha20poly1305.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	cipher, err := NewCipher(key)
	require.NoError(t, err)
	return cipher
}

func TestCipherRoundTrip(t *testing.T) {
	cipher := testCipher(t)

	sealed, err := cipher.Encrypt("X12345678")
	require.NoError(t, err)
	assert.NotEqual(t, "X12345678", sealed)

	plain, err := cipher.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "X12345678", plain)
}

func TestCipherEmptyPassthrough(t *testing.T) {
	cipher := testCipher(t)

	sealed, err := cipher.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := cipher.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestCipherNonceIsRandom(t *testing.T) {
	cipher := testCipher(t)

	first, err := cipher.Encrypt("X12345678")
	require.NoError(t, err)
	second, err := cipher.Encrypt("X12345678")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCipherRejectsWrongKey(t *testing.T) {
	sealed, err := testCipher(t).Encrypt("X12345678")
	require.NoError(t, err)

	_, err = testCipher(t).Decrypt(sealed)
	assert.Error(t, err)
}

func TestCipherRejectsGarbage(t *testing.T) {
	cipher := testCipher(t)

	_, err := cipher.Decrypt("not base64!!!")
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("short"))
	_, err = cipher.Decrypt(short)
	assert.Error(t, err)
}

func TestNewCipherRejectsBadKeySize(t *testing.T) {
	_, err := NewCipher([]byte("too short"))
	assert.Error(t, err)
}

func TestNewCipherFromEnv(t *testing.T) {
	key := make([]byte, chacha20poly1305.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))
	cipher, err := NewCipherFromEnv()
	require.NoError(t, err)
	assert.NotNil(t, cipher)

	t.Setenv("ENCRYPTION_KEY", "")
	_, err = NewCipherFromEnv()
	assert.Error(t, err)
}
