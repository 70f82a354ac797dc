package keystore

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeystore_RoundTrip(t *testing.T) {
	ks, err := New("master-secret", "salt")
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	encrypted, err := ks.EncryptKey(key)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "0x", "ciphertext must not leak the raw key encoding")

	decrypted, err := ks.DecryptKey(encrypted)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(decrypted.PublicKey))

	// Two encryptions of the same key differ (random nonce).
	again, err := ks.EncryptKey(key)
	require.NoError(t, err)
	assert.NotEqual(t, encrypted, again)
}

func TestKeystore_RequiresSecret(t *testing.T) {
	_, err := New("", "salt")
	assert.ErrorIs(t, err, ErrInvalidSecret)
}

func TestKeystore_WrongSecretFailsDecrypt(t *testing.T) {
	ks1, err := New("secret-one", "salt")
	require.NoError(t, err)
	ks2, err := New("secret-two", "salt")
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	encrypted, err := ks1.EncryptKey(key)
	require.NoError(t, err)

	_, err = ks2.DecryptKey(encrypted)
	assert.Error(t, err)
}

func TestKeystore_RejectsMalformedCiphertext(t *testing.T) {
	ks, err := New("master-secret", "salt")
	require.NoError(t, err)

	_, err = ks.DecryptKey("not-hex")
	assert.Error(t, err)

	_, err = ks.DecryptKey("abcd")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
