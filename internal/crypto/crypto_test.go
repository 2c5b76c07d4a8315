package crypto

import (
	"testing"

	"github.com/sequencetheory/vaultclub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon ability able about above absent absorb abstract absurd abuse access accident"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptSecret(testMnemonic, []byte("correcthorsebattery"))
	require.NoError(t, err)
	require.NotEmpty(t, blob.Salt)
	require.NotEmpty(t, blob.Nonce)
	require.NotEmpty(t, blob.CipherText)

	got, err := DecryptSecret(blob, []byte("correcthorsebattery"))
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, got)
}

func TestDecryptWrongPasswordKeepsBlobIntact(t *testing.T) {
	blob, err := EncryptSecret(testMnemonic, []byte("correcthorsebattery"))
	require.NoError(t, err)

	before := *blob

	_, err = DecryptSecret(blob, []byte("wrong"))
	assert.ErrorIs(t, err, model.ErrInvalidPassword)

	// Failed decrypt must not touch the stored ciphertext.
	assert.Equal(t, before, *blob)

	// Still decryptable with the right password.
	got, err := DecryptSecret(blob, []byte("correcthorsebattery"))
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, got)
}

func TestDecryptCorruptedCiphertext(t *testing.T) {
	blob, err := EncryptSecret("secret data", []byte("password123"))
	require.NoError(t, err)

	blob.CipherText = "AAAA" + blob.CipherText[4:]
	_, err = DecryptSecret(blob, []byte("password123"))
	assert.ErrorIs(t, err, model.ErrInvalidPassword)
}

func TestDecryptNilBlob(t *testing.T) {
	_, err := DecryptSecret(nil, []byte("password123"))
	assert.Error(t, err)
}

func TestEncryptProducesFreshSaltAndNonce(t *testing.T) {
	a, err := EncryptSecret("same secret", []byte("password123"))
	require.NoError(t, err)
	b, err := EncryptSecret("same secret", []byte("password123"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.CipherText, b.CipherText)
}
