package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sequencetheory/vaultclub/internal/model"

	"golang.org/x/crypto/scrypt"
)

// DecryptSecret decrypts an encrypted wallet secret blob.
// A wrong password or corrupted ciphertext yields model.ErrInvalidPassword;
// the blob itself is never mutated, so the caller may retry.
// password must be []byte for security (caller should zero it after use)
func DecryptSecret(blob *model.EncryptedBlob, password []byte) (string, error) {
	if blob == nil {
		return "", errors.New("encrypted blob is empty")
	}

	// Decode salt, nonce and ciphertext
	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil {
		return "", fmt.Errorf("failed to decode salt: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(blob.Nonce)
	if err != nil {
		return "", fmt.Errorf("failed to decode nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(blob.CipherText)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	// Derive key from password
	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	// Create AES cipher
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	// Create GCM
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	// Decrypt. GCM authentication failure means wrong password or corruption;
	// either way the stored blob stays valid for another attempt.
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", model.ErrInvalidPassword
	}

	return string(plaintext), nil
}
