package wallet

import (
	"encoding/base64"
	"fmt"
	"strings"

	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/skip2/go-qrcode"
	"github.com/tyler-smith/go-bip39"
)

// derivationPath is the standard Ethereum BIP-44 path, matching what the
// web client derives so the same phrase yields the same address.
const derivationPath = "m/44'/60'/0'/0/0"

const mnemonicEntropyBits = 128 // 12 words

// newMnemonic generates a fresh 12-word seed phrase.
func newMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// normalizeMnemonic collapses whitespace and lowercases the phrase.
func normalizeMnemonic(mnemonic string) string {
	return strings.ToLower(strings.Join(strings.Fields(mnemonic), " "))
}

// deriveFromMnemonic derives the checksummed address and hex private key
// at the standard path.
func deriveFromMnemonic(mnemonic string) (address, privateKeyHex string, err error) {
	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return "", "", fmt.Errorf("failed to derive wallet: %w", err)
	}

	account, err := w.Derive(hdwallet.MustParseDerivationPath(derivationPath), false)
	if err != nil {
		return "", "", fmt.Errorf("failed to derive account: %w", err)
	}

	privateKeyHex, err = w.PrivateKeyHex(account)
	if err != nil {
		return "", "", fmt.Errorf("failed to derive private key: %w", err)
	}

	return account.Address.Hex(), privateKeyHex, nil
}

// addressQR generates a QR code of the address as base64 PNG.
func addressQR(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}
