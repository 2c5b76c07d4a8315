package model

import "time"

// WalletProvider identifies who holds the key material.
type WalletProvider string

const (
	// ProviderLocalEncrypted means the secret lives client-side, encrypted with the user's password.
	ProviderLocalEncrypted WalletProvider = "local-encrypted"
	// ProviderTEECustodial means a Turnkey sub-org holds the key inside a TEE. No local secret.
	ProviderTEECustodial WalletProvider = "tee-custodial"
)

// EncryptedBlob is the ciphertext container for a wallet secret.
// All fields are base64. The plaintext secret never appears anywhere in this struct.
type EncryptedBlob struct {
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

// WalletRecord is the persisted wallet row, one per user.
// Address is immutable once set. EncryptedSecret is nil for TEE-custodial wallets.
type WalletRecord struct {
	UserID          string         `json:"user_id"`
	Address         string         `json:"wallet_address"`
	Network         string         `json:"network"`
	Provider        WalletProvider `json:"provider"`
	EncryptedSecret *EncryptedBlob `json:"encrypted_secret,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// WalletInfoResponse represents response for GET /wallet/info
type WalletInfoResponse struct {
	HasWallet bool   `json:"hasWallet"`
	Address   string `json:"address,omitempty"`
	Network   string `json:"network,omitempty"`
	Provider  string `json:"provider,omitempty"`
	State     string `json:"state"`
}

// CreateWalletRequest represents request for POST /wallet/create
type CreateWalletRequest struct {
	Password string `json:"password"`
}

// CreateWalletResponse represents response for POST /wallet/create.
// Mnemonic is returned exactly once, for backup display; it is never persisted in plaintext.
type CreateWalletResponse struct {
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic"`
	QR       string `json:"qr"` // base64 PNG of the address
}

// ImportWalletRequest represents request for POST /wallet/import
type ImportWalletRequest struct {
	Mnemonic string `json:"mnemonic"`
	Password string `json:"password"`
}

// ImportWalletResponse represents response for POST /wallet/import
type ImportWalletResponse struct {
	Address string `json:"address"`
	QR      string `json:"qr"`
}

// ExportRequest represents request for POST /wallet/export/...
type ExportRequest struct {
	Password string `json:"password"`
}

// ExportResponse carries the one-time reveal of a decrypted secret.
type ExportResponse struct {
	Secret string `json:"secret"`
}

// TokenResponse represents response for GET /wallet/token.
// VaultAllowance is the stable-token allowance granted to the vault
// contract by the wallet.
type TokenResponse struct {
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	Decimals       uint8  `json:"decimals"`
	VaultAllowance string `json:"vault_allowance,omitempty"`
}

// BalanceResponse represents response for GET /wallet/balance
type BalanceResponse struct {
	Address string `json:"address"`
	Native  string `json:"native"`
	Token   string `json:"token"`
	Rate    string `json:"rate"`
	USD     string `json:"token_amount_in_usd"`
}
