// Package wallet implements the non-custodial wallet custody engine:
// an explicit state machine over create/import/export/delete, guarded by
// the identity verification gate. Plaintext secrets exist only inside a
// single operation; everything persisted or logged is ciphertext or
// public data.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sequencetheory/vaultclub/internal/crypto"
	"github.com/sequencetheory/vaultclub/internal/model"
	"github.com/sequencetheory/vaultclub/internal/store"

	"github.com/tyler-smith/go-bip39"
	"go.uber.org/zap"
)

const minPasswordLen = 8

// Verifier is the single predicate the engine consults before any
// custody-creating operation.
type Verifier interface {
	IsVerified() bool
}

// TEEProvisioner creates a wallet held by the TEE-custodial provider.
type TEEProvisioner interface {
	CreateWallet(ctx context.Context, email, name, userID string) (address string, err error)
}

// Engine drives the custody lifecycle for one user session.
type Engine struct {
	mu    sync.Mutex
	state State
	rec   *model.WalletRecord

	userID  string
	email   string
	name    string
	network string

	gate  Verifier
	store store.WalletStore
	tee   TEEProvisioner
	log   *zap.Logger
}

// NewEngine creates an engine in the NoWallet state. Call Load to hydrate
// from the store at session start. tee may be nil when the TEE-custodial
// provider is not configured.
func NewEngine(userID, email, name, network string, gate Verifier, st store.WalletStore, tee TEEProvisioner, log *zap.Logger) *Engine {
	return &Engine{
		state:   StateNoWallet,
		userID:  userID,
		email:   email,
		name:    name,
		network: network,
		gate:    gate,
		store:   st,
		tee:     tee,
		log:     log,
	}
}

// Load hydrates the engine from the persisted record, if any.
func (e *Engine) Load(ctx context.Context) error {
	rec, err := e.store.Get(ctx, e.userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load wallet record: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := transition(e.state, StateReady); err != nil {
		return err
	}
	e.rec = rec
	e.state = StateReady
	e.log.Debug("wallet loaded", zap.String("address", rec.Address), zap.String("provider", string(rec.Provider)))
	return nil
}

// Create generates a new wallet encrypted with the password and persists
// it. The plaintext mnemonic is returned exactly once for backup display;
// the engine stays in AwaitingBackupConfirmation until ConfirmBackup.
// Nothing is persisted unless encryption succeeds.
func (e *Engine) Create(ctx context.Context, password string) (*model.CreateWalletResponse, error) {
	if !e.gate.IsVerified() {
		return nil, model.ErrNotVerified
	}
	if len(password) < minPasswordLen {
		return nil, model.ErrWeakPassword
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateReady || e.state == StateAwaitingBackupConfirmation {
		return nil, model.ErrWalletExists
	}
	if err := transition(e.state, StateCreating); err != nil {
		return nil, err
	}
	e.state = StateCreating

	resp, rec, err := e.buildEncryptedWallet("", password)
	if err != nil {
		e.state = StateNoWallet
		return nil, err
	}

	if err := e.store.Put(ctx, rec); err != nil {
		e.state = StateNoWallet
		return nil, fmt.Errorf("failed to persist wallet record: %w", err)
	}

	e.rec = rec
	e.state = StateAwaitingBackupConfirmation
	e.log.Info("wallet created", zap.String("address", rec.Address))
	return resp, nil
}

// ConfirmBackup acknowledges the user has written down the seed phrase.
func (e *Engine) ConfirmBackup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := transition(e.state, StateReady); err != nil {
		return err
	}
	e.state = StateReady
	return nil
}

// Import validates a seed phrase, derives its address, encrypts and
// persists it. A prior record is only replaced after validation and
// encryption both succeed.
func (e *Engine) Import(ctx context.Context, mnemonic, password string) (*model.ImportWalletResponse, error) {
	if !e.gate.IsVerified() {
		return nil, model.ErrNotVerified
	}
	if len(password) < minPasswordLen {
		return nil, model.ErrWeakPassword
	}

	mnemonic = normalizeMnemonic(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, model.ErrInvalidMnemonic
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	prevState, prevRec := e.state, e.rec
	if err := transition(e.state, StateImporting); err != nil {
		return nil, err
	}
	e.state = StateImporting

	resp, rec, err := e.buildEncryptedWallet(mnemonic, password)
	if err != nil {
		e.state, e.rec = prevState, prevRec
		return nil, err
	}

	if err := e.store.Put(ctx, rec); err != nil {
		e.state, e.rec = prevState, prevRec
		return nil, fmt.Errorf("failed to persist wallet record: %w", err)
	}

	e.rec = rec
	e.state = StateReady
	e.log.Info("wallet imported", zap.String("address", rec.Address))
	return &model.ImportWalletResponse{Address: resp.Address, QR: resp.QR}, nil
}

// CreateTEE provisions a wallet with the TEE-custodial provider. There is
// no local secret and nothing to back up, so the engine goes straight to
// Ready.
func (e *Engine) CreateTEE(ctx context.Context) (string, error) {
	if !e.gate.IsVerified() {
		return "", model.ErrNotVerified
	}
	if e.tee == nil {
		return "", errors.New("TEE provider not configured")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateNoWallet {
		return "", model.ErrWalletExists
	}

	address, err := e.tee.CreateWallet(ctx, e.email, e.name, e.userID)
	if err != nil {
		return "", fmt.Errorf("failed to create TEE wallet: %w", err)
	}

	rec := &model.WalletRecord{
		UserID:    e.userID,
		Address:   address,
		Network:   e.network,
		Provider:  model.ProviderTEECustodial,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to persist wallet record: %w", err)
	}

	e.rec = rec
	e.state = StateReady
	e.log.Info("TEE wallet created", zap.String("address", address))
	return address, nil
}

// ExportSeedPhrase decrypts and reveals the stored mnemonic. A wrong
// password fails with model.ErrInvalidPassword and mutates nothing; the
// blob stays valid for retry.
func (e *Engine) ExportSeedPhrase(ctx context.Context, password string) (string, error) {
	return e.export(password, func(mnemonic string) (string, error) {
		return mnemonic, nil
	})
}

// ExportPrivateKey decrypts the mnemonic and derives the hex private key.
func (e *Engine) ExportPrivateKey(ctx context.Context, password string) (string, error) {
	return e.export(password, func(mnemonic string) (string, error) {
		_, pk, err := deriveFromMnemonic(mnemonic)
		return pk, err
	})
}

func (e *Engine) export(password string, reveal func(mnemonic string) (string, error)) (string, error) {
	if !e.gate.IsVerified() {
		return "", model.ErrNotVerified
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := transition(e.state, StateExporting); err != nil {
		return "", model.ErrNoWallet
	}
	if e.rec == nil || e.rec.EncryptedSecret == nil {
		return "", errors.New("wallet has no exportable secret")
	}

	e.state = StateExporting
	defer func() { e.state = StateReady }()

	passwordBytes := []byte(password)
	defer clear(passwordBytes)

	mnemonic, err := crypto.DecryptSecret(e.rec.EncryptedSecret, passwordBytes)
	if err != nil {
		return "", err
	}
	return reveal(mnemonic)
}

// Delete removes the local wallet record only. It does not touch on-chain
// funds, and the engine cannot reconstruct the secret afterwards; forcing
// the user to confirm a backup first is the caller's responsibility.
func (e *Engine) Delete(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := transition(e.state, StateDeleted); err != nil {
		return model.ErrNoWallet
	}

	if err := e.store.Delete(ctx, e.userID); err != nil {
		return fmt.Errorf("failed to delete wallet record: %w", err)
	}

	e.rec = nil
	e.state = StateDeleted
	e.log.Warn("wallet deleted locally; funds remain on chain and the secret is unrecoverable without the backup")
	return nil
}

// State returns the current custody state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Info summarizes the wallet for display.
func (e *Engine) Info() model.WalletInfoResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	info := model.WalletInfoResponse{State: string(e.state)}
	if e.rec != nil {
		info.HasWallet = true
		info.Address = e.rec.Address
		info.Network = e.rec.Network
		info.Provider = string(e.rec.Provider)
	}
	return info
}

// Address returns the wallet address, empty when no wallet exists.
func (e *Engine) Address() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return ""
	}
	return e.rec.Address
}

// buildEncryptedWallet generates (or accepts) a mnemonic, derives the
// address and returns the encrypted record. Caller holds the lock.
func (e *Engine) buildEncryptedWallet(mnemonic, password string) (*model.CreateWalletResponse, *model.WalletRecord, error) {
	var err error
	if mnemonic == "" {
		mnemonic, err = newMnemonic()
		if err != nil {
			return nil, nil, err
		}
	}

	address, _, err := deriveFromMnemonic(mnemonic)
	if err != nil {
		return nil, nil, err
	}

	passwordBytes := []byte(password)
	defer clear(passwordBytes)

	blob, err := crypto.EncryptSecret(mnemonic, passwordBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encrypt wallet secret: %w", err)
	}

	qr, err := addressQR(address)
	if err != nil {
		return nil, nil, err
	}

	rec := &model.WalletRecord{
		UserID:          e.userID,
		Address:         address,
		Network:         e.network,
		Provider:        model.ProviderLocalEncrypted,
		EncryptedSecret: blob,
		CreatedAt:       time.Now().UTC(),
	}
	return &model.CreateWalletResponse{Address: address, Mnemonic: mnemonic, QR: qr}, rec, nil
}
