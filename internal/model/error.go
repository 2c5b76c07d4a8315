package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrorResponse is the consistent JSON structure for all API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Validation errors. Reported immediately, no side effects performed.
var (
	ErrWeakPassword    = errors.New("password must be at least 8 characters")
	ErrInvalidMnemonic = errors.New("invalid seed phrase")
)

// ErrInvalidPassword covers wrong password and corrupted ciphertext on decrypt.
// The stored blob is untouched on a failed attempt, so the caller may retry.
var ErrInvalidPassword = errors.New("invalid password")

// Verification errors. Distinct from system errors; the user may retry.
var (
	ErrNotVerified   = errors.New("identity verification required")
	ErrInvalidCode   = errors.New("invalid verification code")
	ErrCodeExpired   = errors.New("verification code expired")
	ErrUserCancelled = errors.New("verification cancelled by user")
	ErrPasskeyFailed = errors.New("passkey verification failed")
	ErrNoChallenge   = errors.New("no verification challenge in progress")
)

// Custody state errors.
var (
	ErrNoWallet     = errors.New("no wallet configured")
	ErrWalletExists = errors.New("wallet already exists")
)

// RpcError wraps a failed chain RPC call with the observed latency,
// so health reporting can tell a slow node from a dead one.
type RpcError struct {
	Op      string
	Latency time.Duration
	Err     error
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("rpc %s failed after %s: %v", e.Op, e.Latency.Round(time.Millisecond), e.Err)
}

func (e *RpcError) Unwrap() error {
	return e.Err
}
