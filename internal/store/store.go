// Package store holds the persistence adapters: the wallet record store
// (Supabase-backed in production, in-memory for tests) and the local
// non-authoritative harvest state file.
package store

import (
	"context"
	"errors"

	"github.com/sequencetheory/vaultclub/internal/model"
)

// ErrNotFound is returned when no wallet record exists for the user.
var ErrNotFound = errors.New("wallet record not found")

// WalletStore persists one WalletRecord per user.
type WalletStore interface {
	Get(ctx context.Context, userID string) (*model.WalletRecord, error)
	Put(ctx context.Context, rec *model.WalletRecord) error
	Delete(ctx context.Context, userID string) error
}
