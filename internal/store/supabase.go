package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sequencetheory/vaultclub/internal/model"
)

const walletsTable = "user_wallets"
const ledgerTable = "tx_ledger"

// SupabaseStore is a WalletStore backed by the Supabase PostgREST API.
// Only the public address and the encrypted secret blob ever reach it;
// plaintext key material never leaves the client.
type SupabaseStore struct {
	baseURL string
	apiKey  string
	bearer  string
	client  *http.Client
}

// NewSupabaseStore creates a store against the given Supabase project.
// bearer is the user's session token; apiKey is the project anon key.
func NewSupabaseStore(projectURL, apiKey, bearer string) *SupabaseStore {
	return &SupabaseStore{
		baseURL: projectURL + "/rest/v1",
		apiKey:  apiKey,
		bearer:  bearer,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *SupabaseStore) Get(ctx context.Context, userID string) (*model.WalletRecord, error) {
	query := "select=*&user_id=eq." + url.QueryEscape(userID) + "&limit=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+walletsTable+"?"+query, nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to query wallet record: status %d", resp.StatusCode)
	}

	var rows []model.WalletRecord
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode wallet record: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStore) Put(ctx context.Context, rec *model.WalletRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+walletsTable, bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	// Upsert keyed on user_id: one record per user.
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upsert wallet record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("failed to upsert wallet record: status %d", resp.StatusCode)
	}
	return nil
}

func (s *SupabaseStore) Delete(ctx context.Context, userID string) error {
	query := "user_id=eq." + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/"+walletsTable+"?"+query, nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete wallet record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("failed to delete wallet record: status %d", resp.StatusCode)
	}
	return nil
}

// LastAppliedHarvest returns the creation time of the most recent applied
// harvest ledger row. Used as the global-cooldown fallback when the chain
// does not expose a last-harvest timestamp.
func (s *SupabaseStore) LastAppliedHarvest(ctx context.Context) (time.Time, error) {
	query := "select=created_at&kind=eq.HARVEST&status=eq.APPLIED&order=created_at.desc&limit=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+ledgerTable+"?"+query, nil)
	if err != nil {
		return time.Time{}, err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query harvest ledger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("failed to query harvest ledger: status %d", resp.StatusCode)
	}

	var rows []struct {
		CreatedAt time.Time `json:"created_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode harvest ledger: %w", err)
	}
	if len(rows) == 0 {
		return time.Time{}, nil
	}
	return rows[0].CreatedAt, nil
}

func (s *SupabaseStore) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	if s.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+s.bearer)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
