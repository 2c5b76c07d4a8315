package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LedgerClient records harvest submissions against the vault-harvest
// backend function. Every call carries the service API key and a fresh
// idempotency key; the backend dedupes on tx_hash so a retried submission
// never double-records.
type LedgerClient struct {
	baseURL string
	apiKey  string
	bearer  string
	client  *http.Client
}

// NewLedgerClient creates a ledger client.
// bearer is the user session token; apiKey is the vault club service key.
func NewLedgerClient(baseURL, apiKey, bearer string) *LedgerClient {
	return &LedgerClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		bearer:  bearer,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type harvestLedgerRequest struct {
	SubclubID string `json:"subclub_id"`
	TxHash    string `json:"tx_hash"`
}

// RecordHarvest appends a harvest entry to the ledger.
// A 409 means the tx_hash is already recorded; that is success for the
// caller, not an error.
func (c *LedgerClient) RecordHarvest(ctx context.Context, subclubID, txHash, idempotencyKey string) error {
	body, err := json.Marshal(harvestLedgerRequest{SubclubID: subclubID, TxHash: txHash})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/vault-harvest", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	req.Header.Set("x-vault-club-api-key", c.apiKey)
	req.Header.Set("x-idempotency-key", idempotencyKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to record harvest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		// Already recorded for this tx_hash.
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to record harvest: status %d", resp.StatusCode)
	}
	return nil
}
