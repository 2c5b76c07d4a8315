package model

import "time"

// HarvestStatus is the ledger lifecycle of a submitted harvest.
type HarvestStatus string

const (
	HarvestPending HarvestStatus = "PENDING"
	HarvestApplied HarvestStatus = "APPLIED"
	HarvestFailed  HarvestStatus = "FAILED"
)

// HarvestRecord is an append-only ledger entry, created on successful
// on-chain submission. TxHash and IdempotencyKey are unique.
type HarvestRecord struct {
	TxHash            string        `json:"tx_hash"`
	IdempotencyKey    string        `json:"idempotency_key"`
	AmountEstimateUSD float64       `json:"amount_estimate_usd"`
	CreatedAt         time.Time     `json:"created_at"`
	Status            HarvestStatus `json:"status"`
}

// HarvestRunResponse represents response for POST /harvest/run
type HarvestRunResponse struct {
	Executed bool   `json:"executed"`
	TxHash   string `json:"txHash,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// HarvestStatusResponse represents response for GET /harvest/status
type HarvestStatusResponse struct {
	Enabled            bool      `json:"enabled"`
	LastLocalHarvest   time.Time `json:"lastLocalHarvest"`
	LocalCooldownUntil time.Time `json:"localCooldownUntil"`
	LockHeld           bool      `json:"lockHeld"`
}
