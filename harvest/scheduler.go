// Package harvest implements the guarded automation around the vault's
// harvestAndRoute transaction: a fail-fast eligibility ladder (feature
// gate, local and global cooldowns, authorization, profitability dry-run,
// cost/benefit check) in front of a single locked execution attempt.
//
// Most failures here are expected, non-exceptional outcomes: the
// scheduler degrades to "not eligible this cycle" and lets the cooldown
// window act as backoff. That is deliberate, and every silent exit is
// still logged at debug level.
package harvest

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"time"

	"github.com/sequencetheory/vaultclub/internal/common"
	"github.com/sequencetheory/vaultclub/internal/model"
	"github.com/sequencetheory/vaultclub/internal/store"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VaultChain is the slice of the chain client the scheduler needs.
type VaultChain interface {
	CanHarvest(ctx context.Context, signer string) (bool, error)
	LastHarvest(ctx context.Context) (time.Time, error)
	StaticCallHarvest(ctx context.Context, from string) error
	EstimateHarvestGas(ctx context.Context, from string) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	SubmitHarvest(ctx context.Context, key *ecdsa.PrivateKey, gasLimit uint64, gasPrice *big.Int) (string, error)
}

// PriceOracle converts gas cost to USD. Injected rather than hardcoded so
// the cost gate follows the market.
type PriceOracle interface {
	NativeTokenUSD(ctx context.Context) (float64, error)
}

// Ledger records harvest submissions.
type Ledger interface {
	RecordHarvest(ctx context.Context, subclubID, txHash, idempotencyKey string) error
}

// CooldownFallback supplies the last applied harvest time when the chain
// does not expose one.
type CooldownFallback interface {
	LastAppliedHarvest(ctx context.Context) (time.Time, error)
}

// Config are the harvest gates and identities.
type Config struct {
	Enabled        bool
	TestnetOnly    bool
	SignerKey      *ecdsa.PrivateKey
	SubclubID      string
	LocalCooldown  time.Duration
	GlobalCooldown time.Duration
	MinProfitUSD   float64
}

// gas estimates run against a changing pool; pad the limit so the
// submitted transaction does not run out on a slightly worse path.
const gasLimitMarginPct = 20

// Scheduler evaluates and executes harvest attempts. Safe for concurrent
// triggers: at most one attempt runs at a time, enforced by an in-process
// mutex plus the time-bounded advisory lock.
type Scheduler struct {
	cfg      Config
	signer   string
	chain    VaultChain
	oracle   PriceOracle
	ledger   Ledger
	fallback CooldownFallback
	state    *store.LocalState
	lock     *advisoryLock
	log      *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	lastTxHash string
}

// NewScheduler wires the harvest automation. fallback may be nil when no
// ledger query is available; the global cooldown then relies on chain
// state alone.
func NewScheduler(cfg Config, chain VaultChain, oracle PriceOracle, ledger Ledger, fallback CooldownFallback, state *store.LocalState, log *zap.Logger) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		chain:    chain,
		oracle:   oracle,
		ledger:   ledger,
		fallback: fallback,
		state:    state,
		log:      log,
		now:      time.Now,
	}
	if cfg.SignerKey != nil {
		s.signer = gethcrypto.PubkeyToAddress(cfg.SignerKey.PublicKey).Hex()
	}
	s.lock = &advisoryLock{state: state, ttl: cfg.LocalCooldown, now: func() time.Time { return s.now() }}
	return s
}

// RunIfEligible walks the eligibility ladder and executes a harvest when
// every gate passes. It returns (false, nil) for every expected
// ineligibility; an error is returned only for a failed submission or
// ledger write. The advisory lock is released on every path.
func (s *Scheduler) RunIfEligible(ctx context.Context) (bool, error) {
	// 1. Feature/network gate: exit silently, no lock taken.
	if !s.cfg.Enabled || !s.cfg.TestnetOnly || s.cfg.SignerKey == nil {
		return false, nil
	}

	// 2. Local cooldown, checked before any lock or RPC traffic.
	if last := s.state.LastHarvest(); !last.IsZero() && s.now().Sub(last) < s.cfg.LocalCooldown {
		s.log.Debug("harvest skipped: local cooldown active",
			zap.Time("last_harvest", last))
		return false, nil
	}

	// 3. Exclusive attempt: in-process first, then the advisory stamp.
	if !s.mu.TryLock() {
		return false, nil
	}
	defer s.mu.Unlock()

	if !s.lock.tryAcquire() {
		s.log.Debug("harvest skipped: lock held by another attempt")
		return false, nil
	}
	defer s.lock.release()

	return s.attempt(ctx)
}

// attempt runs gates 4-8 with the lock held.
func (s *Scheduler) attempt(ctx context.Context) (bool, error) {
	// 4. Authorization, best-effort: a missing predicate is tolerated,
	// an explicit "no" is final.
	if ok, err := s.chain.CanHarvest(ctx, s.signer); err != nil {
		s.log.Debug("canHarvest predicate unavailable, proceeding to dry-run", zap.Error(err))
	} else if !ok {
		s.log.Debug("harvest skipped: signer not authorized")
		return false, nil
	}

	// 5. Global cooldown from chain state, ledger as fallback.
	if s.globalCooldownActive(ctx) {
		s.log.Debug("harvest skipped: global cooldown active")
		return false, nil
	}

	// 6. Profitability dry-run. Reverts are expected, not faults.
	if err := s.chain.StaticCallHarvest(ctx, s.signer); err != nil {
		s.log.Debug("harvest dry-run failed: not profitable or not allowed", zap.Error(err))
		return false, nil
	}
	gasEstimate, err := s.chain.EstimateHarvestGas(ctx, s.signer)
	if err != nil {
		s.log.Debug("harvest gas estimate failed", zap.Error(err))
		return false, nil
	}

	// Gas price is needed for submission, so its failure ends the cycle.
	gasPrice, err := s.chain.GasPrice(ctx)
	if err != nil {
		s.log.Warn("harvest skipped: gas price unavailable", zap.Error(err))
		return false, nil
	}

	// 7. Cost/benefit: estimated cost must stay under half the minimum
	// acceptable profit. Oracle failure skips the gate, not the harvest.
	estimateUSD := 0.0
	if price, err := s.oracle.NativeTokenUSD(ctx); err != nil {
		s.log.Debug("price oracle unavailable, proceeding on dry-run only", zap.Error(err))
	} else {
		costWei := new(big.Int).Mul(new(big.Int).SetUint64(gasEstimate), gasPrice)
		estimateUSD = common.WeiToUSD(costWei, price)
		if estimateUSD > s.cfg.MinProfitUSD/2 {
			s.log.Info("harvest skipped: gas cost too high relative to expected profit",
				zap.Float64("gas_cost_usd", estimateUSD),
				zap.Float64("min_profit_usd", s.cfg.MinProfitUSD))
			return false, nil
		}
	}

	// 8. Submit and record.
	gasLimit := gasEstimate + gasEstimate*gasLimitMarginPct/100
	txHash, err := s.chain.SubmitHarvest(ctx, s.cfg.SignerKey, gasLimit, gasPrice)
	if err != nil {
		// Lock is released by the caller's defer; the cooldown timestamp
		// stays untouched so a retry is possible once the lock expires.
		s.log.Error("harvest submission failed", zap.Error(err))
		return false, err
	}

	idempotencyKey := "harvest-" + uuid.NewString()
	if err := s.ledger.RecordHarvest(ctx, s.cfg.SubclubID, txHash, idempotencyKey); err != nil {
		s.log.Error("harvest ledger update failed",
			zap.String("tx_hash", txHash), zap.Error(err))
		return false, err
	}

	if err := s.state.SetLastHarvest(s.now()); err != nil {
		s.log.Warn("failed to persist local harvest timestamp", zap.Error(err))
	}
	s.lastTxHash = txHash

	s.log.Info("harvest executed",
		zap.String("tx_hash", txHash),
		zap.Float64("gas_cost_usd", estimateUSD))
	return true, nil
}

func (s *Scheduler) globalCooldownActive(ctx context.Context) bool {
	last, err := s.chain.LastHarvest(ctx)
	if err != nil || last.IsZero() {
		if s.fallback == nil {
			return false
		}
		last, err = s.fallback.LastAppliedHarvest(ctx)
		if err != nil {
			s.log.Debug("could not determine global cooldown, proceeding", zap.Error(err))
			return false
		}
	}
	return !last.IsZero() && s.now().Sub(last) < s.cfg.GlobalCooldown
}

// LastTxHash returns the hash of the most recent successful submission,
// empty if none happened in this process.
func (s *Scheduler) LastTxHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTxHash
}

// Status summarizes the automation state for display.
func (s *Scheduler) Status() model.HarvestStatusResponse {
	last := s.state.LastHarvest()
	status := model.HarvestStatusResponse{
		Enabled:          s.cfg.Enabled && s.cfg.TestnetOnly && s.cfg.SignerKey != nil,
		LastLocalHarvest: last,
		LockHeld:         s.lock.held(),
	}
	if !last.IsZero() {
		status.LocalCooldownUntil = last.Add(s.cfg.LocalCooldown)
	}
	return status
}
