// vaultd is the vault club custody and harvest service: local encrypted
// wallet management behind an identity verification gate, plus the guarded
// harvestAndRoute automation against the vault contract.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/sequencetheory/vaultclub/harvest"
	"github.com/sequencetheory/vaultclub/internal/api"
	"github.com/sequencetheory/vaultclub/internal/client"
	"github.com/sequencetheory/vaultclub/internal/config"
	"github.com/sequencetheory/vaultclub/internal/handler"
	"github.com/sequencetheory/vaultclub/internal/logger"
	"github.com/sequencetheory/vaultclub/internal/store"
	"github.com/sequencetheory/vaultclub/verify"
	"github.com/sequencetheory/vaultclub/wallet"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// @title        Vault Club Custody API
// @version      1.0
// @description  Non-custodial wallet management and guarded harvest automation
// @BasePath     /
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)
	defer log.Sync()

	// Wallet records live in Supabase when configured, in memory otherwise.
	var walletStore store.WalletStore
	var supabase *store.SupabaseStore
	if cfg.SupabaseURL != "" {
		supabase = store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.BearerToken)
		walletStore = supabase
		log.Info("using supabase wallet store")
	} else {
		walletStore = store.NewMemoryStore()
		log.Warn("no SUPABASE_URL set, wallet records are in-memory only")
	}

	turnkey := client.NewTurnkeyClient(cfg.TurnkeyBaseURL, cfg.BearerToken)
	gate := verify.NewGate(turnkey, !cfg.IsProduction(), log)

	var tee wallet.TEEProvisioner
	if turnkey.Configured() {
		tee = turnkey
	}
	engine := wallet.NewEngine(cfg.UserID, cfg.UserEmail, cfg.UserEmail, cfg.Network, gate, walletStore, tee, log)
	if err := engine.Load(context.Background()); err != nil {
		log.Warn("could not hydrate wallet record", zap.Error(err))
	}

	var chain *client.EVMClient
	if cfg.RPCURL != "" {
		chain, err = client.NewEVMClient(cfg.RPCURL, cfg.ChainID, cfg.VaultAddress, cfg.StableTokenAddress)
		if err != nil {
			log.Error("chain client unavailable", zap.Error(err))
		}
	}
	prices := client.NewCoinGeckoClient("matic-network")

	scheduler := buildScheduler(cfg, chain, prices, supabase, log)

	handlers := api.Handlers{
		Wallet:  newWalletHandler(engine, chain, prices, cfg, log),
		Verify:  handler.NewVerifyHandler(gate, log),
		Harvest: handler.NewHarvestHandler(scheduler, log),
		Health:  handler.NewHealthHandler(cfg.Environment, turnkey.Configured(), rpcProbe(chain)),
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.HarvestCronSpec, func() {
		if _, err := scheduler.RunIfEligible(context.Background()); err != nil {
			log.Warn("scheduled harvest attempt failed", zap.Error(err))
		}
	}); err != nil {
		log.Error("invalid harvest cron spec", zap.String("spec", cfg.HarvestCronSpec), zap.Error(err))
	} else {
		c.Start()
		defer c.Stop()
	}

	addr := ":" + cfg.Port
	log.Info("listening",
		zap.String("addr", addr),
		zap.String("environment", cfg.Environment),
		zap.Bool("harvest_enabled", cfg.HarvestEnabled))
	if err := http.ListenAndServe(addr, api.SetupRouter(handlers)); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newWalletHandler(engine *wallet.Engine, chain *client.EVMClient, prices *client.CoinGeckoClient, cfg *config.Config, log *zap.Logger) *handler.WalletHandler {
	// A typed nil in the interface would defeat the handler's nil checks.
	var reader handler.ChainReader
	if chain != nil {
		reader = chain
	}
	return handler.NewWalletHandler(engine, reader, prices, cfg.VaultAddress, cfg.StableTokenDecimals, log)
}

func buildScheduler(cfg *config.Config, chain *client.EVMClient, prices *client.CoinGeckoClient, supabase *store.SupabaseStore, log *zap.Logger) *harvest.Scheduler {
	hcfg := harvest.Config{
		Enabled:        cfg.HarvestEnabled && chain != nil,
		TestnetOnly:    cfg.TestnetOnly,
		SubclubID:      cfg.SubclubID,
		LocalCooldown:  cfg.LocalCooldown(),
		GlobalCooldown: cfg.GlobalCooldown(),
		MinProfitUSD:   cfg.MinProfitUSD,
	}
	if cfg.HarvestSignerKey != "" {
		key, err := gethcrypto.HexToECDSA(cfg.HarvestSignerKey)
		if err != nil {
			log.Error("invalid HARVEST_SIGNER_KEY, harvest stays idle", zap.Error(err))
		} else {
			hcfg.SignerKey = key
		}
	}

	var vaultChain harvest.VaultChain
	if chain != nil {
		vaultChain = chain
	}
	var fallback harvest.CooldownFallback
	if supabase != nil {
		fallback = supabase
	}
	ledger := client.NewLedgerClient(cfg.LedgerBaseURL, cfg.VaultClubAPIKey, cfg.BearerToken)

	return harvest.NewScheduler(hcfg, vaultChain, prices, ledger, fallback, store.NewLocalState(cfg.StatePath), log)
}

func rpcProbe(chain *client.EVMClient) func(ctx context.Context) error {
	if chain == nil {
		return nil
	}
	return func(ctx context.Context) error {
		_, err := chain.GasPrice(ctx)
		return err
	}
}
