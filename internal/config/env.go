package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config contains all configuration parameters for the service.
// It is built once in main and passed explicitly to each component;
// nothing reads process-global state after startup.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Session identity. The service acts for a single authenticated user,
	// mirroring one browser client driving the custody and harvest flows.
	UserID      string `envconfig:"USER_ID" required:"true"`
	UserEmail   string `envconfig:"USER_EMAIL" required:"true"`
	BearerToken string `envconfig:"BEARER_TOKEN"`

	// Chain (Amoy testnet by default)
	ChainID             int64  `envconfig:"CHAIN_ID" default:"80002"`
	RPCURL              string `envconfig:"RPC_URL" default:"https://rpc-amoy.polygon.technology"`
	Network             string `envconfig:"NETWORK" default:"amoy"`
	VaultAddress        string `envconfig:"VAULT_ADDRESS"`
	StableTokenAddress  string `envconfig:"STABLE_TOKEN_ADDRESS"`
	StableTokenDecimals int    `envconfig:"STABLE_TOKEN_DECIMALS" default:"6"`

	// External collaborators
	TurnkeyBaseURL  string `envconfig:"TURNKEY_BASE_URL"`
	SupabaseURL     string `envconfig:"SUPABASE_URL"`
	SupabaseKey     string `envconfig:"SUPABASE_KEY"`
	LedgerBaseURL   string `envconfig:"LEDGER_BASE_URL"`
	VaultClubAPIKey string `envconfig:"VAULT_CLUB_API_KEY"`

	// Harvest automation
	HarvestEnabled      bool    `envconfig:"HARVEST_ENABLED" default:"false"`
	TestnetOnly         bool    `envconfig:"FEATURE_TESTNET_ONLY" default:"true"`
	HarvestSignerKey    string  `envconfig:"HARVEST_SIGNER_KEY"` // hex private key; harvest stays idle without it
	HarvestCronSpec     string  `envconfig:"HARVEST_CRON_SPEC" default:"@every 5m"`
	LocalCooldownMin    int     `envconfig:"HARVEST_LOCAL_COOLDOWN_MINUTES" default:"10"`
	GlobalCooldownHours int     `envconfig:"HARVEST_GLOBAL_COOLDOWN_HOURS" default:"6"`
	MinProfitUSD        float64 `envconfig:"HARVEST_MIN_PROFIT_USD" default:"25"`
	SubclubID           string  `envconfig:"HARVEST_SUBCLUB_ID" default:"global"`

	// Local non-authoritative state (harvest timestamps, lock)
	StatePath string `envconfig:"STATE_PATH" default:"vaultclub_state.json"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HarvestEnabled && c.VaultAddress == "" {
		return errors.New("HARVEST_ENABLED requires VAULT_ADDRESS")
	}
	if c.LocalCooldownMin <= 0 || c.GlobalCooldownHours <= 0 {
		return errors.New("cooldown windows must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in the production environment.
// Development-mode OTP codes must never be surfaced when this is true.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LocalCooldown returns the local harvest cooldown window.
func (c *Config) LocalCooldown() time.Duration {
	return time.Duration(c.LocalCooldownMin) * time.Minute
}

// GlobalCooldown returns the global harvest cooldown window.
func (c *Config) GlobalCooldown() time.Duration {
	return time.Duration(c.GlobalCooldownHours) * time.Hour
}
