package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/sequencetheory/vaultclub/internal/client"
	"github.com/sequencetheory/vaultclub/internal/common"
	"github.com/sequencetheory/vaultclub/internal/model"
	"github.com/sequencetheory/vaultclub/wallet"

	"go.uber.org/zap"
)

// ChainReader is the slice of the chain client the read endpoints need.
type ChainReader interface {
	Balance(ctx context.Context, address string) (*big.Int, error)
	TokenBalance(ctx context.Context, address string) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender string) (*big.Int, error)
	TokenInfo(ctx context.Context) (*client.TokenInfo, error)
}

// PriceSource quotes the native token in USD.
type PriceSource interface {
	NativeTokenUSD(ctx context.Context) (float64, error)
}

// WalletHandler exposes the custody engine over HTTP.
type WalletHandler struct {
	engine        *wallet.Engine
	chain         ChainReader
	prices        PriceSource
	vaultAddress  string
	tokenDecimals int
	log           *zap.Logger
}

// NewWalletHandler creates a wallet handler. chain and prices may be nil
// when no RPC endpoint is configured; the chain-read endpoints then
// report the node as unavailable.
func NewWalletHandler(engine *wallet.Engine, chain ChainReader, prices PriceSource, vaultAddress string, tokenDecimals int, log *zap.Logger) *WalletHandler {
	return &WalletHandler{
		engine:        engine,
		chain:         chain,
		prices:        prices,
		vaultAddress:  vaultAddress,
		tokenDecimals: tokenDecimals,
		log:           log,
	}
}

// Create handles POST /wallet/create
// @Summary      Create new wallet
// @Description  Generates a seed phrase, encrypts it with the password and persists the ciphertext. The phrase is returned exactly once.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateWalletRequest  true  "Encryption password"
// @Success      200      {object}  model.CreateWalletResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /wallet/create [post]
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.engine.Create(r.Context(), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateTEE handles POST /wallet/create-tee
// @Summary      Create TEE-custodial wallet
// @Description  Provisions a wallet held by the TEE provider. No local secret exists and nothing needs backing up.
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  model.ErrorResponse
// @Router       /wallet/create-tee [post]
func (h *WalletHandler) CreateTEE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	address, err := h.engine.CreateTEE(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": address})
}

// Import handles POST /wallet/import
// @Summary      Import wallet from seed phrase
// @Description  Validates the phrase, derives its address and persists the encrypted secret. The prior wallet is only replaced on success.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.ImportWalletRequest  true  "Seed phrase and password"
// @Success      200      {object}  model.ImportWalletResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallet/import [post]
func (h *WalletHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.ImportWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.engine.Import(r.Context(), req.Mnemonic, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ConfirmBackup handles POST /wallet/confirm-backup
// @Summary      Confirm seed phrase backup
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /wallet/confirm-backup [post]
func (h *WalletHandler) ConfirmBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	if err := h.engine.ConfirmBackup(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ExportSeed handles POST /wallet/export/seed
// @Summary      Reveal seed phrase
// @Description  Decrypts and returns the stored phrase. A wrong password fails without touching the stored ciphertext.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.ExportRequest  true  "Wallet password"
// @Success      200      {object}  model.ExportResponse
// @Failure      401      {object}  model.ErrorResponse
// @Router       /wallet/export/seed [post]
func (h *WalletHandler) ExportSeed(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, h.engine.ExportSeedPhrase)
}

// ExportKey handles POST /wallet/export/key
// @Summary      Reveal private key
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.ExportRequest  true  "Wallet password"
// @Success      200      {object}  model.ExportResponse
// @Failure      401      {object}  model.ErrorResponse
// @Router       /wallet/export/key [post]
func (h *WalletHandler) ExportKey(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, h.engine.ExportPrivateKey)
}

func (h *WalletHandler) export(w http.ResponseWriter, r *http.Request, reveal func(ctx context.Context, password string) (string, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	secret, err := reveal(r.Context(), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ExportResponse{Secret: secret})
}

// Delete handles DELETE /wallet
// @Summary      Delete the local wallet record
// @Description  Removes the stored record only. On-chain funds are untouched and the secret is unrecoverable without the backup.
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  model.ErrorResponse
// @Router       /wallet [delete]
func (h *WalletHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed. Should be DELETE", http.StatusMethodNotAllowed)
		return
	}
	if err := h.engine.Delete(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Info handles GET /wallet/info
// @Summary      Get wallet info
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletInfoResponse
// @Router       /wallet/info [get]
func (h *WalletHandler) Info(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Info())
}

// Balance handles GET /wallet/balance
// @Summary      Get native and stable-token balances
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.BalanceResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /wallet/balance [get]
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	address := h.engine.Address()
	if address == "" {
		writeError(w, model.ErrNoWallet)
		return
	}
	if h.chain == nil {
		writeJSON(w, http.StatusServiceUnavailable, model.ErrorResponse{Error: "no RPC endpoint configured"})
		return
	}

	native, err := h.chain.Balance(r.Context(), address)
	if err != nil {
		h.log.Warn("balance lookup failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{Error: err.Error()})
		return
	}
	token, err := h.chain.TokenBalance(r.Context(), address)
	if err != nil {
		h.log.Warn("token balance lookup failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{Error: err.Error()})
		return
	}

	resp := model.BalanceResponse{
		Address: address,
		Native:  common.FormatUnits(native, common.NativeDecimals),
		Token:   common.FormatUnits(token, h.tokenDecimals),
	}
	// The stable token is dollar-pegged; the oracle only prices the
	// native token, and a quote failure does not fail the endpoint.
	resp.USD = resp.Token
	if h.prices != nil {
		if rate, err := h.prices.NativeTokenUSD(r.Context()); err == nil {
			resp.Rate = fmt.Sprintf("%.4f", rate)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Token handles GET /wallet/token
// @Summary      Get stable-token metadata and vault allowance
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.TokenResponse
// @Failure      502  {object}  model.ErrorResponse
// @Router       /wallet/token [get]
func (h *WalletHandler) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}
	if h.chain == nil {
		writeJSON(w, http.StatusServiceUnavailable, model.ErrorResponse{Error: "no RPC endpoint configured"})
		return
	}

	info, err := h.chain.TokenInfo(r.Context())
	if err != nil {
		h.log.Warn("token info lookup failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{Error: err.Error()})
		return
	}

	resp := model.TokenResponse{
		Name:     info.Name,
		Symbol:   info.Symbol,
		Decimals: info.Decimals,
	}
	// The allowance only exists relative to a wallet and a vault.
	if address := h.engine.Address(); address != "" && h.vaultAddress != "" {
		allowance, err := h.chain.Allowance(r.Context(), address, h.vaultAddress)
		if err != nil {
			h.log.Warn("allowance lookup failed", zap.Error(err))
		} else {
			resp.VaultAllowance = common.FormatUnits(allowance, int(info.Decimals))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
