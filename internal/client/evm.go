package client

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sequencetheory/vaultclub/internal/model"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABIJSON = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"type":"uint256"}]},
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"type":"uint256"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint8"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
	{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]}
]`

const vaultABIJSON = `[
	{"name":"canHarvest","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"type":"bool"}]},
	{"name":"lastHarvest","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"harvestAndRoute","type":"function","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

// TokenInfo describes the stable token contract.
type TokenInfo struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// EVMClient is a client for the vault and stable-token contracts over an
// EVM JSON-RPC endpoint. All failures are wrapped in model.RpcError with
// the observed latency for health reporting.
type EVMClient struct {
	ec       *ethclient.Client
	chainID  *big.Int
	vault    gethcommon.Address
	token    gethcommon.Address
	erc20ABI abi.ABI
	vaultABI abi.ABI
}

// NewEVMClient dials the RPC endpoint and parses the contract ABIs.
// vaultAddress and tokenAddress may be empty when the corresponding
// feature (harvest, balances) is disabled.
func NewEVMClient(rpcURL string, chainID int64, vaultAddress, tokenAddress string) (*EVMClient, error) {
	ec, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC: %w", err)
	}

	erc20, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	vault, err := abi.JSON(strings.NewReader(vaultABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}

	return &EVMClient{
		ec:       ec,
		chainID:  big.NewInt(chainID),
		vault:    gethcommon.HexToAddress(vaultAddress),
		token:    gethcommon.HexToAddress(tokenAddress),
		erc20ABI: erc20,
		vaultABI: vault,
	}, nil
}

// Balance returns the native-token balance in wei.
func (c *EVMClient) Balance(ctx context.Context, address string) (*big.Int, error) {
	started := time.Now()
	bal, err := c.ec.BalanceAt(ctx, gethcommon.HexToAddress(address), nil)
	if err != nil {
		return nil, c.rpcErr("getBalance", started, err)
	}
	return bal, nil
}

// TokenBalance returns the stable-token balance in base units.
func (c *EVMClient) TokenBalance(ctx context.Context, address string) (*big.Int, error) {
	out, err := c.callERC20(ctx, "balanceOf", gethcommon.HexToAddress(address))
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Allowance returns the stable-token allowance in base units.
func (c *EVMClient) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	out, err := c.callERC20(ctx, "allowance", gethcommon.HexToAddress(owner), gethcommon.HexToAddress(spender))
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// TokenInfo reads name, symbol and decimals from the stable token.
func (c *EVMClient) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	name, err := c.callERC20(ctx, "name")
	if err != nil {
		return nil, err
	}
	symbol, err := c.callERC20(ctx, "symbol")
	if err != nil {
		return nil, err
	}
	decimals, err := c.callERC20(ctx, "decimals")
	if err != nil {
		return nil, err
	}
	return &TokenInfo{
		Name:     name[0].(string),
		Symbol:   symbol[0].(string),
		Decimals: decimals[0].(uint8),
	}, nil
}

// CanHarvest asks the vault whether the signer may harvest.
func (c *EVMClient) CanHarvest(ctx context.Context, signer string) (bool, error) {
	out, err := c.callVault(ctx, "canHarvest", gethcommon.HexToAddress(signer))
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// LastHarvest returns the on-chain timestamp of the last harvest.
func (c *EVMClient) LastHarvest(ctx context.Context) (time.Time, error) {
	out, err := c.callVault(ctx, "lastHarvest")
	if err != nil {
		return time.Time{}, err
	}
	ts := out[0].(*big.Int)
	return time.Unix(ts.Int64(), 0), nil
}

// StaticCallHarvest dry-runs harvestAndRoute without committing state.
// A revert is an expected "not eligible" outcome, not a fault.
func (c *EVMClient) StaticCallHarvest(ctx context.Context, from string) error {
	data, err := c.vaultABI.Pack("harvestAndRoute")
	if err != nil {
		return fmt.Errorf("failed to pack harvestAndRoute: %w", err)
	}
	started := time.Now()
	_, err = c.ec.CallContract(ctx, ethereum.CallMsg{
		From: gethcommon.HexToAddress(from),
		To:   &c.vault,
		Data: data,
	}, nil)
	if err != nil {
		return c.rpcErr("staticCall harvestAndRoute", started, err)
	}
	return nil
}

// EstimateHarvestGas estimates gas for harvestAndRoute.
func (c *EVMClient) EstimateHarvestGas(ctx context.Context, from string) (uint64, error) {
	data, err := c.vaultABI.Pack("harvestAndRoute")
	if err != nil {
		return 0, fmt.Errorf("failed to pack harvestAndRoute: %w", err)
	}
	started := time.Now()
	gas, err := c.ec.EstimateGas(ctx, ethereum.CallMsg{
		From: gethcommon.HexToAddress(from),
		To:   &c.vault,
		Data: data,
	})
	if err != nil {
		return 0, c.rpcErr("estimateGas harvestAndRoute", started, err)
	}
	return gas, nil
}

// GasPrice returns the suggested gas price in wei.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	started := time.Now()
	price, err := c.ec.SuggestGasPrice(ctx)
	if err != nil {
		return nil, c.rpcErr("gasPrice", started, err)
	}
	return price, nil
}

// SubmitHarvest signs and sends the harvestAndRoute transaction.
// Callers must have passed a successful StaticCallHarvest first; this
// method is never invoked speculatively.
func (c *EVMClient) SubmitHarvest(ctx context.Context, key *ecdsa.PrivateKey, gasLimit uint64, gasPrice *big.Int) (string, error) {
	from := gethcrypto.PubkeyToAddress(key.PublicKey)

	data, err := c.vaultABI.Pack("harvestAndRoute")
	if err != nil {
		return "", fmt.Errorf("failed to pack harvestAndRoute: %w", err)
	}

	started := time.Now()
	nonce, err := c.ec.PendingNonceAt(ctx, from)
	if err != nil {
		return "", c.rpcErr("getNonce", started, err)
	}

	tx := types.NewTransaction(nonce, c.vault, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	started = time.Now()
	if err := c.ec.SendTransaction(ctx, signed); err != nil {
		return "", c.rpcErr("sendTransaction", started, err)
	}
	return signed.Hash().Hex(), nil
}

func (c *EVMClient) callERC20(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	return c.call(ctx, c.erc20ABI, c.token, method, args...)
}

func (c *EVMClient) callVault(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	return c.call(ctx, c.vaultABI, c.vault, method, args...)
}

func (c *EVMClient) call(ctx context.Context, contractABI abi.ABI, to gethcommon.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	started := time.Now()
	raw, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, c.rpcErr(method, started, err)
	}

	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return out, nil
}

func (c *EVMClient) rpcErr(op string, started time.Time, err error) error {
	return &model.RpcError{Op: op, Latency: time.Since(started), Err: err}
}
