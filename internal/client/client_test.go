package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sequencetheory/vaultclub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinGeckoNativeTokenUSD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "ids=matic-network")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"matic-network":{"usd":0.52}}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient("matic-network")
	c.baseURL = srv.URL

	price, err := c.NativeTokenUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.52, price)
}

func TestCoinGeckoMissingCoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient("matic-network")
	c.baseURL = srv.URL

	_, err := c.NativeTokenUSD(context.Background())
	assert.Error(t, err)
}

func TestLedgerRecordHarvest(t *testing.T) {
	var gotIdem, gotAPIKey string
	var gotBody harvestLedgerRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vault-harvest", r.URL.Path)
		gotIdem = r.Header.Get("x-idempotency-key")
		gotAPIKey = r.Header.Get("x-vault-club-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewLedgerClient(srv.URL, "service-key", "token-1")
	err := c.RecordHarvest(context.Background(), "global", "0xdeadbeef", "idem-1")
	require.NoError(t, err)
	assert.Equal(t, "idem-1", gotIdem)
	assert.Equal(t, "service-key", gotAPIKey)
	assert.Equal(t, "global", gotBody.SubclubID)
	assert.Equal(t, "0xdeadbeef", gotBody.TxHash)
}

func TestLedgerDuplicateIsNotAnError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusOK)
			return
		}
		// Backend dedupes on tx_hash.
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewLedgerClient(srv.URL, "service-key", "token-1")
	require.NoError(t, c.RecordHarvest(context.Background(), "global", "0xsame", "idem-1"))
	require.NoError(t, c.RecordHarvest(context.Background(), "global", "0xsame", "idem-2"))
	assert.Equal(t, 2, calls)
}

func TestLedgerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewLedgerClient(srv.URL, "service-key", "token-1")
	assert.Error(t, c.RecordHarvest(context.Background(), "global", "0xdead", "idem-1"))
}

func TestTurnkeyInitEmailAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/turnkey/init-email-auth", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["email"])
		w.Write([]byte(`{"ok":true,"dev_otp":"483920"}`))
	}))
	defer srv.Close()

	c := NewTurnkeyClient(srv.URL, "token-1")
	devOTP, err := c.InitEmailAuth(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "483920", devOTP)
}

func TestTurnkeyVerifyEmailOTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		verified := body["otp_code"] == "483920"
		json.NewEncoder(w).Encode(map[string]bool{"verified": verified})
	}))
	defer srv.Close()

	c := NewTurnkeyClient(srv.URL, "token-1")

	ok, err := c.VerifyEmailOTP(context.Background(), "user@example.com", "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.VerifyEmailOTP(context.Background(), "user@example.com", "483920")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTurnkeyCreateWallet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/turnkey/create-wallet", r.URL.Path)
		w.Write([]byte(`{"success":true,"wallet_address":"0x1234"}`))
	}))
	defer srv.Close()

	c := NewTurnkeyClient(srv.URL, "token-1")
	addr, err := c.CreateWallet(context.Background(), "user@example.com", "user", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "0x1234", addr)
}

func TestEVMBalanceAndRpcError(t *testing.T) {
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32000,"message":"node down"}}`))
			return
		}
		switch req.Method {
		case "eth_getBalance":
			w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":"0xde0b6b3a7640000"}`)) // 1e18
		case "eth_gasPrice":
			w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":"0x3b9aca00"}`)) // 1 gwei
		default:
			w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":"0x"}`))
		}
	}))
	defer srv.Close()

	c, err := NewEVMClient(srv.URL, 80002, "0x0000000000000000000000000000000000000001", "0x0000000000000000000000000000000000000002")
	require.NoError(t, err)

	bal, err := c.Balance(context.Background(), "0x0000000000000000000000000000000000000003")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", bal.String())

	price, err := c.GasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1000000000", price.String())

	fail = true
	_, err = c.Balance(context.Background(), "0x0000000000000000000000000000000000000003")
	require.Error(t, err)
	var rpcErr *model.RpcError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "getBalance", rpcErr.Op)
}
