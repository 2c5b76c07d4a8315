package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sequencetheory/vaultclub/harvest"
	"github.com/sequencetheory/vaultclub/internal/api"
	"github.com/sequencetheory/vaultclub/internal/client"
	"github.com/sequencetheory/vaultclub/internal/handler"
	"github.com/sequencetheory/vaultclub/internal/model"
	"github.com/sequencetheory/vaultclub/internal/store"
	"github.com/sequencetheory/vaultclub/verify"
	"github.com/sequencetheory/vaultclub/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTurnkey struct {
	otp string
}

func (f *fakeTurnkey) InitEmailAuth(_ context.Context, _ string) (string, error) {
	f.otp = "483920"
	return f.otp, nil
}

func (f *fakeTurnkey) VerifyEmailOTP(_ context.Context, _, code string) (bool, error) {
	return code == f.otp, nil
}

func (f *fakeTurnkey) VerifyPasskey(_ context.Context, credentialID string) (bool, error) {
	return credentialID == "cred-ok", nil
}

type fakeChain struct {
	native    *big.Int
	token     *big.Int
	allowance *big.Int
	err       error
}

func (c *fakeChain) Balance(_ context.Context, _ string) (*big.Int, error) {
	return c.native, c.err
}

func (c *fakeChain) TokenBalance(_ context.Context, _ string) (*big.Int, error) {
	return c.token, c.err
}

func (c *fakeChain) Allowance(_ context.Context, _, _ string) (*big.Int, error) {
	return c.allowance, c.err
}

func (c *fakeChain) TokenInfo(_ context.Context) (*client.TokenInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &client.TokenInfo{Name: "Test USD", Symbol: "TUSD", Decimals: 6}, nil
}

type fakePrices struct{ price float64 }

func (p *fakePrices) NativeTokenUSD(_ context.Context) (float64, error) { return p.price, nil }

func newTestServer(t *testing.T) (*httptest.Server, *fakeTurnkey) {
	t.Helper()
	log := zap.NewNop()
	tk := &fakeTurnkey{}
	gate := verify.NewGate(tk, true, log)
	engine := wallet.NewEngine("user-1", "user@example.com", "user", "amoy", gate, store.NewMemoryStore(), nil, log)

	chain := &fakeChain{
		native:    big.NewInt(1_500_000_000_000_000_000), // 1.5
		token:     big.NewInt(42_000_000),                // 42.00 at 6 decimals
		allowance: big.NewInt(100_000_000),
	}
	scheduler := harvest.NewScheduler(harvest.Config{},
		nil, nil, nil, nil, store.NewLocalState(filepath.Join(t.TempDir(), "state.json")), log)

	srv := httptest.NewServer(api.SetupRouter(api.Handlers{
		Wallet:  handler.NewWalletHandler(engine, chain, &fakePrices{price: 0.52}, "0x00000000000000000000000000000000000000aa", 6, log),
		Verify:  handler.NewVerifyHandler(gate, log),
		Harvest: handler.NewHarvestHandler(scheduler, log),
		Health:  handler.NewHealthHandler("development", false, func(context.Context) error { return nil }),
	}))
	t.Cleanup(srv.Close)
	return srv, tk
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func verifySession(t *testing.T, srv *httptest.Server) {
	t.Helper()
	var init model.InitEmailAuthResponse
	decode(t, postJSON(t, srv.URL+"/verify/email/init", model.InitEmailAuthRequest{Email: "user@example.com"}), &init)
	require.NotEmpty(t, init.DevOTP)

	resp := postJSON(t, srv.URL+"/verify/email/otp", model.VerifyOTPRequest{Code: init.DevOTP})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCustodyEndpointsRequireVerification(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/wallet/create", model.CreateWalletRequest{Password: "correcthorsebattery"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body model.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "NOT_VERIFIED", body.Error)
}

func TestEmailVerificationFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	// Wrong code is retryable.
	verifyURL := srv.URL + "/verify/email/otp"
	var init model.InitEmailAuthResponse
	decode(t, postJSON(t, srv.URL+"/verify/email/init", model.InitEmailAuthRequest{Email: "user@example.com"}), &init)

	resp := postJSON(t, verifyURL, model.VerifyOTPRequest{Code: "000000"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	var status model.VerificationStatusResponse
	decode(t, postJSON(t, verifyURL, model.VerifyOTPRequest{Code: init.DevOTP}), &status)
	assert.True(t, status.Verified)
	assert.Equal(t, "email", status.Method)
}

func TestPasskeyCancellation(t *testing.T) {
	srv, _ := newTestServer(t)

	// Empty credential means the user cancelled the ceremony.
	resp := postJSON(t, srv.URL+"/verify/passkey", model.VerifyPasskeyRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	var status model.VerificationStatusResponse
	decode(t, postJSON(t, srv.URL+"/verify/passkey", model.VerifyPasskeyRequest{CredentialID: "cred-ok"}), &status)
	assert.True(t, status.Verified)
	assert.Equal(t, "passkey", status.Method)
}

func TestWalletLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	verifySession(t, srv)

	var created model.CreateWalletResponse
	decode(t, postJSON(t, srv.URL+"/wallet/create", model.CreateWalletRequest{Password: "correcthorsebattery"}), &created)
	require.NotEmpty(t, created.Mnemonic)
	require.NotEmpty(t, created.Address)

	// Duplicate create conflicts.
	resp := postJSON(t, srv.URL+"/wallet/create", model.CreateWalletRequest{Password: "correcthorsebattery"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/wallet/confirm-backup", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Wrong export password is 401; the wallet is untouched.
	resp = postJSON(t, srv.URL+"/wallet/export/seed", model.ExportRequest{Password: "wrongpassword"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	var exported model.ExportResponse
	decode(t, postJSON(t, srv.URL+"/wallet/export/seed", model.ExportRequest{Password: "correcthorsebattery"}), &exported)
	assert.Equal(t, created.Mnemonic, exported.Secret)

	var info model.WalletInfoResponse
	res, err := http.Get(srv.URL + "/wallet/info")
	require.NoError(t, err)
	decode(t, res, &info)
	assert.True(t, info.HasWallet)
	assert.Equal(t, created.Address, info.Address)
}

func TestBalanceEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	verifySession(t, srv)

	// No wallet yet.
	res, err := http.Get(srv.URL + "/wallet/balance")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()

	var created model.CreateWalletResponse
	decode(t, postJSON(t, srv.URL+"/wallet/create", model.CreateWalletRequest{Password: "correcthorsebattery"}), &created)

	var bal model.BalanceResponse
	res, err = http.Get(srv.URL + "/wallet/balance")
	require.NoError(t, err)
	decode(t, res, &bal)
	assert.Equal(t, created.Address, bal.Address)
	assert.Equal(t, "1.500000000000000000", bal.Native)
	assert.Equal(t, "42.000000", bal.Token)
	assert.Equal(t, "0.5200", bal.Rate)
}

func TestTokenEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	verifySession(t, srv)

	var created model.CreateWalletResponse
	decode(t, postJSON(t, srv.URL+"/wallet/create", model.CreateWalletRequest{Password: "correcthorsebattery"}), &created)

	var token model.TokenResponse
	res, err := http.Get(srv.URL + "/wallet/token")
	require.NoError(t, err)
	decode(t, res, &token)
	assert.Equal(t, "TUSD", token.Symbol)
	assert.Equal(t, uint8(6), token.Decimals)
	assert.Equal(t, "100.000000", token.VaultAllowance)
}

func TestHarvestEndpointsWhenDisabled(t *testing.T) {
	srv, _ := newTestServer(t)

	var run model.HarvestRunResponse
	decode(t, postJSON(t, srv.URL+"/harvest/run", struct{}{}), &run)
	assert.False(t, run.Executed)
	assert.NotEmpty(t, run.Reason)

	var status model.HarvestStatusResponse
	res, err := http.Get(srv.URL + "/harvest/status")
	require.NoError(t, err)
	decode(t, res, &status)
	assert.False(t, status.Enabled)
}

func TestHealthProbe(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var body map[string]interface{}
	decode(t, res, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["rpc_ok"])
}

func TestMethodGuards(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/wallet/create")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	res.Body.Close()

	res, err = http.Post(srv.URL+"/wallet/info", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	res.Body.Close()
}

func TestBalanceChainFailureIsBadGateway(t *testing.T) {
	log := zap.NewNop()
	tk := &fakeTurnkey{}
	gate := verify.NewGate(tk, true, log)
	engine := wallet.NewEngine("user-1", "user@example.com", "user", "amoy", gate, store.NewMemoryStore(), nil, log)
	chain := &fakeChain{err: errors.New("rpc getBalance failed after 30ms: connection refused")}

	h := handler.NewWalletHandler(engine, chain, nil, "", 6, log)

	// Verified session with a wallet, then a failing node.
	_, err := gate.InitEmailAuth(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.NoError(t, gate.VerifyOTP(context.Background(), tk.otp))
	_, err = engine.Create(context.Background(), "correcthorsebattery")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Balance(rec, httptest.NewRequest(http.MethodGet, "/wallet/balance", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
