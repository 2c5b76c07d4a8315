package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TurnkeyClient talks to the Turnkey verification backend: email OTP and
// passkey challenge verification, plus TEE-custodial wallet creation.
type TurnkeyClient struct {
	baseURL string
	bearer  string
	client  *http.Client
}

// NewTurnkeyClient creates a client for the verification backend.
func NewTurnkeyClient(baseURL, bearer string) *TurnkeyClient {
	return &TurnkeyClient{
		baseURL: baseURL,
		bearer:  bearer,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Configured reports whether a backend URL is set. Used by health checks.
func (c *TurnkeyClient) Configured() bool {
	return c.baseURL != ""
}

// InitEmailAuth asks the backend to issue a one-time code for the email.
// The returned dev OTP is non-empty only when the backend runs outside
// production; callers decide whether it may be surfaced.
func (c *TurnkeyClient) InitEmailAuth(ctx context.Context, email string) (string, error) {
	var out struct {
		OK     bool   `json:"ok"`
		DevOTP string `json:"dev_otp"`
	}
	if err := c.post(ctx, "/turnkey/init-email-auth", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	if !out.OK {
		return "", fmt.Errorf("backend refused to issue OTP")
	}
	return out.DevOTP, nil
}

// VerifyEmailOTP checks the submitted code against the server-recorded one.
func (c *TurnkeyClient) VerifyEmailOTP(ctx context.Context, email, code string) (bool, error) {
	var out struct {
		Verified bool `json:"verified"`
	}
	err := c.post(ctx, "/turnkey/verify-email-otp", map[string]string{"email": email, "otp_code": code}, &out)
	if err != nil {
		return false, err
	}
	return out.Verified, nil
}

// VerifyPasskey verifies a signed passkey challenge server-side.
func (c *TurnkeyClient) VerifyPasskey(ctx context.Context, credentialID string) (bool, error) {
	var out struct {
		Verified bool `json:"verified"`
	}
	err := c.post(ctx, "/turnkey/verify-passkey", map[string]string{"credential_id": credentialID}, &out)
	if err != nil {
		return false, err
	}
	return out.Verified, nil
}

// CreateWallet provisions a TEE-custodial wallet for a verified user.
func (c *TurnkeyClient) CreateWallet(ctx context.Context, email, name, userID string) (string, error) {
	var out struct {
		Success       bool   `json:"success"`
		WalletAddress string `json:"wallet_address"`
	}
	body := map[string]string{"email": email, "name": name, "user_id": userID}
	if err := c.post(ctx, "/turnkey/create-wallet", body, &out); err != nil {
		return "", err
	}
	if !out.Success || out.WalletAddress == "" {
		return "", fmt.Errorf("wallet creation failed")
	}
	return out.WalletAddress, nil
}

// VerificationStatus reads the server-side verified flag for the session.
func (c *TurnkeyClient) VerificationStatus(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/turnkey/verification-status", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to get verification status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("failed to get verification status: status %d", resp.StatusCode)
	}

	var out struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode verification status: %w", err)
	}
	return out.Verified, nil
}

func (c *TurnkeyClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request to %s failed: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
