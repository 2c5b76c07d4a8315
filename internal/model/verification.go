package model

import "time"

// VerificationMethod is how the user proved their identity this session.
type VerificationMethod string

const (
	MethodNone    VerificationMethod = "none"
	MethodEmail   VerificationMethod = "email"
	MethodPasskey VerificationMethod = "passkey"
)

// VerificationStatus is the gate position for custody-creating operations.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusPending    VerificationStatus = "pending"
	StatusVerified   VerificationStatus = "verified"
)

// VerificationState is ephemeral, per session. It resets on session teardown.
type VerificationState struct {
	Method      VerificationMethod `json:"method"`
	Status      VerificationStatus `json:"status"`
	ChallengeID string             `json:"challenge_id,omitempty"`
	ExpiresAt   time.Time          `json:"expires_at,omitempty"`
}

// InitEmailAuthRequest represents request for POST /verify/email/init
type InitEmailAuthRequest struct {
	Email string `json:"email"`
}

// InitEmailAuthResponse represents response for POST /verify/email/init.
// DevOTP is populated only outside production.
type InitEmailAuthResponse struct {
	OK     bool   `json:"ok"`
	DevOTP string `json:"dev_otp,omitempty"`
}

// VerifyOTPRequest represents request for POST /verify/email/otp
type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"otp_code"`
}

// VerifyPasskeyRequest represents request for POST /verify/passkey
type VerifyPasskeyRequest struct {
	CredentialID string `json:"credential_id"`
}

// VerificationStatusResponse represents response for GET /verify/status
type VerificationStatusResponse struct {
	Verified bool   `json:"verified"`
	Method   string `json:"method"`
	Status   string `json:"status"`
}
