// Package verify implements the identity verification gate that guards
// custody-creating wallet operations. A session verifies once, via email
// OTP or a passkey ceremony, and stays verified until teardown.
package verify

import (
	"context"
	"sync"
	"time"

	"github.com/sequencetheory/vaultclub/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultOTPTTL = 10 * time.Minute

// TurnkeyAPI is the slice of the verification backend the gate needs.
type TurnkeyAPI interface {
	InitEmailAuth(ctx context.Context, email string) (devOTP string, err error)
	VerifyEmailOTP(ctx context.Context, email, code string) (bool, error)
	VerifyPasskey(ctx context.Context, credentialID string) (bool, error)
}

// Gate holds the per-session verification state machine.
// Email: Idle -> OtpSent -> OtpVerified. Passkey: Idle -> ChallengeIssued -> Verified.
type Gate struct {
	mu          sync.Mutex
	tk          TurnkeyAPI
	log         *zap.Logger
	allowDevOTP bool
	otpTTL      time.Duration
	now         func() time.Time

	state model.VerificationState
	email string
}

// NewGate creates an unverified gate. allowDevOTP must be false in
// production: the development-mode code path must never leak there.
func NewGate(tk TurnkeyAPI, allowDevOTP bool, log *zap.Logger) *Gate {
	return &Gate{
		tk:          tk,
		log:         log,
		allowDevOTP: allowDevOTP,
		otpTTL:      defaultOTPTTL,
		now:         time.Now,
		state: model.VerificationState{
			Method: model.MethodNone,
			Status: model.StatusUnverified,
		},
	}
}

// InitEmailAuth issues a one-time code for the email and moves the gate
// to OtpSent. The returned dev OTP is empty unless development mode is on.
func (g *Gate) InitEmailAuth(ctx context.Context, email string) (string, error) {
	devOTP, err := g.tk.InitEmailAuth(ctx, email)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.email = email
	g.state = model.VerificationState{
		Method:      model.MethodEmail,
		Status:      model.StatusPending,
		ChallengeID: uuid.NewString(),
		ExpiresAt:   g.now().Add(g.otpTTL),
	}
	g.log.Debug("email OTP issued", zap.String("challenge_id", g.state.ChallengeID))

	if !g.allowDevOTP {
		return "", nil
	}
	return devOTP, nil
}

// VerifyOTP checks the submitted code. A wrong code returns
// model.ErrInvalidCode and leaves the gate in OtpSent so the user can
// retry without a re-send; an expired code requires a new init.
func (g *Gate) VerifyOTP(ctx context.Context, code string) error {
	g.mu.Lock()
	if g.state.Method != model.MethodEmail || g.state.Status != model.StatusPending {
		g.mu.Unlock()
		return model.ErrNoChallenge
	}
	email := g.email
	expiresAt := g.state.ExpiresAt
	g.mu.Unlock()

	if !validOTPFormat(code) {
		return model.ErrInvalidCode
	}
	if g.now().After(expiresAt) {
		return model.ErrCodeExpired
	}

	ok, err := g.tk.VerifyEmailOTP(ctx, email, code)
	if err != nil {
		return err
	}
	if !ok {
		// Stay in OtpSent; retry is allowed until expiry.
		return model.ErrInvalidCode
	}

	g.mu.Lock()
	g.state.Status = model.StatusVerified
	g.mu.Unlock()
	g.log.Info("session verified", zap.String("method", "email"))
	return nil
}

// BeginPasskey starts the platform authenticator ceremony and returns the
// challenge id the authenticator must sign.
func (g *Gate) BeginPasskey() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = model.VerificationState{
		Method:      model.MethodPasskey,
		Status:      model.StatusPending,
		ChallengeID: uuid.NewString(),
	}
	return g.state.ChallengeID
}

// CompletePasskey finishes the ceremony. An empty credential id means the
// user or OS cancelled; that is model.ErrUserCancelled, distinct from a
// failed verification, and the challenge stays open for retry or email
// fallback.
func (g *Gate) CompletePasskey(ctx context.Context, credentialID string) error {
	g.mu.Lock()
	if g.state.Method != model.MethodPasskey || g.state.Status != model.StatusPending {
		g.mu.Unlock()
		return model.ErrNoChallenge
	}
	g.mu.Unlock()

	if credentialID == "" {
		return model.ErrUserCancelled
	}

	ok, err := g.tk.VerifyPasskey(ctx, credentialID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrPasskeyFailed
	}

	g.mu.Lock()
	g.state.Status = model.StatusVerified
	g.mu.Unlock()
	g.log.Info("session verified", zap.String("method", "passkey"))
	return nil
}

// IsVerified is the single predicate custody operations consult.
// Once true it stays true for the session.
func (g *Gate) IsVerified() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Status == model.StatusVerified
}

// State returns a copy of the current verification state.
func (g *Gate) State() model.VerificationState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Reset drops the session back to unverified. Called on session teardown
// or explicit back-navigation.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.email = ""
	g.state = model.VerificationState{
		Method: model.MethodNone,
		Status: model.StatusUnverified,
	}
}

func validOTPFormat(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
