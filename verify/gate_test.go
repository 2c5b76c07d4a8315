package verify

import (
	"context"
	"testing"
	"time"

	"github.com/sequencetheory/vaultclub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeTurnkey records an issued code and verifies against it, mimicking
// the server-side exact-match check.
type fakeTurnkey struct {
	issuedCode  string
	devOTP      string
	passkeyOK   bool
	initCalls   int
	verifyCalls int
}

func (f *fakeTurnkey) InitEmailAuth(_ context.Context, _ string) (string, error) {
	f.initCalls++
	return f.devOTP, nil
}

func (f *fakeTurnkey) VerifyEmailOTP(_ context.Context, _, code string) (bool, error) {
	f.verifyCalls++
	return code == f.issuedCode, nil
}

func (f *fakeTurnkey) VerifyPasskey(_ context.Context, _ string) (bool, error) {
	return f.passkeyOK, nil
}

func TestEmailOTPFlow(t *testing.T) {
	ctx := context.Background()
	tk := &fakeTurnkey{issuedCode: "483920", devOTP: "483920"}
	g := NewGate(tk, true, zap.NewNop())

	assert.False(t, g.IsVerified())

	devOTP, err := g.InitEmailAuth(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "483920", devOTP)
	assert.Equal(t, model.StatusPending, g.State().Status)
	assert.Equal(t, model.MethodEmail, g.State().Method)

	// Wrong code: InvalidCodeError, state remains OtpSent, retry allowed.
	err = g.VerifyOTP(ctx, "000000")
	assert.ErrorIs(t, err, model.ErrInvalidCode)
	assert.Equal(t, model.StatusPending, g.State().Status)
	assert.False(t, g.IsVerified())
	assert.Equal(t, 1, tk.initCalls, "retry must not re-send the code")

	require.NoError(t, g.VerifyOTP(ctx, "483920"))
	assert.True(t, g.IsVerified())
}

func TestDevOTPHiddenInProduction(t *testing.T) {
	tk := &fakeTurnkey{issuedCode: "123456", devOTP: "123456"}
	g := NewGate(tk, false, zap.NewNop())

	devOTP, err := g.InitEmailAuth(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Empty(t, devOTP)
}

func TestMalformedOTPRejectedWithoutBackendCall(t *testing.T) {
	ctx := context.Background()
	tk := &fakeTurnkey{issuedCode: "483920"}
	g := NewGate(tk, false, zap.NewNop())

	_, err := g.InitEmailAuth(ctx, "user@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, g.VerifyOTP(ctx, "12345"), model.ErrInvalidCode)
	assert.ErrorIs(t, g.VerifyOTP(ctx, "12345a"), model.ErrInvalidCode)
	assert.Equal(t, 0, tk.verifyCalls)
}

func TestOTPExpiry(t *testing.T) {
	ctx := context.Background()
	tk := &fakeTurnkey{issuedCode: "483920"}
	g := NewGate(tk, false, zap.NewNop())

	_, err := g.InitEmailAuth(ctx, "user@example.com")
	require.NoError(t, err)

	g.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	assert.ErrorIs(t, g.VerifyOTP(ctx, "483920"), model.ErrCodeExpired)
	assert.False(t, g.IsVerified())
}

func TestVerifyWithoutChallenge(t *testing.T) {
	g := NewGate(&fakeTurnkey{}, false, zap.NewNop())
	assert.ErrorIs(t, g.VerifyOTP(context.Background(), "483920"), model.ErrNoChallenge)
	assert.ErrorIs(t, g.CompletePasskey(context.Background(), "cred-1"), model.ErrNoChallenge)
}

func TestPasskeyFlow(t *testing.T) {
	ctx := context.Background()
	tk := &fakeTurnkey{passkeyOK: true}
	g := NewGate(tk, false, zap.NewNop())

	challengeID := g.BeginPasskey()
	assert.NotEmpty(t, challengeID)
	assert.Equal(t, model.MethodPasskey, g.State().Method)

	require.NoError(t, g.CompletePasskey(ctx, "cred-1"))
	assert.True(t, g.IsVerified())
}

func TestPasskeyCancellationIsDistinguished(t *testing.T) {
	ctx := context.Background()
	tk := &fakeTurnkey{passkeyOK: false}
	g := NewGate(tk, false, zap.NewNop())

	g.BeginPasskey()

	// Cancellation is not a verification failure.
	err := g.CompletePasskey(ctx, "")
	assert.ErrorIs(t, err, model.ErrUserCancelled)
	assert.NotErrorIs(t, err, model.ErrPasskeyFailed)

	// Challenge stays open: immediate retry is allowed.
	err = g.CompletePasskey(ctx, "cred-1")
	assert.ErrorIs(t, err, model.ErrPasskeyFailed)

	// Fallback to email still works after cancellation.
	tk.issuedCode = "111222"
	_, err = g.InitEmailAuth(ctx, "user@example.com")
	require.NoError(t, err)
	require.NoError(t, g.VerifyOTP(ctx, "111222"))
	assert.True(t, g.IsVerified())
}

func TestResetDropsVerification(t *testing.T) {
	ctx := context.Background()
	tk := &fakeTurnkey{issuedCode: "483920"}
	g := NewGate(tk, false, zap.NewNop())

	_, err := g.InitEmailAuth(ctx, "user@example.com")
	require.NoError(t, err)
	require.NoError(t, g.VerifyOTP(ctx, "483920"))
	require.True(t, g.IsVerified())

	g.Reset()
	assert.False(t, g.IsVerified())
	assert.Equal(t, model.StatusUnverified, g.State().Status)
	assert.Equal(t, model.MethodNone, g.State().Method)
}
