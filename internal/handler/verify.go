package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sequencetheory/vaultclub/internal/model"
	"github.com/sequencetheory/vaultclub/verify"

	"go.uber.org/zap"
)

// VerifyHandler exposes the identity verification gate over HTTP.
type VerifyHandler struct {
	gate *verify.Gate
	log  *zap.Logger
}

// NewVerifyHandler creates a verification handler.
func NewVerifyHandler(gate *verify.Gate, log *zap.Logger) *VerifyHandler {
	return &VerifyHandler{gate: gate, log: log}
}

// InitEmailAuth handles POST /verify/email/init
// @Summary      Request an email OTP
// @Description  Sends a one-time code to the email. The dev_otp field is populated only outside production.
// @Tags         verify
// @Accept       json
// @Produce      json
// @Param        request  body      model.InitEmailAuthRequest  true  "Email address"
// @Success      200      {object}  model.InitEmailAuthResponse
// @Router       /verify/email/init [post]
func (h *VerifyHandler) InitEmailAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.InitEmailAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "email is required"})
		return
	}

	devOTP, err := h.gate.InitEmailAuth(r.Context(), req.Email)
	if err != nil {
		h.log.Warn("email auth init failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, model.InitEmailAuthResponse{OK: true, DevOTP: devOTP})
}

// VerifyOTP handles POST /verify/email/otp
// @Summary      Submit the email OTP
// @Description  A wrong code may be retried until the challenge expires; an expired code requires a new init.
// @Tags         verify
// @Accept       json
// @Produce      json
// @Param        request  body      model.VerifyOTPRequest  true  "OTP code"
// @Success      200      {object}  model.VerificationStatusResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /verify/email/otp [post]
func (h *VerifyHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.gate.VerifyOTP(r.Context(), req.Code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.statusResponse())
}

// VerifyPasskey handles POST /verify/passkey
// @Summary      Complete a passkey ceremony
// @Description  An empty credential_id means the user cancelled; the challenge stays open for retry or email fallback.
// @Tags         verify
// @Accept       json
// @Produce      json
// @Param        request  body      model.VerifyPasskeyRequest  true  "Signed credential"
// @Success      200      {object}  model.VerificationStatusResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /verify/passkey [post]
func (h *VerifyHandler) VerifyPasskey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.VerifyPasskeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	// The ceremony is single-shot from the client's view: issue the
	// challenge here if none is pending.
	state := h.gate.State()
	if state.Method != model.MethodPasskey || state.Status != model.StatusPending {
		h.gate.BeginPasskey()
	}

	if err := h.gate.CompletePasskey(r.Context(), req.CredentialID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.statusResponse())
}

// Status handles GET /verify/status
// @Summary      Get verification status
// @Tags         verify
// @Produce      json
// @Success      200  {object}  model.VerificationStatusResponse
// @Router       /verify/status [get]
func (h *VerifyHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.statusResponse())
}

// Reset handles POST /verify/reset
// @Summary      Drop the session back to unverified
// @Tags         verify
// @Produce      json
// @Success      200  {object}  model.VerificationStatusResponse
// @Router       /verify/reset [post]
func (h *VerifyHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	h.gate.Reset()
	writeJSON(w, http.StatusOK, h.statusResponse())
}

func (h *VerifyHandler) statusResponse() model.VerificationStatusResponse {
	state := h.gate.State()
	return model.VerificationStatusResponse{
		Verified: state.Status == model.StatusVerified,
		Method:   string(state.Method),
		Status:   string(state.Status),
	}
}
