package api

import (
	"net/http"

	"github.com/sequencetheory/vaultclub/internal/handler"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Handlers groups the constructed handlers the router wires up.
type Handlers struct {
	Wallet  *handler.WalletHandler
	Verify  *handler.VerifyHandler
	Harvest *handler.HarvestHandler
	Health  *handler.HealthHandler
}

// SetupRouter sets up the HTTP mux with all endpoints.
func SetupRouter(h Handlers) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	mux.HandleFunc("/health", h.Health.Health)

	// Verification
	mux.HandleFunc("/verify/email/init", h.Verify.InitEmailAuth)
	mux.HandleFunc("/verify/email/otp", h.Verify.VerifyOTP)
	mux.HandleFunc("/verify/passkey", h.Verify.VerifyPasskey)
	mux.HandleFunc("/verify/status", h.Verify.Status)
	mux.HandleFunc("/verify/reset", h.Verify.Reset)

	// Wallet custody
	mux.HandleFunc("/wallet", h.Wallet.Delete)
	mux.HandleFunc("/wallet/create", h.Wallet.Create)
	mux.HandleFunc("/wallet/create-tee", h.Wallet.CreateTEE)
	mux.HandleFunc("/wallet/import", h.Wallet.Import)
	mux.HandleFunc("/wallet/confirm-backup", h.Wallet.ConfirmBackup)
	mux.HandleFunc("/wallet/export/seed", h.Wallet.ExportSeed)
	mux.HandleFunc("/wallet/export/key", h.Wallet.ExportKey)
	mux.HandleFunc("/wallet/info", h.Wallet.Info)
	mux.HandleFunc("/wallet/balance", h.Wallet.Balance)
	mux.HandleFunc("/wallet/token", h.Wallet.Token)

	// Harvest automation
	mux.HandleFunc("/harvest/run", h.Harvest.Run)
	mux.HandleFunc("/harvest/status", h.Harvest.Status)

	return mux
}
