package handler

import (
	"net/http"

	"github.com/sequencetheory/vaultclub/harvest"
	"github.com/sequencetheory/vaultclub/internal/model"

	"go.uber.org/zap"
)

// HarvestHandler exposes the harvest automation over HTTP. The endpoints
// share the scheduler with the cron trigger; concurrent runs are serialized
// by the scheduler itself.
type HarvestHandler struct {
	scheduler *harvest.Scheduler
	log       *zap.Logger
}

// NewHarvestHandler creates a harvest handler.
func NewHarvestHandler(scheduler *harvest.Scheduler, log *zap.Logger) *HarvestHandler {
	return &HarvestHandler{scheduler: scheduler, log: log}
}

// Run handles POST /harvest/run
// @Summary      Trigger a harvest attempt
// @Description  Walks the eligibility ladder and submits harvestAndRoute if every gate passes. Ineligibility is a normal 200 with executed=false.
// @Tags         harvest
// @Produce      json
// @Success      200  {object}  model.HarvestRunResponse
// @Failure      502  {object}  model.ErrorResponse
// @Router       /harvest/run [post]
func (h *HarvestHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	executed, err := h.scheduler.RunIfEligible(r.Context())
	if err != nil {
		h.log.Warn("manual harvest attempt failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{Error: err.Error()})
		return
	}

	resp := model.HarvestRunResponse{Executed: executed}
	if executed {
		resp.TxHash = h.scheduler.LastTxHash()
	} else {
		resp.Reason = "not eligible this cycle"
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /harvest/status
// @Summary      Get harvest automation status
// @Tags         harvest
// @Produce      json
// @Success      200  {object}  model.HarvestStatusResponse
// @Router       /harvest/status [get]
func (h *HarvestHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.scheduler.Status())
}
