package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coinflip/internal/repository"
)

// PayoutHandler exposes the durable payout record for one round, so a
// winner holding a pending or failed payout can check where it stands.
type PayoutHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *PayoutHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/payouts/:round_id", h.get)
}

// @Summary Payout state for one settled round
// @Tags payouts
// @Produce json
// @Param round_id path string true "round identifier"
// @Success 200 {object} models.Payout
// @Failure 404 {object} map[string]any
// @Router /api/v1/payouts/{round_id} [get]
func (h *PayoutHandler) get(c *gin.Context) {
	roundID := strings.TrimSpace(c.Param("round_id"))
	if roundID == "" {
		Error(c, http.StatusBadRequest, "round id required", nil)
		return
	}

	item, err := h.Repo.GetPayoutByRoundID(c.Request.Context(), roundID)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("payout lookup failed", zap.String("round_id", roundID), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "payout lookup failed", nil)
		return
	}
	if item == nil {
		// Losses never get a payout row.
		Error(c, http.StatusNotFound, "no payout recorded for round", nil)
		return
	}

	Ok(c, item, nil)
}
