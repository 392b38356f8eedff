package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinflip/internal/metrics"
	"coinflip/internal/service"
)

type FlipHandler struct {
	Service *service.SettlementService
	Logger  *zap.Logger
}

func (h *FlipHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/flip", h.settle)
}

type settleRequest struct {
	DepositTx string  `json:"deposit_tx"`
	Player    string  `json:"player"`
	Amount    float64 `json:"amount"`
}

type settleResponse struct {
	Accepted     bool            `json:"accepted"`
	RoundID      string          `json:"round_id"`
	Result       string          `json:"result"`
	Amount       decimal.Decimal `json:"amount"`
	PayoutAmount decimal.Decimal `json:"payout_amount"`
	PayoutTx     string          `json:"payout_tx,omitempty"`
	PayoutStatus string          `json:"payout_status"`
	ElapsedMS    int64           `json:"elapsed_ms"`
}

// @Summary Settle one coin-flip wager
// @Tags flip
// @Accept json
// @Produce json
// @Param request body settleRequest true "submitted deposit reference, player address, wager amount"
// @Success 200 {object} settleResponse
// @Failure 400 {object} map[string]any
// @Failure 402 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/v1/flip [post]
func (h *FlipHandler) settle(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "settlement unavailable", nil)
		return
	}
	start := time.Now()

	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}

	result, err := h.Service.Settle(c.Request.Context(), service.SettleRequest{
		DepositTx: req.DepositTx,
		Player:    req.Player,
		Amount:    decimal.NewFromFloat(req.Amount),
	})
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			Error(c, http.StatusBadRequest, verr.Error(), nil)
		case errors.Is(err, service.ErrDuplicateSettlement):
			Error(c, http.StatusConflict, "deposit transaction already settled", nil)
		case errors.Is(err, service.ErrDepositFailed):
			Error(c, http.StatusPaymentRequired, "deposit transaction failed on-chain", nil)
		case errors.Is(err, service.ErrBettingDisabled):
			Error(c, http.StatusServiceUnavailable, "betting is currently disabled", nil)
		default:
			if h.Logger != nil {
				h.Logger.Error("settlement failed", zap.Error(err))
			}
			Error(c, http.StatusInternalServerError, "settlement failed", nil)
		}
		return
	}

	elapsed := time.Since(start)
	metrics.SettleLatency.Observe(elapsed.Seconds())

	Ok(c, settleResponse{
		Accepted:     true,
		RoundID:      result.RoundID,
		Result:       result.Result,
		Amount:       result.Amount,
		PayoutAmount: result.PayoutAmount,
		PayoutTx:     result.PayoutTx,
		PayoutStatus: result.PayoutStatus,
		ElapsedMS:    elapsed.Milliseconds(),
	}, nil)
}
