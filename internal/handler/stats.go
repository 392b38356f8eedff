package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinflip/internal/metrics"
	"coinflip/internal/models"
	"coinflip/internal/repository"
)

type StatsHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// History page bounds; zero values fall back to 10 / 100.
	DefaultLimit int
	MaxLimit     int
}

func (h *StatsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/stats")
	group.GET("", h.read)
	group.POST("", h.write)
}

type statsResponse struct {
	Stats   *models.GameStats  `json:"stats"`
	History []models.GameRound `json:"history"`
}

// @Summary Aggregate counters and recent round history
// @Tags stats
// @Produce json
// @Param limit query int false "history page size (newest first)"
// @Success 200 {object} statsResponse
// @Router /api/v1/stats [get]
func (h *StatsHandler) read(c *gin.Context) {
	limit := h.defaultLimit()
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > h.maxLimit() {
		limit = h.maxLimit()
	}

	// Reads never propagate a store failure; the UI polls this and an
	// empty snapshot beats a dead screen.
	stats, err := h.Repo.GetStats(c.Request.Context())
	if err != nil || stats == nil {
		if err != nil && h.Logger != nil {
			h.Logger.Warn("stats read failed, serving zero defaults", zap.Error(err))
		}
		stats = &models.GameStats{ID: models.GameStatsID}
	}
	history, err := h.Repo.ListRecentRounds(c.Request.Context(), limit)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("history read failed, serving empty list", zap.Error(err))
		}
		history = nil
	}
	if history == nil {
		history = []models.GameRound{}
	}

	Ok(c, statsResponse{Stats: stats, History: history}, nil)
}

type recordRoundRequest struct {
	Result string   `json:"result"`
	Amount *float64 `json:"amount"`
	Player *string  `json:"player"`
}

// @Summary Record one completed round
// @Tags stats
// @Accept json
// @Produce json
// @Param request body recordRoundRequest true "round outcome"
// @Success 200 {object} models.GameStats
// @Failure 400 {object} map[string]any
// @Router /api/v1/stats [post]
func (h *StatsHandler) write(c *gin.Context) {
	var req recordRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.Result = strings.ToLower(strings.TrimSpace(req.Result))
	if req.Result != models.ResultWin && req.Result != models.ResultLoss {
		Error(c, http.StatusBadRequest, "result must be win or loss", nil)
		return
	}
	if req.Amount == nil || *req.Amount <= 0 {
		Error(c, http.StatusBadRequest, "amount must be a positive number", nil)
		return
	}

	round := &models.GameRound{
		RoundID: uuid.NewString(),
		Result:  req.Result,
		Amount:  decimal.NewFromFloat(*req.Amount),
	}
	if req.Player != nil && strings.TrimSpace(*req.Player) != "" {
		player := strings.TrimSpace(*req.Player)
		round.Player = &player
	}

	stats, err := h.Repo.RecordRound(c.Request.Context(), round)
	if err != nil {
		metrics.StatsWriteFailures.Inc()
		if errors.Is(err, repository.ErrDuplicateRound) {
			Error(c, http.StatusConflict, "round already recorded", nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Error("round bookkeeping failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "failed to record round", nil)
		return
	}
	metrics.RoundsSettled.WithLabelValues(req.Result).Inc()

	Ok(c, stats, nil)
}

func (h *StatsHandler) defaultLimit() int {
	if h.DefaultLimit > 0 {
		return h.DefaultLimit
	}
	return 10
}

func (h *StatsHandler) maxLimit() int {
	if h.MaxLimit > 0 {
		return h.MaxLimit
	}
	return 100
}
