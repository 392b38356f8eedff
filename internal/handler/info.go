package handler

import (
	"github.com/gin-gonic/gin"

	"coinflip/internal/service"
)

type InfoHandler struct {
	Chain      service.ChainClient
	Settings   *service.SystemSettingsService
	Multiplier float64
	FeePercent float64
}

func (h *InfoHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/info", h.info)
}

type infoResponse struct {
	CustodianAvailable bool    `json:"custodian_available"`
	RPCEndpoints       int     `json:"rpc_endpoints"`
	FeePercent         float64 `json:"fee_percent"`
	Multiplier         float64 `json:"multiplier"`
	BettingEnabled     bool    `json:"betting_enabled"`
}

// @Summary Operational info: custodian availability and game parameters
// @Tags info
// @Produce json
// @Success 200 {object} infoResponse
// @Router /api/v1/info [get]
func (h *InfoHandler) info(c *gin.Context) {
	resp := infoResponse{
		FeePercent: h.FeePercent,
		Multiplier: h.Multiplier,
	}
	if h.Chain != nil {
		resp.CustodianAvailable = h.Chain.CustodianAvailable()
		resp.RPCEndpoints = h.Chain.EndpointCount()
	}
	resp.BettingEnabled = h.Settings.IsEnabled(c.Request.Context(), service.SettingBetting, true)

	Ok(c, resp, nil)
}
