package handler

import (
	"net/http"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/service"
	"github.com/go-chi/chi/v5"
)

// PortfolioHandler handles HTTP requests for portfolio endpoints.
type PortfolioHandler struct {
	portfolioSvc *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioSvc *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioSvc: portfolioSvc}
}

type holdingResponse struct {
	Symbol          string  `json:"symbol"`
	Quantity        int64   `json:"quantity"`
	AverageCost     float64 `json:"average_cost"`
	CurrentPrice    float64 `json:"current_price"`
	CurrentValue    float64 `json:"current_value"`
	CostBasis       float64 `json:"cost_basis"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPercent float64 `json:"gain_loss_percent"`
}

type holdingListResponse struct {
	Holdings []holdingResponse `json:"holdings"`
}

type portfolioResponse struct {
	AccountID        string            `json:"account_id"`
	CashBalance      float64           `json:"cash_balance"`
	HoldingsValue    float64           `json:"holdings_value"`
	TotalValue       float64           `json:"total_value"`
	TotalCost        float64           `json:"total_cost"`
	TotalGainLoss    float64           `json:"total_gain_loss"`
	TotalGainLossPct float64           `json:"total_gain_loss_percent"`
	Holdings         []holdingResponse `json:"holdings"`
}

// Summary handles GET /accounts/{account_id}/portfolio.
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.portfolioSvc.Summary(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, portfolioResponse{
		AccountID:        sum.AccountID,
		CashBalance:      dollars(sum.CashBalance),
		HoldingsValue:    dollars(sum.HoldingsValue),
		TotalValue:       dollars(sum.TotalValue),
		TotalCost:        dollars(sum.TotalCost),
		TotalGainLoss:    dollars(sum.TotalGainLoss),
		TotalGainLossPct: sum.GainLossPct,
		Holdings:         buildHoldingResponses(sum.Holdings),
	})
}

// Holdings handles GET /accounts/{account_id}/portfolio/holdings.
func (h *PortfolioHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	views, err := h.portfolioSvc.Holdings(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, holdingListResponse{Holdings: buildHoldingResponses(views)})
}

// Holding handles GET /accounts/{account_id}/portfolio/holdings/{symbol}.
func (h *PortfolioHandler) Holding(w http.ResponseWriter, r *http.Request) {
	view, err := h.portfolioSvc.Holding(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "symbol"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildHoldingResponse(view))
}

func buildHoldingResponse(v *service.HoldingView) holdingResponse {
	return holdingResponse{
		Symbol:          v.Symbol,
		Quantity:        v.Quantity,
		AverageCost:     domain.DecimalCentsToDollars(v.AverageCost),
		CurrentPrice:    dollars(v.CurrentPrice),
		CurrentValue:    dollars(v.CurrentValue),
		CostBasis:       dollars(v.CostBasis),
		GainLoss:        dollars(v.GainLoss),
		GainLossPercent: v.GainLossPercent,
	}
}

func buildHoldingResponses(views []*service.HoldingView) []holdingResponse {
	result := make([]holdingResponse, len(views))
	for i, v := range views {
		result[i] = buildHoldingResponse(v)
	}
	return result
}
