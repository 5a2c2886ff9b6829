package handler

import (
	"net/http"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/engine"
	"github.com/efreitasn/minibroker/internal/service"
	"github.com/go-chi/chi/v5"
)

// StockHandler handles HTTP requests for market data endpoints.
type StockHandler struct {
	marketSvc *service.MarketService
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(marketSvc *service.MarketService) *StockHandler {
	return &StockHandler{marketSvc: marketSvc}
}

// instrumentResponse is the JSON response for a single instrument.
type instrumentResponse struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	MarketCap     int64   `json:"market_cap"`
	CurrentPrice  float64 `json:"current_price"`
	PreviousClose float64 `json:"previous_close"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	Volume        int64   `json:"volume"`
	UpdatedAt     string  `json:"updated_at"`
}

type instrumentListResponse struct {
	Stocks []instrumentResponse `json:"stocks"`
}

// quoteResponse is the JSON response for GET /stocks/{symbol}/quote.
type quoteResponse struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	Volume        int64   `json:"volume"`
	UpdatedAt     string  `json:"updated_at"`
}

// bookLevelResponse is a single price level in the book response.
type bookLevelResponse struct {
	Price         float64 `json:"price"`
	TotalQuantity int64   `json:"total_quantity"`
	OrderCount    int     `json:"order_count"`
}

// bookResponse is the JSON response for GET /stocks/{symbol}/book.
type bookResponse struct {
	Symbol     string              `json:"symbol"`
	Buys       []bookLevelResponse `json:"buys"`
	Sells      []bookLevelResponse `json:"sells"`
	SnapshotAt string              `json:"snapshot_at"`
}

// List handles GET /stocks.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.marketSvc.ListInstruments(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInstrumentList(instruments))
}

// Search handles GET /stocks/search?q=.
func (h *StockHandler) Search(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.marketSvc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInstrumentList(instruments))
}

// Get handles GET /stocks/{symbol}.
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	inst, err := h.marketSvc.GetInstrument(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInstrumentResponse(inst))
}

// Quote handles GET /stocks/{symbol}/quote.
func (h *StockHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.marketSvc.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildQuoteResponse(q))
}

// Book handles GET /stocks/{symbol}/book.
func (h *StockHandler) Book(w http.ResponseWriter, r *http.Request) {
	// Parse depth query param (default 10, max 50).
	depth, ok := intQuery(w, r, "depth", 10)
	if !ok {
		return
	}
	if depth < 1 || depth > 50 {
		WriteError(w, http.StatusBadRequest, "validation_error", "depth must be between 1 and 50")
		return
	}

	snap, err := h.marketSvc.Book(r.Context(), chi.URLParam(r, "symbol"), depth)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, bookResponse{
		Symbol:     snap.Symbol,
		Buys:       buildLevels(snap.Buys),
		Sells:      buildLevels(snap.Sells),
		SnapshotAt: formatTime(snap.SnapshotAt),
	})
}

// Simulate handles POST /stocks/{symbol}/simulate.
func (h *StockHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	inst, err := h.marketSvc.SimulatePrice(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInstrumentResponse(inst))
}

// SimulateAll handles POST /stocks/simulate-all.
func (h *StockHandler) SimulateAll(w http.ResponseWriter, r *http.Request) {
	if err := h.marketSvc.SimulateAll(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	h.List(w, r)
}

func buildInstrumentResponse(i *domain.Instrument) instrumentResponse {
	change, pct := i.Change()
	return instrumentResponse{
		Symbol:        i.Symbol,
		Name:          i.Name,
		Sector:        i.Sector,
		MarketCap:     i.MarketCap,
		CurrentPrice:  dollars(i.CurrentPrice),
		PreviousClose: dollars(i.PreviousClose),
		Change:        dollars(change),
		ChangePercent: pct,
		DayHigh:       dollars(i.DayHigh),
		DayLow:        dollars(i.DayLow),
		Volume:        i.Volume,
		UpdatedAt:     formatTime(i.UpdatedAt),
	}
}

func buildInstrumentList(instruments []*domain.Instrument) instrumentListResponse {
	resp := instrumentListResponse{Stocks: make([]instrumentResponse, len(instruments))}
	for i, inst := range instruments {
		resp.Stocks[i] = buildInstrumentResponse(inst)
	}
	return resp
}

func buildQuoteResponse(q *service.Quote) quoteResponse {
	return quoteResponse{
		Symbol:        q.Symbol,
		Price:         dollars(q.Price),
		Change:        dollars(q.Change),
		ChangePercent: q.ChangePercent,
		DayHigh:       dollars(q.DayHigh),
		DayLow:        dollars(q.DayLow),
		Volume:        q.Volume,
		UpdatedAt:     formatTime(q.UpdatedAt),
	}
}

func buildLevels(levels []engine.PriceLevel) []bookLevelResponse {
	result := make([]bookLevelResponse, len(levels))
	for i, l := range levels {
		result[i] = bookLevelResponse{
			Price:         dollars(l.Price),
			TotalQuantity: l.TotalQuantity,
			OrderCount:    l.OrderCount,
		}
	}
	return result
}
