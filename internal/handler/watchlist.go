package handler

import (
	"net/http"

	"github.com/efreitasn/minibroker/internal/service"
	"github.com/go-chi/chi/v5"
)

// WatchlistHandler handles HTTP requests for watchlist endpoints.
type WatchlistHandler struct {
	watchlistSvc *service.WatchlistService
}

// NewWatchlistHandler creates a new WatchlistHandler.
func NewWatchlistHandler(watchlistSvc *service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlistSvc: watchlistSvc}
}

type addWatchRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

// watchlistEntryResponse carries a null quote when the instrument is gone.
type watchlistEntryResponse struct {
	Symbol  string         `json:"symbol"`
	AddedAt string         `json:"added_at"`
	Quote   *quoteResponse `json:"quote"`
}

type watchlistResponse struct {
	Watchlist []watchlistEntryResponse `json:"watchlist"`
}

// List handles GET /accounts/{account_id}/watchlist.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.watchlistSvc.List(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := watchlistResponse{Watchlist: make([]watchlistEntryResponse, len(entries))}
	for i, e := range entries {
		resp.Watchlist[i] = buildWatchlistEntry(e)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Add handles POST /accounts/{account_id}/watchlist.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addWatchRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := service.ValidateStruct(req); err != nil {
		writeServiceError(w, err)
		return
	}

	entry, err := h.watchlistSvc.Add(r.Context(), chi.URLParam(r, "account_id"), req.Symbol)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildWatchlistEntry(entry))
}

// Remove handles DELETE /accounts/{account_id}/watchlist/{symbol}.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.watchlistSvc.Remove(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "symbol")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildWatchlistEntry(e *service.WatchlistEntry) watchlistEntryResponse {
	resp := watchlistEntryResponse{
		Symbol:  e.Symbol,
		AddedAt: formatTime(e.AddedAt),
	}
	if e.Quote != nil {
		q := buildQuoteResponse(e.Quote)
		resp.Quote = &q
	}
	return resp
}
