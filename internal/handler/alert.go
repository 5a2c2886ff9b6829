package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/service"
	"github.com/go-chi/chi/v5"
)

// AlertHandler handles HTTP requests for price alert endpoints.
type AlertHandler struct {
	alertSvc *service.AlertService
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alertSvc *service.AlertService) *AlertHandler {
	return &AlertHandler{alertSvc: alertSvc}
}

type createAlertRequest struct {
	Symbol      string   `json:"symbol" validate:"required"`
	TargetPrice *float64 `json:"target_price" validate:"required"`
	Condition   string   `json:"condition" validate:"required"`
}

type updateAlertRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// alertResponse is the JSON response for a single alert. triggered_at is
// null until the alert fires; current_price is null when the instrument is
// gone.
type alertResponse struct {
	AlertID      string   `json:"alert_id"`
	AccountID    string   `json:"account_id"`
	Symbol       string   `json:"symbol"`
	TargetPrice  float64  `json:"target_price"`
	Condition    string   `json:"condition"`
	Active       bool     `json:"active"`
	Triggered    bool     `json:"triggered"`
	CurrentPrice *float64 `json:"current_price"`
	CreatedAt    string   `json:"created_at"`
	TriggeredAt  *string  `json:"triggered_at"`
}

type alertListResponse struct {
	Alerts []alertResponse `json:"alerts"`
}

// checkAlertsResponse is the JSON response for POST .../alerts/check.
type checkAlertsResponse struct {
	Triggered []alertResponse `json:"triggered"`
	Count     int             `json:"count"`
}

// Create handles POST /accounts/{account_id}/alerts.
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := service.ValidateStruct(req); err != nil {
		writeServiceError(w, err)
		return
	}

	view, err := h.alertSvc.CreateAlert(r.Context(), chi.URLParam(r, "account_id"), service.CreateAlertRequest{
		Symbol:      req.Symbol,
		TargetPrice: *req.TargetPrice,
		Condition:   domain.AlertCondition(req.Condition),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildAlertResponse(view))
}

// List handles GET /accounts/{account_id}/alerts?active_only=.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if v := r.URL.Query().Get("active_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "active_only must be true or false")
			return
		}
		activeOnly = b
	}

	views, err := h.alertSvc.ListAlerts(r.Context(), chi.URLParam(r, "account_id"), activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, alertListResponse{Alerts: buildAlertResponses(views)})
}

// Get handles GET /accounts/{account_id}/alerts/{alert_id}.
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.alertSvc.GetAlert(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "alert_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildAlertResponse(view))
}

// Update handles PATCH /accounts/{account_id}/alerts/{alert_id}.
func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateAlertRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := service.ValidateStruct(req); err != nil {
		writeServiceError(w, err)
		return
	}

	view, err := h.alertSvc.SetAlertActive(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "alert_id"), *req.Active)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildAlertResponse(view))
}

// Delete handles DELETE /accounts/{account_id}/alerts/{alert_id}.
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.alertSvc.DeleteAlert(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "alert_id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Check handles POST /accounts/{account_id}/alerts/check.
func (h *AlertHandler) Check(w http.ResponseWriter, r *http.Request) {
	views, err := h.alertSvc.EvaluateAlerts(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, checkAlertsResponse{
		Triggered: buildAlertResponses(views),
		Count:     len(views),
	})
}

func buildAlertResponse(v *service.AlertView) alertResponse {
	return alertResponse{
		AlertID:      v.AlertID,
		AccountID:    v.AccountID,
		Symbol:       v.Symbol,
		TargetPrice:  dollars(v.TargetPrice),
		Condition:    string(v.Condition),
		Active:       v.Active,
		Triggered:    v.Triggered,
		CurrentPrice: dollarsOrNil(v.CurrentPrice),
		CreatedAt:    formatTime(v.CreatedAt),
		TriggeredAt:  formatTimePtr(v.TriggeredAt),
	}
}

func buildAlertResponses(views []*service.AlertView) []alertResponse {
	result := make([]alertResponse, len(views))
	for i, v := range views {
		result[i] = buildAlertResponse(v)
	}
	return result
}
