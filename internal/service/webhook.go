package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
	"github.com/efreitasn/minibroker/internal/telemetry"
	"github.com/google/uuid"
)

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	AccountID string
	URL       string
	Events    []string
}

// WebhookService handles webhook CRUD and event dispatch.
type WebhookService struct {
	webhooks store.WebhookRepository
	accounts store.AccountRepository
	client   *http.Client
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(
	webhooks store.WebhookRepository,
	accounts store.AccountRepository,
	webhookTimeout time.Duration,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		webhooks: webhooks,
		accounts: accounts,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
		metrics: metrics,
		logger:  logger.With("component", "webhooks"),
	}
}

func knownEvents() string {
	events := make([]string, 0, len(domain.ValidWebhookEvents))
	for e := range domain.ValidWebhookEvents {
		events = append(events, e)
	}
	sort.Strings(events)
	return strings.Join(events, ", ")
}

// Upsert validates the request and creates or updates webhook subscriptions.
// Returns the resulting webhooks, whether any new subscriptions were created, and any error.
func (s *WebhookService) Upsert(ctx context.Context, req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	if _, err := s.accounts.Get(ctx, req.AccountID); err != nil {
		return nil, false, err
	}

	// Validate URL.
	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[string]bool, len(req.Events))
	deduped := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !domain.ValidWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event + ". Must be one of: " + knownEvents(),
			}
		}
		if !seen[event] {
			seen[event] = true
			deduped = append(deduped, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(deduped))

	for _, event := range deduped {
		w, created, err := s.webhooks.Upsert(ctx, &domain.Webhook{
			WebhookID: uuid.New().String(),
			AccountID: req.AccountID,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to upsert webhook: %w", err)
		}
		anyCreated = anyCreated || created
		webhooks = append(webhooks, w)
	}

	return webhooks, anyCreated, nil
}

// List validates the account exists and returns all webhook subscriptions.
func (s *WebhookService) List(ctx context.Context, accountID string) ([]*domain.Webhook, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return s.webhooks.ListByAccount(ctx, accountID)
}

// Delete removes a webhook subscription by ID.
func (s *WebhookService) Delete(ctx context.Context, webhookID string) error {
	return s.webhooks.Delete(ctx, webhookID)
}

// eventPayload is the envelope shared by every webhook delivery.
type eventPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type orderEventData struct {
	AccountID      string   `json:"account_id"`
	OrderID        string   `json:"order_id"`
	Symbol         string   `json:"symbol"`
	Side           string   `json:"side"`
	Type           string   `json:"type"`
	Quantity       int64    `json:"quantity"`
	LimitPrice     *float64 `json:"limit_price"`
	Status         string   `json:"status"`
	FilledQuantity int64    `json:"filled_quantity"`
	FilledPrice    *float64 `json:"filled_price"`
	RejectReason   string   `json:"reject_reason,omitempty"`
}

type alertTriggeredData struct {
	AccountID    string  `json:"account_id"`
	AlertID      string  `json:"alert_id"`
	Symbol       string  `json:"symbol"`
	Condition    string  `json:"condition"`
	TargetPrice  float64 `json:"target_price"`
	CurrentPrice float64 `json:"current_price"`
	TriggeredAt  string  `json:"triggered_at"`
}

func dollarsOrNil(cents int64) *float64 {
	if cents == 0 {
		return nil
	}
	d := domain.CentsToDollars(cents)
	return &d
}

// DispatchOrderEvent notifies the order's account of an order.filled,
// order.rejected or order.cancelled event. Fire-and-forget.
func (s *WebhookService) DispatchOrderEvent(ctx context.Context, event string, order *domain.Order) {
	wh := s.subscription(ctx, order.AccountID, event)
	if wh == nil {
		return
	}

	payload := eventPayload{
		Event:     event,
		Timestamp: order.UpdatedAt.UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: orderEventData{
			AccountID:      order.AccountID,
			OrderID:        order.OrderID,
			Symbol:         order.Symbol,
			Side:           string(order.Side),
			Type:           string(order.Type),
			Quantity:       order.Quantity,
			LimitPrice:     dollarsOrNil(order.LimitPrice),
			Status:         string(order.Status),
			FilledQuantity: order.FilledQuantity,
			FilledPrice:    dollarsOrNil(order.FilledPrice),
			RejectReason:   order.RejectReason,
		},
	}
	go s.deliver(wh, event, payload)
}

// DispatchAlertTriggered notifies the alert's account that the alert fired
// at price. Fire-and-forget.
func (s *WebhookService) DispatchAlertTriggered(ctx context.Context, alert *domain.Alert, price int64) {
	wh := s.subscription(ctx, alert.AccountID, domain.EventAlertTriggered)
	if wh == nil {
		return
	}

	at := time.Now().UTC()
	if alert.TriggeredAt != nil {
		at = alert.TriggeredAt.UTC()
	}
	payload := eventPayload{
		Event:     domain.EventAlertTriggered,
		Timestamp: at.Truncate(time.Second).Format(time.RFC3339),
		Data: alertTriggeredData{
			AccountID:    alert.AccountID,
			AlertID:      alert.AlertID,
			Symbol:       alert.Symbol,
			Condition:    string(alert.Condition),
			TargetPrice:  domain.CentsToDollars(alert.TargetPrice),
			CurrentPrice: domain.CentsToDollars(price),
			TriggeredAt:  at.Format(time.RFC3339),
		},
	}
	go s.deliver(wh, domain.EventAlertTriggered, payload)
}

func (s *WebhookService) subscription(ctx context.Context, accountID, event string) *domain.Webhook {
	wh, err := s.webhooks.GetByAccountEvent(ctx, accountID, event)
	if err != nil {
		s.logger.Error("failed to look up webhook", "account_id", accountID, "event", event, "error", err)
		return nil
	}
	return wh
}

// deliver sends the webhook payload via HTTP POST with the required headers.
// Failures are logged and counted, never retried.
func (s *WebhookService) deliver(wh *domain.Webhook, eventType string, payload any) {
	ctx := context.Background()
	ok := false
	defer func() {
		s.metrics.RecordWebhookDelivery(ctx, eventType, ok)
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode webhook payload", "event", eventType, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("failed to build webhook request", "webhook_id", wh.WebhookID, "error", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", eventType)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed", "webhook_id", wh.WebhookID, "event", eventType, "error", err)
		return
	}
	resp.Body.Close()

	ok = resp.StatusCode < 300
	if !ok {
		s.logger.Warn("webhook endpoint returned non-2xx",
			"webhook_id", wh.WebhookID,
			"event", eventType,
			"status", resp.StatusCode,
		)
	}
}
