package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/lock"
	"github.com/efreitasn/minibroker/internal/store"
	"github.com/efreitasn/minibroker/internal/telemetry"
	"github.com/google/uuid"
)

// AlertServiceConfig tunes alert evaluation.
type AlertServiceConfig struct {
	// Policy decides whether a price equal to the target fires.
	Policy domain.TriggerPolicy
	// CheckDelay is slept between deciding and persisting. Zero in
	// production; tests use it to widen the race window.
	CheckDelay time.Duration
}

// AlertServiceConfigDefaults returns the inclusive policy with no delay.
func AlertServiceConfigDefaults() AlertServiceConfig {
	return AlertServiceConfig{Policy: domain.TriggerPolicyInclusive}
}

// CreateAlertRequest represents the input for alert creation.
type CreateAlertRequest struct {
	Symbol      string
	TargetPrice float64 // dollars
	Condition   domain.AlertCondition
}

// AlertView is an alert together with its instrument's current price.
type AlertView struct {
	*domain.Alert
	CurrentPrice int64 // cents, 0 when the instrument is gone
}

// AlertService manages price alerts and evaluates them.
type AlertService struct {
	cfg         AlertServiceConfig
	alerts      store.AlertRepository
	accounts    store.AccountRepository
	instruments store.InstrumentRepository
	locker      lock.Locker
	webhookSvc  *WebhookService
	metrics     *telemetry.Metrics
	logger      *slog.Logger
}

// NewAlertService creates a new AlertService. A nil locker falls back to an
// in-process keyed mutex.
func NewAlertService(
	cfg AlertServiceConfig,
	repos *store.Repositories,
	locker lock.Locker,
	webhookSvc *WebhookService,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *AlertService {
	if cfg.Policy == "" {
		cfg.Policy = domain.TriggerPolicyInclusive
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertService{
		cfg:         cfg,
		alerts:      repos.Alerts,
		accounts:    repos.Accounts,
		instruments: repos.Instruments,
		locker:      locker,
		webhookSvc:  webhookSvc,
		metrics:     metrics,
		logger:      logger.With("component", "alerts"),
	}
}

// CreateAlert validates the request and stores a new active alert.
func (s *AlertService) CreateAlert(ctx context.Context, accountID string, req CreateAlertRequest) (*AlertView, error) {
	symbol := domain.NormalizeSymbol(req.Symbol)
	if !domain.ValidSymbol(symbol) {
		return nil, &domain.ValidationError{Message: "symbol must match ^[A-Z]{1,10}$"}
	}
	if req.Condition != domain.AlertConditionAbove && req.Condition != domain.AlertConditionBelow {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown condition: %s. Must be one of: above, below", req.Condition),
		}
	}
	if req.TargetPrice <= 0 {
		return nil, &domain.ValidationError{Message: "target_price must be greater than 0"}
	}
	target, err := parseCents("target_price", req.TargetPrice)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	inst, err := s.instruments.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}

	a := &domain.Alert{
		AlertID:     uuid.New().String(),
		AccountID:   accountID,
		Symbol:      symbol,
		TargetPrice: target,
		Condition:   req.Condition,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	return &AlertView{Alert: a, CurrentPrice: inst.CurrentPrice}, nil
}

// GetAlert returns one of the account's alerts.
func (s *AlertService) GetAlert(ctx context.Context, accountID, alertID string) (*AlertView, error) {
	a, err := s.owned(ctx, accountID, alertID)
	if err != nil {
		return nil, err
	}
	views, err := s.withPrices(ctx, []*domain.Alert{a})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListAlerts returns the account's alerts, newest first.
func (s *AlertService) ListAlerts(ctx context.Context, accountID string, activeOnly bool) ([]*AlertView, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	alerts, err := s.alerts.ListByAccount(ctx, accountID, activeOnly)
	if err != nil {
		return nil, err
	}
	return s.withPrices(ctx, alerts)
}

// SetAlertActive toggles whether the alert takes part in evaluation.
func (s *AlertService) SetAlertActive(ctx context.Context, accountID, alertID string, active bool) (*AlertView, error) {
	if _, err := s.owned(ctx, accountID, alertID); err != nil {
		return nil, err
	}
	a, err := s.alerts.SetActive(ctx, alertID, active)
	if err != nil {
		return nil, err
	}
	views, err := s.withPrices(ctx, []*domain.Alert{a})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// DeleteAlert removes one of the account's alerts.
func (s *AlertService) DeleteAlert(ctx context.Context, accountID, alertID string) error {
	if _, err := s.owned(ctx, accountID, alertID); err != nil {
		return err
	}
	return s.alerts.Delete(ctx, alertID)
}

// EvaluateAlerts checks every pending alert of the account against current
// prices and returns the alerts this pass triggered. Concurrent passes for
// the same account never trigger the same alert twice.
func (s *AlertService) EvaluateAlerts(ctx context.Context, accountID string) ([]*AlertView, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, "alerts:"+accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire alert lock: %w", err)
	}
	defer unlock()

	start := time.Now()

	pending, err := s.alerts.ListPending(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		s.metrics.RecordAlertEvaluation(ctx, time.Since(start), 0)
		return []*AlertView{}, nil
	}

	prices, err := s.instruments.Prices(ctx, distinctSymbols(pending))
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]*domain.Alert)
	ids := make([]string, 0, len(pending))
	for _, a := range pending {
		price, ok := prices[a.Symbol]
		if !ok {
			continue
		}
		if s.cfg.Policy.ShouldTrigger(a.Condition, price, a.TargetPrice) {
			candidates[a.AlertID] = a
			ids = append(ids, a.AlertID)
		}
	}

	if len(ids) > 0 && s.cfg.CheckDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.CheckDelay):
		}
	}

	triggered := []*AlertView{}
	if len(ids) > 0 {
		now := time.Now().UTC()
		won, err := s.alerts.MarkTriggered(ctx, ids, now)
		if err != nil {
			return nil, err
		}
		for _, id := range won {
			a := candidates[id]
			a.Triggered = true
			a.TriggeredAt = &now
			triggered = append(triggered, &AlertView{Alert: a, CurrentPrice: prices[a.Symbol]})
		}
	}

	s.metrics.RecordAlertEvaluation(ctx, time.Since(start), len(triggered))

	for _, v := range triggered {
		s.logger.Info("alert triggered",
			"alert_id", v.AlertID,
			"account_id", accountID,
			"symbol", v.Symbol,
			"condition", v.Condition,
			"target_price", v.TargetPrice,
			"price", v.CurrentPrice,
		)
		if s.webhookSvc != nil {
			s.webhookSvc.DispatchAlertTriggered(ctx, v.Alert, v.CurrentPrice)
		}
	}

	return triggered, nil
}

// owned fetches an alert and hides it from other accounts.
func (s *AlertService) owned(ctx context.Context, accountID, alertID string) (*domain.Alert, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	a, err := s.alerts.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.AccountID != accountID {
		return nil, domain.ErrAlertNotFound
	}
	return a, nil
}

func (s *AlertService) withPrices(ctx context.Context, alerts []*domain.Alert) ([]*AlertView, error) {
	views := make([]*AlertView, 0, len(alerts))
	if len(alerts) == 0 {
		return views, nil
	}
	prices, err := s.instruments.Prices(ctx, distinctSymbols(alerts))
	if err != nil {
		return nil, err
	}
	for _, a := range alerts {
		views = append(views, &AlertView{Alert: a, CurrentPrice: prices[a.Symbol]})
	}
	return views, nil
}

func distinctSymbols(alerts []*domain.Alert) []string {
	seen := make(map[string]bool, len(alerts))
	symbols := make([]string, 0, len(alerts))
	for _, a := range alerts {
		if !seen[a.Symbol] {
			seen[a.Symbol] = true
			symbols = append(symbols, a.Symbol)
		}
	}
	return symbols
}
