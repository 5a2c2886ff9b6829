// Package telemetry records service metrics through the OpenTelemetry API.
// Without an installed MeterProvider the instruments are no-ops.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the service's counters and histograms. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	orders             metric.Int64Counter
	alertsTriggered    metric.Int64Counter
	alertEvalLatency   metric.Float64Histogram
	priceTicks         metric.Int64Counter
	webhookDeliveries  metric.Int64Counter
	pendingLimitOrders metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on the global meter provider.
// meterName should typically be the service name.
func NewMetrics(meterName string) (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates the instruments on the given meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	orders, err := meter.Int64Counter(
		"orders_total",
		metric.WithDescription("Orders placed, by final status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orders_total counter: %w", err)
	}

	triggered, err := meter.Int64Counter(
		"alerts_triggered_total",
		metric.WithDescription("Price alerts transitioned to triggered"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create alerts_triggered_total counter: %w", err)
	}

	latency, err := meter.Float64Histogram(
		"alert_evaluation_duration_seconds",
		metric.WithDescription("Time taken by one alert evaluation pass"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert_evaluation_duration_seconds histogram: %w", err)
	}

	ticks, err := meter.Int64Counter(
		"price_ticks_total",
		metric.WithDescription("Simulated price changes applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create price_ticks_total counter: %w", err)
	}

	deliveries, err := meter.Int64Counter(
		"webhook_deliveries_total",
		metric.WithDescription("Outbound webhook deliveries, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook_deliveries_total counter: %w", err)
	}

	pending, err := meter.Int64UpDownCounter(
		"pending_limit_orders",
		metric.WithDescription("Limit orders resting in the pending book"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending_limit_orders counter: %w", err)
	}

	return &Metrics{
		orders:             orders,
		alertsTriggered:    triggered,
		alertEvalLatency:   latency,
		priceTicks:         ticks,
		webhookDeliveries:  deliveries,
		pendingLimitOrders: pending,
	}, nil
}

// RecordOrder counts an order by status and side.
func (m *Metrics) RecordOrder(ctx context.Context, status, side string) {
	if m == nil {
		return
	}
	m.orders.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("side", side),
	))
}

// RecordAlertEvaluation records one evaluation pass and how many alerts it
// triggered.
func (m *Metrics) RecordAlertEvaluation(ctx context.Context, duration time.Duration, triggered int) {
	if m == nil {
		return
	}
	m.alertEvalLatency.Record(ctx, duration.Seconds())
	if triggered > 0 {
		m.alertsTriggered.Add(ctx, int64(triggered))
	}
}

// RecordPriceTick counts a simulated price change.
func (m *Metrics) RecordPriceTick(ctx context.Context, symbol string) {
	if m == nil {
		return
	}
	m.priceTicks.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", symbol)))
}

// RecordWebhookDelivery counts a webhook delivery attempt by event and outcome.
func (m *Metrics) RecordWebhookDelivery(ctx context.Context, event string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.webhookDeliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}

// AddPendingLimitOrders moves the pending book gauge by delta.
func (m *Metrics) AddPendingLimitOrders(ctx context.Context, delta int64) {
	if m == nil || delta == 0 {
		return
	}
	m.pendingLimitOrders.Add(ctx, delta)
}
