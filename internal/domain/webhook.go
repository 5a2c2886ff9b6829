package domain

import "time"

// Webhook event types.
const (
	EventOrderFilled    = "order.filled"
	EventOrderRejected  = "order.rejected"
	EventOrderCancelled = "order.cancelled"
	EventAlertTriggered = "alert.triggered"
)

// Webhook represents an account's subscription to an event notification.
type Webhook struct {
	WebhookID string
	AccountID string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidWebhookEvents lists the events an account can subscribe to.
var ValidWebhookEvents = map[string]bool{
	EventOrderFilled:    true,
	EventOrderRejected:  true,
	EventOrderCancelled: true,
	EventAlertTriggered: true,
}
