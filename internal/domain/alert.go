package domain

import (
	"fmt"
	"time"
)

// AlertCondition is the direction in which an alert fires.
type AlertCondition string

const (
	AlertConditionAbove AlertCondition = "above"
	AlertConditionBelow AlertCondition = "below"
)

// TriggerPolicy decides whether a price that equals the target fires.
type TriggerPolicy string

const (
	// TriggerPolicyInclusive fires on >= for above and <= for below.
	TriggerPolicyInclusive TriggerPolicy = "inclusive"
	// TriggerPolicyStrict fires on > for above and < for below.
	TriggerPolicyStrict TriggerPolicy = "strict"
)

// ParseTriggerPolicy validates a policy name.
func ParseTriggerPolicy(s string) (TriggerPolicy, error) {
	switch TriggerPolicy(s) {
	case TriggerPolicyInclusive, TriggerPolicyStrict:
		return TriggerPolicy(s), nil
	}
	return "", fmt.Errorf("unknown trigger policy %q, must be one of: inclusive, strict", s)
}

// ShouldTrigger compares price to target under the policy.
func (p TriggerPolicy) ShouldTrigger(cond AlertCondition, price, target int64) bool {
	strict := p == TriggerPolicyStrict
	switch cond {
	case AlertConditionAbove:
		if strict {
			return price > target
		}
		return price >= target
	case AlertConditionBelow:
		if strict {
			return price < target
		}
		return price <= target
	}
	return false
}

// Alert watches an instrument price on behalf of an account.
type Alert struct {
	AlertID     string
	AccountID   string
	Symbol      string
	TargetPrice int64 // cents
	Condition   AlertCondition
	Active      bool
	Triggered   bool
	CreatedAt   time.Time
	TriggeredAt *time.Time
}

// Pending reports whether the alert still takes part in evaluation.
func (a *Alert) Pending() bool {
	return a.Active && !a.Triggered
}
