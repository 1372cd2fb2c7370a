package entity

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusPaymentFailed SubscriptionStatus = "payment_failed"
	SubscriptionStatusCancelled     SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired       SubscriptionStatus = "expired"
)

// transitions lists every allowed status edge. Creation (-> active) is not an edge.
var transitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusActive: {
		SubscriptionStatusActive,
		SubscriptionStatusPaymentFailed,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	},
	// re-entry only through an explicit renewal once payment is corrected
	SubscriptionStatusPaymentFailed: {SubscriptionStatusActive},
}

// CanTransition reports whether the state machine has an edge from -> to.
func CanTransition(from, to SubscriptionStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourcesFor returns the statuses that may move to the target status.
func SourcesFor(to SubscriptionStatus) []SubscriptionStatus {
	var out []SubscriptionStatus
	for _, from := range []SubscriptionStatus{
		SubscriptionStatusActive,
		SubscriptionStatusPaymentFailed,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// IsTerminal reports statuses with no outgoing edge at all. payment_failed is
// excluded: sweeps skip it, but an explicit renewal may reactivate it.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPaymentFailed,
		SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return true
	}
	return false
}

type Subscription struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	PlanName        string
	Price           float64
	Status          SubscriptionStatus
	StartsAt        time.Time
	ExpiresAt       time.Time
	NextBillingDate time.Time
	PaymentMethod   *string
	Features        map[string]interface{}
	FailureReason   *string
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AddBillingPeriod advances t by one calendar month. The day is clamped to the
// last day of the target month, so Jan 31 becomes Feb 28/29 instead of
// rolling into March.
func AddBillingPeriod(t time.Time) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

type Plan struct {
	Id       uuid.UUID
	Slug     string
	Name     string
	Price    float64
	Currency string
	Features map[string]interface{}
	IsActive bool
}

// LifecycleEvent names a subscription transition that users are notified about.
type LifecycleEvent string

const (
	LifecycleActivated     LifecycleEvent = "activated"
	LifecycleRenewed       LifecycleEvent = "renewed"
	LifecyclePaymentFailed LifecycleEvent = "payment_failed"
	LifecycleCancelled     LifecycleEvent = "cancelled"
	LifecycleExpired       LifecycleEvent = "expired"
	LifecycleReminder      LifecycleEvent = "reminder"
)
