package service

import (
	"fmt"
	"strings"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/pkg/mailer"
	"marketplace-be/pkg/events"

	"github.com/google/uuid"
)

const displayDate = "January 2, 2006"

// LifecycleEvent is one notification-worthy subscription change. User is
// optional; the dispatcher loads it when missing.
type LifecycleEvent struct {
	Kind                entity.LifecycleEvent `json:"kind"`
	Subscription        entity.Subscription   `json:"subscription"`
	User                *entity.User          `json:"user,omitempty"`
	Reason              *string               `json:"reason,omitempty"`
	DaysUntilExpiration int                   `json:"days_until_expiration,omitempty"`
	OccurredAt          time.Time             `json:"occurred_at"`
}

func (e LifecycleEvent) UserID() uuid.UUID {
	return e.Subscription.UserId
}

// DomainEvent is the bus form of the lifecycle event.
func (e LifecycleEvent) DomainEvent() events.BaseEvent {
	data := map[string]interface{}{
		"subscription_id": e.Subscription.Id.String(),
		"user_id":         e.Subscription.UserId.String(),
		"plan_name":       e.Subscription.PlanName,
		"status":          string(e.Subscription.Status),
		"expires_at":      e.Subscription.ExpiresAt,
	}
	if e.Reason != nil {
		data["reason"] = *e.Reason
	}
	if e.Kind == entity.LifecycleReminder {
		data["days_until_expiration"] = e.DaysUntilExpiration
	}
	return events.BaseEvent{
		Type:       events.SubscriptionType(string(e.Kind)),
		Data:       data,
		OccurredAt: e.OccurredAt,
	}
}

var templateKeys = map[entity.LifecycleEvent]string{
	entity.LifecycleActivated:     mailer.TemplateSubscriptionActivated,
	entity.LifecycleRenewed:       mailer.TemplateSubscriptionRenewed,
	entity.LifecyclePaymentFailed: mailer.TemplateSubscriptionPaymentFailed,
	entity.LifecycleCancelled:     mailer.TemplateSubscriptionCancelled,
	entity.LifecycleExpired:       mailer.TemplateSubscriptionExpired,
	entity.LifecycleReminder:      mailer.TemplateSubscriptionReminder,
}

// BuildMessage renders the user-facing copy for a lifecycle event.
func BuildMessage(user *entity.User, evt LifecycleEvent, clientURL string) NotificationMessage {
	sub := evt.Subscription
	deepLink := fmt.Sprintf("%s/subscriptions/%s", strings.TrimRight(clientURL, "/"), sub.Id)

	data := map[string]interface{}{
		"full_name":         user.FullName,
		"plan_name":         sub.PlanName,
		"price":             fmt.Sprintf("%.2f", sub.Price),
		"expires_at":        sub.ExpiresAt.Format(displayDate),
		"next_billing_date": sub.NextBillingDate.Format(displayDate),
		"subscription_id":   sub.Id.String(),
		"action_url":        deepLink,
	}

	msg := NotificationMessage{TemplateKey: templateKeys[evt.Kind], TemplateData: data}

	switch evt.Kind {
	case entity.LifecycleActivated:
		msg.Subject = fmt.Sprintf("Your %s subscription is active", sub.PlanName)
		msg.Title = "Subscription activated"
		msg.Body = fmt.Sprintf("Your %s plan is active until %s.", sub.PlanName, data["expires_at"])
	case entity.LifecycleRenewed:
		msg.Subject = fmt.Sprintf("Your %s subscription has been renewed", sub.PlanName)
		msg.Title = "Subscription renewed"
		msg.Body = fmt.Sprintf("Your %s plan now runs until %s.", sub.PlanName, data["expires_at"])
	case entity.LifecyclePaymentFailed:
		msg.Subject = fmt.Sprintf("Payment failed for your %s subscription", sub.PlanName)
		msg.Title = "Payment failed"
		msg.Body = fmt.Sprintf("We could not charge you for %s.", sub.PlanName)
		if evt.Reason != nil && *evt.Reason != "" {
			data["reason"] = *evt.Reason
			msg.Body += " Reason: " + *evt.Reason
		}
	case entity.LifecycleCancelled:
		msg.Subject = fmt.Sprintf("Your %s subscription has been cancelled", sub.PlanName)
		msg.Title = "Subscription cancelled"
		msg.Body = fmt.Sprintf("Your %s plan has been cancelled.", sub.PlanName)
	case entity.LifecycleExpired:
		msg.Subject = fmt.Sprintf("Your %s subscription has expired", sub.PlanName)
		msg.Title = "Subscription expired"
		msg.Body = fmt.Sprintf("Your %s plan expired on %s.", sub.PlanName, data["expires_at"])
	case entity.LifecycleReminder:
		data["days_until_expiration"] = evt.DaysUntilExpiration
		msg.Subject = fmt.Sprintf("Your %s subscription expires in %d day(s)", sub.PlanName, evt.DaysUntilExpiration)
		msg.Title = "Subscription expiring soon"
		msg.Body = fmt.Sprintf("Your %s plan expires on %s. Renew to keep your benefits.", sub.PlanName, data["expires_at"])
	}

	msg.Push = PushPayload{
		DeepLink: deepLink,
		Data: map[string]interface{}{
			"event":           string(evt.Kind),
			"subscription_id": sub.Id.String(),
			"status":          string(sub.Status),
		},
	}
	if evt.Kind == entity.LifecycleReminder {
		msg.Push.Data["days_until_expiration"] = evt.DaysUntilExpiration
	}
	return msg
}
