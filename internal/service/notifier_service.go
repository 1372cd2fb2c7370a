package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/model"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/pkg/mailer"
	"marketplace-be/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PushPayload struct {
	DeepLink string                 `json:"deep_link,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type NotificationMessage struct {
	Subject      string                 `json:"subject"`
	TemplateKey  string                 `json:"template_key"`
	Title        string                 `json:"title"`
	Body         string                 `json:"body"`
	TemplateData map[string]interface{} `json:"template_data,omitempty"`
	Push         PushPayload            `json:"push"`
}

type NotifyResult struct {
	EmailSent bool `json:"email_sent"`
	PushSent  bool `json:"push_sent"`
}

// INotifier never returns an error; every channel failure is logged and
// reported as a false flag.
type INotifier interface {
	Notify(ctx context.Context, user *entity.User, msg NotificationMessage) NotifyResult
}

// PushDelivery is implemented by the websocket hub.
type PushDelivery interface {
	Send(ctx context.Context, userID uuid.UUID, notification model.Notification) error
}

type notifier struct {
	email    mailer.IEmailService
	inbox    repository.NotificationRepository
	delivery PushDelivery
	metrics  metrics.Recorder
	logger   logger.ILogger
}

func NewNotifier(email mailer.IEmailService, inbox repository.NotificationRepository, delivery PushDelivery, rec metrics.Recorder, log logger.ILogger) INotifier {
	return &notifier{
		email:    email,
		inbox:    inbox,
		delivery: delivery,
		metrics:  rec,
		logger:   log,
	}
}

func (n *notifier) Notify(ctx context.Context, user *entity.User, msg NotificationMessage) NotifyResult {
	if user == nil {
		return NotifyResult{}
	}

	return NotifyResult{
		EmailSent: n.attempt("email", user, msg, func() error { return n.sendEmail(user, msg) }),
		PushSent:  n.attempt("push", user, msg, func() error { return n.sendPush(ctx, user, msg) }),
	}
}

// errSkipped marks a channel the user cannot receive on; it is not logged as a failure.
var errSkipped = errors.New("channel skipped")

func (n *notifier) attempt(channel string, user *entity.User, msg NotificationMessage, send func() error) (sent bool) {
	details := map[string]interface{}{
		"channel":   channel,
		"user_id":   user.Id,
		"recipient": user.Email,
		"subject":   msg.Subject,
		"title":     msg.Title,
	}

	skipped := false
	defer func() {
		if r := recover(); r != nil {
			details["panic"] = fmt.Sprint(r)
			n.logger.Error("Notifier", "Notification channel panicked", details)
			sent = false
		}
		if n.metrics != nil && !skipped {
			n.metrics.IncNotification(channel, sent)
		}
	}()

	err := send()
	if errors.Is(err, errSkipped) {
		skipped = true
		return false
	}
	if err != nil {
		details["error"] = err
		n.logger.Error("Notifier", "Notification delivery failed", details)
		return false
	}
	n.logger.Info("Notifier", "Notification delivered", details)
	return true
}

func (n *notifier) sendEmail(user *entity.User, msg NotificationMessage) error {
	if n.email == nil || !user.EmailNotifications || user.Email == "" || msg.TemplateKey == "" {
		return errSkipped
	}
	return n.email.Send(user.Email, msg.Subject, msg.TemplateKey, msg.TemplateData)
}

func (n *notifier) sendPush(ctx context.Context, user *entity.User, msg NotificationMessage) error {
	if n.inbox == nil || !user.PushNotifications {
		return errSkipped
	}

	meta := make(map[string]interface{}, len(msg.Push.Data)+2)
	for k, v := range msg.Push.Data {
		meta[k] = v
	}
	if msg.Push.DeepLink != "" {
		meta["action_url"] = msg.Push.DeepLink
	}
	if user.PushToken != nil {
		meta["push_token"] = *user.PushToken
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode push metadata: %w", err)
	}

	notif := model.Notification{
		ID:         uuid.New(),
		UserID:     user.Id,
		TypeCode:   msg.TemplateKey,
		EntityType: "subscription",
		Title:      msg.Title,
		Message:    msg.Body,
		Metadata:   datatypes.JSON(metaJSON),
		CreatedAt:  time.Now(),
	}
	if sid, ok := msg.Push.Data["subscription_id"].(string); ok {
		if id, err := uuid.Parse(sid); err == nil {
			notif.EntityID = &id
		}
	}

	if err := n.inbox.CreateNotification(ctx, &notif); err != nil {
		return fmt.Errorf("save inbox notification: %w", err)
	}
	if n.delivery != nil {
		return n.delivery.Send(ctx, user.Id, notif)
	}
	return nil
}
