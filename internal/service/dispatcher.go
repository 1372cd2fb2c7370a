package service

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/repository/contract"
	"marketplace-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Dispatcher runs after a state change has been written. It never reports
// failure back; delivery problems are logged and counted.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt LifecycleEvent)
}

// deliveryPipeline resolves the recipient, notifies, and publishes the
// domain event. Both dispatcher flavours share it.
type deliveryPipeline struct {
	users     contract.UserRepository
	notifier  INotifier
	publisher events.Publisher
	clientURL string
	logger    logger.ILogger
}

func (p *deliveryPipeline) deliver(ctx context.Context, evt LifecycleEvent) NotifyResult {
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, evt.DomainEvent()); err != nil {
			p.logger.Warn("Dispatcher", "Failed to publish lifecycle event", map[string]interface{}{
				"kind":            evt.Kind,
				"subscription_id": evt.Subscription.Id,
				"error":           err.Error(),
			})
		}
	}

	user := evt.User
	if user == nil {
		found, err := p.users.FindByID(ctx, evt.UserID())
		if err != nil || found == nil {
			details := map[string]interface{}{"kind": evt.Kind, "user_id": evt.UserID()}
			if err != nil {
				details["error"] = err
			}
			p.logger.Error("Dispatcher", "Notification recipient could not be loaded", details)
			return NotifyResult{}
		}
		user = found
	}

	result := p.notifier.Notify(ctx, user, BuildMessage(user, evt, p.clientURL))
	p.logger.Debug("Dispatcher", "Lifecycle notification dispatched", map[string]interface{}{
		"kind":            evt.Kind,
		"subscription_id": evt.Subscription.Id,
		"email_sent":      result.EmailSent,
		"push_sent":       result.PushSent,
	})
	return result
}

type SyncDispatcher struct {
	pipeline *deliveryPipeline
}

func NewSyncDispatcher(users contract.UserRepository, notifier INotifier, publisher events.Publisher, clientURL string, log logger.ILogger) *SyncDispatcher {
	return &SyncDispatcher{pipeline: &deliveryPipeline{
		users:     users,
		notifier:  notifier,
		publisher: publisher,
		clientURL: clientURL,
		logger:    log,
	}}
}

func (d *SyncDispatcher) Dispatch(ctx context.Context, evt LifecycleEvent) {
	d.pipeline.deliver(ctx, evt)
}

// QueueDispatcher hands events to a watermill topic; Consume delivers them
// off the request path.
type QueueDispatcher struct {
	pipeline *deliveryPipeline
	pubSub   *gochannel.GoChannel
	topic    string
}

func NewQueueDispatcher(pubSub *gochannel.GoChannel, topic string, users contract.UserRepository, notifier INotifier, publisher events.Publisher, clientURL string, log logger.ILogger) *QueueDispatcher {
	return &QueueDispatcher{
		pipeline: &deliveryPipeline{
			users:     users,
			notifier:  notifier,
			publisher: publisher,
			clientURL: clientURL,
			logger:    log,
		},
		pubSub: pubSub,
		topic:  topic,
	}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, evt LifecycleEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		d.pipeline.logger.Error("Dispatcher", "Failed to encode lifecycle event", map[string]interface{}{"kind": evt.Kind, "error": err})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := d.pubSub.Publish(d.topic, msg); err != nil {
		d.pipeline.logger.Error("Dispatcher", fmt.Sprintf("Failed to enqueue lifecycle event on %s", d.topic), map[string]interface{}{
			"kind":            evt.Kind,
			"subscription_id": evt.Subscription.Id,
			"error":           err,
		})
	}
}

// Consume starts the delivery goroutine. It stops when ctx is cancelled.
func (d *QueueDispatcher) Consume(ctx context.Context) error {
	messages, err := d.pubSub.Subscribe(ctx, d.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			d.process(msg)
		}
	}()
	return nil
}

func (d *QueueDispatcher) process(msg *message.Message) {
	var evt LifecycleEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		d.pipeline.logger.Error("Dispatcher", "Dropping undecodable lifecycle event", map[string]interface{}{"message_id": msg.UUID, "error": err})
		msg.Ack()
		return
	}
	// not retried: each transition gets exactly one delivery attempt
	d.pipeline.deliver(msg.Context(), evt)
	msg.Ack()
}

// NewWatermillPubSub builds the in-process queue used by QueueDispatcher.
func NewWatermillPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
}

var (
	_ Dispatcher = (*SyncDispatcher)(nil)
	_ Dispatcher = (*QueueDispatcher)(nil)
)
