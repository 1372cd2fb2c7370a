package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"marketplace-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	maxDeliver   = 5
	ackWait      = 2 * time.Minute
	retryBackoff = 10 * time.Second
)

type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber owns one connection and every durable consumer started on it.
type Subscriber struct {
	nc *nats.Conn
	js jetstream.JetStream

	mu        sync.Mutex
	consuming []jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe binds handler to a durable consumer filtered on subject. Only
// events published after the consumer first exists are delivered.
func (s *Subscriber) Subscribe(subject string, durableName string, handler EventHandler) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckWait:       ackWait,
		MaxDeliver:    maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", durableName, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) { deliver(msg, handler) })
	if err != nil {
		return fmt.Errorf("consume %s: %w", subject, err)
	}

	s.mu.Lock()
	s.consuming = append(s.consuming, cc)
	s.mu.Unlock()

	log.Printf("nats: consumer %s listening on %s", durableName, subject)
	return nil
}

func deliver(msg jetstream.Msg, handler EventHandler) {
	var env events.Envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		log.Printf("nats: dropping undecodable message on %s: %v", msg.Subject(), err)
		_ = msg.Term()
		return
	}

	if err := handler(context.Background(), env.Event()); err != nil {
		log.Printf("nats: handler for %s failed, retrying: %v", msg.Subject(), err)
		_ = msg.NakWithDelay(retryBackoff)
		return
	}
	_ = msg.Ack()
}

func (s *Subscriber) Close() {
	s.mu.Lock()
	for _, cc := range s.consuming {
		cc.Stop()
	}
	s.consuming = nil
	s.mu.Unlock()

	if s.nc != nil {
		s.nc.Drain()
	}
}
