package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/model"
	"marketplace-be/internal/pkg/clock"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/repository/memory"
	"marketplace-be/pkg/events"
	"marketplace-be/pkg/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, evt LifecycleEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

func (d *recordingDispatcher) kinds() []entity.LifecycleEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]entity.LifecycleEvent, len(d.events))
	for i, e := range d.events {
		out[i] = e.Kind
	}
	return out
}

func (d *recordingDispatcher) byKind(kind entity.LifecycleEvent) []LifecycleEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []LifecycleEvent
	for _, e := range d.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []NotificationMessage
	users    []*entity.User
	result   NotifyResult
}

func (n *recordingNotifier) Notify(ctx context.Context, user *entity.User, msg NotificationMessage) NotifyResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	n.users = append(n.users, user)
	return n.result
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type fakeEmail struct {
	mu    sync.Mutex
	sent  []string
	err   error
	panic bool
}

func (f *fakeEmail) Send(toEmail, subject, templateKey string, data map[string]interface{}) error {
	if f.panic {
		panic("mail provider crashed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, templateKey)
	return nil
}

type fakePush struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

func (f *fakePush) Send(ctx context.Context, userID uuid.UUID, n model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

// fakeGateway accepts the signature "valid" and returns scripted results.
type fakeGateway struct {
	mu          sync.Mutex
	initialized []payment.InitializeRequest
	verified    []string
	initResult  payment.Result
	verify      payment.Result
	event       payment.WebhookEvent
	parseErr    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		initResult: payment.Success("Authorization URL created", map[string]interface{}{
			"authorization_url": "https://checkout.test/abc",
			"access_code":       "abc",
		}),
		verify: payment.Success("Verification successful", map[string]interface{}{"status": "success"}),
	}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) Initialize(ctx context.Context, req payment.InitializeRequest) payment.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initialized = append(g.initialized, req)
	return g.initResult
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) payment.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verified = append(g.verified, reference)
	return g.verify
}

func (g *fakeGateway) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return signature == "valid"
}

func (g *fakeGateway) ParseWebhook(rawBody []byte) (payment.WebhookEvent, error) {
	return g.event, g.parseErr
}

var errBoom = errors.New("boom")

type countingRecorder struct {
	mu          sync.Mutex
	transitions map[string]int
	conflicts   map[string]int
	notified    map[string]int
	swept       map[string]int
	webhooks    map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		transitions: map[string]int{},
		conflicts:   map[string]int{},
		notified:    map[string]int{},
		swept:       map[string]int{},
		webhooks:    map[string]int{},
	}
}

func (r *countingRecorder) IncTransition(to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[to]++
}

func (r *countingRecorder) IncTransitionConflict(operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts[operation]++
}

func (r *countingRecorder) IncNotification(channel string, sent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sent {
		r.notified[channel+":sent"]++
	} else {
		r.notified[channel+":failed"]++
	}
}

func (r *countingRecorder) ObserveSweep(job string, processed int, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swept[job] += processed
}

func (r *countingRecorder) IncWebhook(event string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.webhooks[event+":"+outcome]++
}

func (r *countingRecorder) get(m map[string]int, key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return m[key]
}

type fixture struct {
	store      *memory.Store
	clock      *clock.Fixed
	dispatcher *recordingDispatcher
	metrics    *countingRecorder
	log        logger.ILogger
	svc        *subscriptionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.NewStore(),
		clock:      clock.NewFixed(testNow),
		dispatcher: &recordingDispatcher{},
		metrics:    newCountingRecorder(),
		log:        logger.NewNopLogger(),
	}
	f.svc = newSubscriptionService(f.store, f.dispatcher, f.clock, f.metrics, f.log)
	return f
}

func (f *fixture) user(t *testing.T) *entity.User {
	t.Helper()
	u := &entity.User{
		Id:                 uuid.New(),
		Email:              uuid.NewString()[:8] + "@example.com",
		FullName:           "Ada Buyer",
		Role:               entity.UserRoleUser,
		EmailNotifications: true,
		PushNotifications:  true,
	}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	return u
}

// seed stores a subscription in the given state expiring at expiresAt.
func (f *fixture) seed(t *testing.T, user *entity.User, status entity.SubscriptionStatus, expiresAt time.Time) *entity.Subscription {
	t.Helper()
	sub := &entity.Subscription{
		Id:              uuid.New(),
		UserId:          user.Id,
		PlanName:        "Pro",
		Price:           2000,
		Status:          status,
		StartsAt:        expiresAt.AddDate(0, -1, 0),
		ExpiresAt:       expiresAt,
		NextBillingDate: expiresAt,
	}
	f.store.Subscriptions.Put(sub)
	return sub
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *entity.Subscription {
	t.Helper()
	sub, err := f.store.Subscriptions.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub
}
