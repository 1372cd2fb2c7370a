package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/pkg/clock"
	"marketplace-be/internal/pkg/lock"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/pkg/serverutils"
	"marketplace-be/internal/repository/memory"
	"marketplace-be/internal/service"
	"marketplace-be/pkg/events"
	"marketplace-be/pkg/payment"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-test-secret"

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(ctx context.Context, evt service.LifecycleEvent) {}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

type stubLogs struct {
	entries []logger.LogEntry
}

func (s *stubLogs) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	var out []logger.LogEntry
	for _, e := range s.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubLogs) GetLogById(id string) (*logger.LogEntry, error) {
	for i := range s.entries {
		if s.entries[i].Id == id {
			return &s.entries[i], nil
		}
	}
	return nil, io.EOF
}

type testApp struct {
	app       *fiber.App
	store     *memory.Store
	clock     *clock.Fixed
	publisher *recordingPublisher
	logs      *stubLogs
	user      *entity.User
	admin     *entity.User
}

func newTestApp(t *testing.T, gateway payment.Gateway, signatureHeader string) *testApp {
	t.Helper()

	store := memory.NewStore()
	clk := clock.NewFixed(testNow)
	rec := metrics.New(prometheus.NewRegistry())
	log := logger.NewNopLogger()
	ctx := context.Background()

	user := &entity.User{Email: "ada@example.com", FullName: "Ada", Role: "user", EmailNotifications: true}
	admin := &entity.User{Email: "ops@example.com", FullName: "Ops", Role: "admin"}
	require.NoError(t, store.Users.Create(ctx, user))
	require.NoError(t, store.Users.Create(ctx, admin))
	require.NoError(t, store.Plans.Create(ctx, &entity.Plan{Slug: "pro-monthly", Name: "Pro", Price: 5000, Currency: "NGN", IsActive: true}))

	subscriptions := service.NewSubscriptionService(store, nopDispatcher{}, clk, rec, log)
	sweeps := service.NewSweepService(store, nopDispatcher{}, clk, rec, log)
	jobs := service.NewJobService(sweeps, lock.NewLocalLocker(), time.Minute, 7, log)
	payments := service.NewPaymentService(store, gateway, subscriptions, service.PaymentConfig{
		Currency:    "NGN",
		CallbackURL: "https://app.test/billing",
	}, rec, log)

	publisher := &recordingPublisher{}
	logs := &stubLogs{}

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(ErrorMappings...))
	api := app.Group("/api")
	auth := serverutils.JwtMiddleware(testSecret)
	NewSubscriptionController(subscriptions).RegisterRoutes(api, auth)
	NewPaymentController(payments, signatureHeader).RegisterRoutes(api, auth)
	NewAdminController(jobs, subscriptions, publisher, logs).RegisterRoutes(api, auth)

	return &testApp{
		app:       app,
		store:     store,
		clock:     clk,
		publisher: publisher,
		logs:      logs,
		user:      user,
		admin:     admin,
	}
}

func tokenFor(t *testing.T, u *entity.User) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.Id.String(),
		"role":    u.Role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do sends a request as u (nil for anonymous) and decodes the response envelope.
func (a *testApp) do(t *testing.T, method, path string, u *entity.User, body interface{}) (int, serverutils.BaseResponse[json.RawMessage]) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, u))
	}
	return a.send(t, req)
}

func (a *testApp) send(t *testing.T, req *http.Request) (int, serverutils.BaseResponse[json.RawMessage]) {
	t.Helper()
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out serverutils.BaseResponse[json.RawMessage]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (a *testApp) seed(t *testing.T, owner *entity.User, status entity.SubscriptionStatus, expiresAt time.Time) *entity.Subscription {
	t.Helper()
	sub := &entity.Subscription{
		Id:              uuid.New(),
		UserId:          owner.Id,
		PlanName:        "Pro",
		Price:           5000,
		Status:          status,
		StartsAt:        expiresAt.AddDate(0, -1, 0),
		ExpiresAt:       expiresAt,
		NextBillingDate: expiresAt,
	}
	a.store.Subscriptions.Put(sub)
	return sub
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
